package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"
)

// ErrFetch is returned when a page cannot be downloaded.
var ErrFetch = errors.New("fetch failed")

const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) " +
	"Chrome/120.0.0.0 Safari/537.36"

type FetcherConfig struct {
	Timeout      time.Duration
	RateLimit    float64 // requests per second
	UserAgent    string
	MaxBodyBytes int64
	Client       *http.Client
}

// Fetcher downloads single pages. The limiter is shared by every call made
// through the same Fetcher.
type Fetcher struct {
	config  FetcherConfig
	client  *http.Client
	limiter *rate.Limiter
}

func NewFetcher(config FetcherConfig) *Fetcher {
	if config.Timeout == 0 {
		config.Timeout = 15 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 2 // 2 requests per second by default
	}
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}
	if config.MaxBodyBytes == 0 {
		config.MaxBodyBytes = 10 << 20
	}

	client := config.Client
	if client == nil {
		client = &http.Client{
			Timeout: config.Timeout,
		}
	}

	return &Fetcher{
		config:  config,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}
}

func validateURL(urlStr string) error {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("%w: invalid URL '%s': %v", ErrFetch, urlStr, err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("%w: unsupported URL scheme in '%s'", ErrFetch, urlStr)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("%w: missing host in '%s'", ErrFetch, urlStr)
	}
	return nil
}

// Fetch returns the page body decoded to UTF-8.
func (f *Fetcher) Fetch(ctx context.Context, urlStr string) (string, error) {
	if err := validateURL(urlStr); err != nil {
		return "", err
	}

	// Apply rate limiting
	if err := f.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetch, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetch, err)
	}
	req.Header.Set("User-Agent", f.config.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: network error while fetching '%s': %v", ErrFetch, urlStr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("%w: unexpected status code %d while fetching '%s'", ErrFetch, resp.StatusCode, urlStr)
	}

	body, err := charset.NewReader(io.LimitReader(resp.Body, f.config.MaxBodyBytes), resp.Header.Get("Content-Type"))
	if err != nil {
		return "", fmt.Errorf("%w: decoding '%s': %v", ErrFetch, urlStr, err)
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("%w: reading '%s': %v", ErrFetch, urlStr, err)
	}

	return string(data), nil
}
