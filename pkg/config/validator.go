package config

import (
	"fmt"
	"net/url"
	"regexp"
)

var tagName = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9-]*$`)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate Fetcher config
	if c.Fetcher.Timeout <= 0 {
		errors = append(errors, ValidationError{
			Field:   "fetcher.timeout",
			Message: "timeout must be positive",
		})
	}

	if c.Fetcher.RateLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "fetcher.rate_limit",
			Message: "rate_limit must be positive",
		})
	}

	if c.Fetcher.MaxBodyBytes < 1 {
		errors = append(errors, ValidationError{
			Field:   "fetcher.max_body_bytes",
			Message: "max_body_bytes must be positive",
		})
	}

	// Validate Extractor config
	if c.Extractor.Strategy != "paragraphs" && c.Extractor.Strategy != "readability" {
		errors = append(errors, ValidationError{
			Field:   "extractor.strategy",
			Message: fmt.Sprintf("unknown strategy: %s", c.Extractor.Strategy),
		})
	}

	for _, tag := range c.Extractor.StripTags {
		if !tagName.MatchString(tag) {
			errors = append(errors, ValidationError{
				Field:   "extractor.strip_tags",
				Message: fmt.Sprintf("invalid tag name: %s", tag),
			})
		}
	}

	// Validate Summary config
	if c.Summary.Sentences < 1 {
		errors = append(errors, ValidationError{
			Field:   "summary.sentences",
			Message: "sentences must be at least 1",
		})
	}

	if c.Summary.MinChars < 0 {
		errors = append(errors, ValidationError{
			Field:   "summary.min_chars",
			Message: "min_chars must not be negative",
		})
	}

	// Validate Database config
	if c.Database.URL != "" {
		if u, err := url.Parse(c.Database.URL); err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
			errors = append(errors, ValidationError{
				Field:   "database.url",
				Message: "invalid database URL",
			})
		}
	}

	if c.Database.VectorDim < 1 {
		errors = append(errors, ValidationError{
			Field:   "database.vector_dim",
			Message: "vector_dim must be positive",
		})
	}

	// Validate Server config
	if c.Server.MinCharsFloor < 0 {
		errors = append(errors, ValidationError{
			Field:   "server.min_chars_floor",
			Message: "min_chars_floor must not be negative",
		})
	}

	return errors
}
