package scraper

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"github.com/xhad/skim/internal/models"
	"github.com/xhad/skim/pkg/processor"
	"golang.org/x/net/html"
)

// ErrExtraction is returned when a page yields no readable text.
var ErrExtraction = errors.New("extraction failed")

const (
	StrategyParagraphs  = "paragraphs"
	StrategyReadability = "readability"

	UntitledPage = "Untitled page"
)

// DefaultStripTags are removed before any text is read.
var DefaultStripTags = []string{"script", "style", "noscript", "header", "footer", "form"}

type ExtractorConfig struct {
	Strategy  string
	StripTags []string
}

type Extractor struct {
	config ExtractorConfig
}

func NewExtractor(config ExtractorConfig) (*Extractor, error) {
	if config.Strategy == "" {
		config.Strategy = StrategyParagraphs
	}
	if config.Strategy != StrategyParagraphs && config.Strategy != StrategyReadability {
		return nil, fmt.Errorf("unknown extraction strategy: %s", config.Strategy)
	}
	if len(config.StripTags) == 0 {
		config.StripTags = DefaultStripTags
	}

	return &Extractor{config: config}, nil
}

func (e *Extractor) Strategy() string {
	return e.config.Strategy
}

// Extract turns raw HTML into a title and its sentences.
func (e *Extractor) Extract(rawHTML string) (models.PageContent, error) {
	return e.ExtractPage(rawHTML, "")
}

// ExtractPage is Extract with the page URL, which the readability strategy
// uses to resolve relative links.
func (e *Extractor) ExtractPage(rawHTML, pageURL string) (models.PageContent, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return models.PageContent{}, fmt.Errorf("%w: parsing HTML: %v", ErrExtraction, err)
	}
	e.stripTags(doc)

	title := strings.TrimSpace(doc.Find("title").First().Text())

	if e.config.Strategy == StrategyReadability {
		article, err := readArticle(rawHTML, pageURL)
		if err != nil {
			return models.PageContent{}, fmt.Errorf("%w: %v", ErrExtraction, err)
		}
		if title == "" {
			title = strings.TrimSpace(article.Title)
		}

		doc, err = goquery.NewDocumentFromReader(strings.NewReader(article.Content))
		if err != nil {
			return models.PageContent{}, fmt.Errorf("%w: parsing article HTML: %v", ErrExtraction, err)
		}
		e.stripTags(doc)
	}

	if title == "" {
		title = UntitledPage
	}

	text := e.bodyText(doc)
	if text == "" {
		return models.PageContent{}, fmt.Errorf("%w: unable to extract textual content from the page", ErrExtraction)
	}

	return models.NewPageContent(title, processor.SplitSentences(text)), nil
}

func (e *Extractor) stripTags(doc *goquery.Document) {
	doc.Find(strings.Join(e.config.StripTags, ", ")).Remove()
}

// bodyText joins the text of every paragraph. Pages without any <p> fall
// back to the whole body.
func (e *Extractor) bodyText(doc *goquery.Document) string {
	paragraphs := doc.Find("p")
	if paragraphs.Length() == 0 {
		return cleanContent(selectionText(doc.Find("body")))
	}

	texts := make([]string, 0, paragraphs.Length())
	paragraphs.Each(func(_ int, p *goquery.Selection) {
		texts = append(texts, cleanContent(selectionText(p)))
	})

	return cleanContent(strings.Join(texts, " "))
}

// selectionText joins the trimmed text nodes under the selection with single
// spaces, so inline markup never glues two words together.
func selectionText(sel *goquery.Selection) string {
	var parts []string

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				parts = append(parts, text)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}

	return strings.Join(parts, " ")
}

func cleanContent(content string) string {
	return strings.Join(strings.Fields(content), " ")
}

func readArticle(rawHTML, pageURL string) (readability.Article, error) {
	// Relative links resolve against a placeholder when the URL is unknown
	base := &url.URL{Scheme: "http", Host: "localhost", Path: "/"}
	if pageURL != "" {
		parsed, err := url.Parse(pageURL)
		if err != nil {
			return readability.Article{}, fmt.Errorf("invalid page URL %q: %v", pageURL, err)
		}
		base = parsed
	}

	parser := readability.NewParser()
	article, err := parser.Parse(strings.NewReader(rawHTML), base)
	if err != nil {
		return readability.Article{}, fmt.Errorf("readability: %v", err)
	}

	return article, nil
}
