package types

import (
	"context"

	"github.com/xhad/skim/internal/models"
)

// Core interfaces
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

type Extractor interface {
	Extract(html string) (models.PageContent, error)
	ExtractPage(html, pageURL string) (models.PageContent, error)
}

type Summarizer interface {
	Summarize(sentences []string, maxSentences, minChars int) ([]string, error)
	Fingerprint(sentences []string, dim int) []float32
}

type SummaryStore interface {
	Save(ctx context.Context, summary models.Summary, fingerprint []float32) error
	Recent(ctx context.Context, limit int) ([]models.Summary, error)
	Similar(ctx context.Context, fingerprint []float32, limit int) ([]models.Summary, error)
	Close()
}
