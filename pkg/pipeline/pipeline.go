package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/xhad/skim/internal/models"
	"github.com/xhad/skim/internal/types"
	"github.com/xhad/skim/pkg/processor"
)

type PipelineConfig struct {
	Fetcher    types.Fetcher
	Extractor  types.Extractor
	Summarizer types.Summarizer
	Store      types.SummaryStore // optional
	VectorDim  int
}

// Pipeline fetches a page, extracts it and summarizes it. Every Run works
// on its own values, so one Pipeline can serve concurrent requests.
type Pipeline struct {
	config PipelineConfig
}

func NewWithConfig(config PipelineConfig) (*Pipeline, error) {
	if config.Fetcher == nil || config.Extractor == nil || config.Summarizer == nil {
		return nil, fmt.Errorf("fetcher, extractor and summarizer are required")
	}
	if config.VectorDim == 0 {
		config.VectorDim = 256
	}

	return &Pipeline{config: config}, nil
}

func (p *Pipeline) HasStore() bool {
	return p.config.Store != nil
}

// Run summarizes the page at url. A failing store is logged and does not
// fail the run.
func (p *Pipeline) Run(ctx context.Context, url string, sentences, minChars int) (models.Summary, error) {
	start := time.Now()
	log.Debug().Str("url", url).Int("sentences", sentences).Int("min_chars", minChars).Msg("starting summarization")

	html, err := p.config.Fetcher.Fetch(ctx, url)
	if err != nil {
		return models.Summary{}, err
	}
	log.Debug().Str("url", url).Int("bytes", len(html)).Msg("fetched page")

	page, err := p.config.Extractor.ExtractPage(html, url)
	if err != nil {
		return models.Summary{}, err
	}
	pageSentences := page.Sentences()
	log.Debug().Str("title", page.Title()).Int("sentences", len(pageSentences)).Msg("extracted page")

	selected, err := p.config.Summarizer.Summarize(pageSentences, sentences, minChars)
	if err != nil {
		return models.Summary{}, err
	}

	summary := models.Summary{
		ID:        uuid.NewString(),
		URL:       url,
		Title:     page.Title(),
		Sentences: selected,
		FullText:  page.Text(),
		CreatedAt: time.Now().UTC(),
		Metadata: map[string]interface{}{
			"page_sentences":    len(pageSentences),
			"summary_sentences": len(selected),
			"max_sentences":     sentences,
			"min_chars":         minChars,
			"elapsed_ms":        time.Since(start).Milliseconds(),
		},
	}

	if p.config.Store != nil {
		fingerprint := p.config.Summarizer.Fingerprint(pageSentences, p.config.VectorDim)
		if err := p.config.Store.Save(ctx, summary, fingerprint); err != nil {
			log.Warn().Err(err).Str("url", url).Msg("failed to store summary")
		} else {
			log.Debug().Str("id", summary.ID).Msg("stored summary")
		}
	}

	log.Debug().Str("url", url).Int("selected", len(selected)).Dur("elapsed", time.Since(start)).Msg("summarization finished")
	return summary, nil
}

// Related returns stored summaries of pages with similar vocabulary,
// excluding the summary itself.
func (p *Pipeline) Related(ctx context.Context, summary models.Summary, limit int) ([]models.Summary, error) {
	if p.config.Store == nil {
		return nil, nil
	}

	fingerprint := p.config.Summarizer.Fingerprint(processor.SplitSentences(summary.FullText), p.config.VectorDim)
	similar, err := p.config.Store.Similar(ctx, fingerprint, limit+1)
	if err != nil {
		return nil, err
	}

	related := make([]models.Summary, 0, len(similar))
	for _, s := range similar {
		if s.ID == summary.ID {
			continue
		}
		if len(related) == limit {
			break
		}
		related = append(related, s)
	}

	return related, nil
}

// Recent lists the latest stored summaries.
func (p *Pipeline) Recent(ctx context.Context, limit int) ([]models.Summary, error) {
	if p.config.Store == nil {
		return nil, nil
	}
	return p.config.Store.Recent(ctx, limit)
}

// Format renders the title, a blank line and one bullet per sentence.
func Format(summary models.Summary) string {
	lines := make([]string, 0, len(summary.Sentences)+2)
	lines = append(lines, summary.Title, "")
	for _, sentence := range summary.Sentences {
		lines = append(lines, "- "+sentence)
	}
	return strings.Join(lines, "\n")
}

// Save writes text to path, creating parent directories as needed.
func Save(text, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}
