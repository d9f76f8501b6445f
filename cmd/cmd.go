package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/xhad/skim/internal/models"
	"github.com/xhad/skim/pkg/pipeline"
	"github.com/xhad/skim/pkg/processor"
	"github.com/xhad/skim/pkg/scraper"
	"github.com/xhad/skim/pkg/store"
	"github.com/xhad/skim/server"
)

const relatedLimit = 3

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionClearOnFinish(),
	)
}

// startSpinner animates a spinner on stderr until the returned func is
// called. It is a no-op when stderr is not a terminal.
func startSpinner(description string) func() {
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		return func() {}
	}

	spinner := getSpinner(description)
	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				spinner.Add(1)
			}
		}
	}()

	return func() {
		close(done)
		<-finished
		spinner.Finish()
	}
}

// newPipeline wires the components described by config. The returned
// cleanup func releases the summary store, if any.
func newPipeline(ctx context.Context, config Config) (*pipeline.Pipeline, func(), error) {
	settings := config.Settings

	fetcher := scraper.NewFetcher(scraper.FetcherConfig{
		Timeout:      settings.Fetcher.Timeout,
		RateLimit:    settings.Fetcher.RateLimit,
		UserAgent:    settings.Fetcher.UserAgent,
		MaxBodyBytes: settings.Fetcher.MaxBodyBytes,
	})

	extractor, err := scraper.NewExtractor(scraper.ExtractorConfig{
		Strategy:  config.Strategy,
		StripTags: settings.Extractor.StripTags,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize extractor: %w", err)
	}

	summarizer := processor.NewWithConfig(processor.ProcessorConfig{
		MaxSentences:    config.Sentences,
		MinChars:        config.MinChars,
		CustomStopwords: settings.Summary.Stopwords,
	})

	pipelineConfig := pipeline.PipelineConfig{
		Fetcher:    fetcher,
		Extractor:  extractor,
		Summarizer: summarizer,
		VectorDim:  settings.Database.VectorDim,
	}

	cleanup := func() {}
	if config.DBUrl != "" {
		summaryStore, err := store.NewWithConfig(ctx, store.SummaryStoreConfig{
			ConnString: config.DBUrl,
			TableName:  settings.Database.TableName,
			VectorDim:  settings.Database.VectorDim,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize summary store: %w", err)
		}
		pipelineConfig.Store = summaryStore
		cleanup = summaryStore.Close
		log.Debug().Str("table", settings.Database.TableName).Msg("summary history enabled")
	}

	p, err := pipeline.NewWithConfig(pipelineConfig)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	return p, cleanup, nil
}

func run(config Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, cleanup, err := newPipeline(ctx, config)
	if err != nil {
		return err
	}
	defer cleanup()

	log.Debug().Str("url", config.URL).Msg("starting summarization")

	stopSpinner := startSpinner(" Summarizing " + config.URL)
	summary, err := p.Run(ctx, config.URL, config.Sentences, config.MinChars)
	stopSpinner()
	if err != nil {
		return err
	}

	if config.Output != "" {
		if err := pipeline.Save(pipeline.Format(summary), config.Output); err != nil {
			return err
		}
		log.Info().Str("path", config.Output).Msg("summary written")
		return nil
	}

	printSummary(summary)

	related, err := p.Related(ctx, summary, relatedLimit)
	if err != nil {
		log.Warn().Err(err).Msg("failed to look up related pages")
		return nil
	}
	printRelated(related)

	return nil
}

// printSummary writes the formatted summary to stdout. Colors are dropped
// automatically when stdout is not a terminal.
func printSummary(summary models.Summary) {
	color.New(color.FgCyan, color.Bold).Println(summary.Title)
	fmt.Println()
	bullet := color.New(color.FgGreen).SprintFunc()
	for _, sentence := range summary.Sentences {
		fmt.Printf("%s %s\n", bullet("-"), sentence)
	}
}

func printRelated(related []models.Summary) {
	if len(related) == 0 {
		return
	}
	color.Blue("\nRelated pages:")
	for _, r := range related {
		fmt.Printf("  %s (%s)\n", r.Title, r.URL)
	}
}

func serve(config Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, cleanup, err := newPipeline(ctx, config)
	if err != nil {
		return err
	}
	defer cleanup()

	srv, err := server.New(server.Config{
		Addr:          config.Addr,
		Sentences:     config.Sentences,
		MinChars:      config.MinChars,
		MinCharsFloor: config.Settings.Server.MinCharsFloor,
	}, p)
	if err != nil {
		return err
	}

	return srv.ListenAndServe(ctx)
}
