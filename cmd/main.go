package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	cfgPkg "github.com/xhad/skim/pkg/config"
)

type Config struct {
	URL        string
	Sentences  int
	MinChars   int
	Output     string
	Debug      bool
	ConfigPath string
	Strategy   string
	DBUrl      string
	Serve      bool
	Addr       string

	Settings *cfgPkg.Config
}

func main() {
	config, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	setupLogging(config.Debug)

	if config.Serve {
		err = serve(config)
	} else {
		err = run(config)
	}
	if err != nil {
		log.Error().Err(err).Msg("skim failed")
		os.Exit(1)
	}
}

func setupLogging(debug bool) {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// parseFlags reads the command line, then fills every flag the user did not
// set from the config file.
func parseFlags(args []string, output io.Writer) (Config, error) {
	var config Config

	fs := flag.NewFlagSet("skim", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprintln(output, "Fetch a web page and summarize its textual content.")
		fmt.Fprintln(output)
		fmt.Fprintln(output, "Usage: skim --url URL [options]")
		fmt.Fprintln(output, "       skim --serve [options]")
		fmt.Fprintln(output)
		fs.PrintDefaults()
	}

	fs.StringVar(&config.URL, "url", "", "URL of the web page to summarize")
	fs.IntVar(&config.Sentences, "sentences", 5, "Maximum number of sentences in the summary")
	fs.IntVar(&config.MinChars, "min-chars", 40, "Minimum characters for a sentence to be considered")
	fs.StringVar(&config.Output, "output", "", "Write the summary to this file instead of stdout")
	fs.BoolVar(&config.Debug, "debug", false, "Enable debug logging for troubleshooting")
	fs.StringVar(&config.ConfigPath, "config", "", "Path to config file")
	fs.StringVar(&config.Strategy, "strategy", "", "Extraction strategy (paragraphs or readability)")
	fs.StringVar(&config.DBUrl, "db-url", "", "PostgreSQL connection string for summary history")
	fs.BoolVar(&config.Serve, "serve", false, "Run the web interface instead of a single summary")
	fs.StringVar(&config.Addr, "addr", "", "Listen address for --serve")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	settings, err := cfgPkg.LoadConfig(config.ConfigPath)
	if err != nil {
		return Config{}, err
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if set["sentences"] {
		settings.Summary.Sentences = config.Sentences
	}
	if set["min-chars"] {
		settings.Summary.MinChars = config.MinChars
	}
	if set["strategy"] {
		settings.Extractor.Strategy = config.Strategy
	}
	if set["db-url"] {
		settings.Database.URL = config.DBUrl
	}
	if set["addr"] {
		settings.Server.Addr = config.Addr
	}

	config.Sentences = settings.Summary.Sentences
	config.MinChars = settings.Summary.MinChars
	config.Strategy = settings.Extractor.Strategy
	config.DBUrl = settings.Database.URL
	config.Addr = settings.Server.Addr
	config.Settings = settings

	if config.URL == "" && !config.Serve {
		fs.Usage()
		return Config{}, errors.New("the --url flag is required")
	}

	if problems := settings.Validate(); len(problems) > 0 {
		errs := make([]error, len(problems))
		for i, problem := range problems {
			errs[i] = problem
		}
		return Config{}, fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}

	return config, nil
}
