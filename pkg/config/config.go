package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Fetcher struct {
		Timeout      time.Duration `yaml:"timeout"`
		UserAgent    string        `yaml:"user_agent"`
		RateLimit    float64       `yaml:"rate_limit"`
		MaxBodyBytes int64         `yaml:"max_body_bytes"`
	} `yaml:"fetcher"`

	Extractor struct {
		Strategy  string   `yaml:"strategy"`
		StripTags []string `yaml:"strip_tags"`
	} `yaml:"extractor"`

	Summary struct {
		Sentences int      `yaml:"sentences"`
		MinChars  int      `yaml:"min_chars"`
		Stopwords []string `yaml:"stopwords"`
	} `yaml:"summary"`

	Database struct {
		URL       string `yaml:"url"`
		TableName string `yaml:"table_name"`
		VectorDim int    `yaml:"vector_dim"`
	} `yaml:"database"`

	Server struct {
		Addr          string `yaml:"addr"`
		MinCharsFloor int    `yaml:"min_chars_floor"`
	} `yaml:"server"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/skim/config.yaml"),
			"/etc/skim/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	// Merge with environment variables
	mergeWithEnv(&config)

	// Apply defaults for unset values
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	mergeWithEnv(config)
	applyDefaults(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.Fetcher.Timeout == 0 {
		config.Fetcher.Timeout = 15 * time.Second
	}
	if config.Fetcher.RateLimit == 0 {
		config.Fetcher.RateLimit = 2.0
	}
	if config.Fetcher.MaxBodyBytes == 0 {
		config.Fetcher.MaxBodyBytes = 10 << 20
	}

	if config.Extractor.Strategy == "" {
		config.Extractor.Strategy = "paragraphs"
	}

	if config.Summary.Sentences == 0 {
		config.Summary.Sentences = 5
	}
	if config.Summary.MinChars == 0 {
		config.Summary.MinChars = 40
	}

	if config.Database.TableName == "" {
		config.Database.TableName = "summaries"
	}
	if config.Database.VectorDim == 0 {
		config.Database.VectorDim = 256
	}

	if config.Server.Addr == "" {
		config.Server.Addr = ":8080"
	}
	if config.Server.MinCharsFloor == 0 {
		config.Server.MinCharsFloor = 10
	}
}

func mergeWithEnv(config *Config) {
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
	if userAgent := os.Getenv("SKIM_USER_AGENT"); userAgent != "" {
		config.Fetcher.UserAgent = userAgent
	}
	if port := os.Getenv("PORT"); port != "" {
		config.Server.Addr = ":" + port
	}
}
