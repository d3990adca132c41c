// Package fetch retrieves EUR-Lex document HTML for parsing, combining the
// rate-limited EUR-Lex client with a persistent on-disk cache.
package fetch

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultRateLimit is the default minimum interval between HTTP requests.
const DefaultRateLimit = 1 * time.Second

// DefaultTimeout is the default per-request timeout.
const DefaultTimeout = 30 * time.Second

// DefaultCacheTTL is the default time-to-live for cached documents on disk.
const DefaultCacheTTL = 24 * time.Hour

// DefaultLanguage is the default publication language code.
const DefaultLanguage = "EN"

// Config holds configuration for document fetching.
type Config struct {
	// Language is the two-letter publication language code.
	Language string `yaml:"language"`

	// RateLimit is the minimum interval between HTTP requests to EUR-Lex.
	RateLimit time.Duration `yaml:"rate_limit"`

	// Timeout is the per-request timeout.
	Timeout time.Duration `yaml:"timeout"`

	// CacheDir is the directory for persistent document caching.
	// If empty, disk caching is disabled.
	CacheDir string `yaml:"cache_dir"`

	// CacheTTL is the time-to-live for cached documents.
	CacheTTL time.Duration `yaml:"cache_ttl"`

	// UserAgent overrides the User-Agent header sent with requests.
	UserAgent string `yaml:"user_agent"`
}

// DefaultFetchConfig returns a Config with sensible defaults.
func DefaultFetchConfig() Config {
	return Config{
		Language:  DefaultLanguage,
		RateLimit: DefaultRateLimit,
		Timeout:   DefaultTimeout,
		CacheTTL:  DefaultCacheTTL,
	}
}

// LoadConfig reads a YAML configuration file and merges it over the
// defaults. Fields absent from the file keep their default values.
func LoadConfig(path string) (Config, error) {
	config := DefaultFetchConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parsing config YAML: %w", err)
	}

	if config.Language == "" {
		config.Language = DefaultLanguage
	}
	if config.RateLimit <= 0 {
		config.RateLimit = DefaultRateLimit
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = DefaultCacheTTL
	}
	return config, nil
}
