package caption

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds settings shared by the command-line tool and the HTTP service.
type Config struct {
	Languages   []string
	HTTPTimeout time.Duration
	// MaxElapsedTime bounds retrying of one request. Zero disables retries.
	MaxElapsedTime time.Duration
	RateLimit      float64
	Port           string
}

// LoadConfig reads configuration from the environment, falling back to defaults.
func LoadConfig() (Config, error) {
	cfg := Config{
		Languages:      DefaultLanguages,
		HTTPTimeout:    30 * time.Second,
		MaxElapsedTime: 30 * time.Second,
		Port:           "3457",
	}

	if v := os.Getenv("YT_LANGUAGES"); v != "" {
		cfg.Languages = SplitLanguages(v)
	}
	if v := os.Getenv("YT_HTTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid YT_HTTP_TIMEOUT %q: %w", v, err)
		}
		cfg.HTTPTimeout = d
	}
	if v := os.Getenv("YT_RETRY_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid YT_RETRY_TIMEOUT %q: %w", v, err)
		}
		if d < 0 {
			return cfg, fmt.Errorf("invalid YT_RETRY_TIMEOUT %q: must not be negative", v)
		}
		cfg.MaxElapsedTime = d
	}
	if v := os.Getenv("YT_RATE_LIMIT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return cfg, fmt.Errorf("invalid YT_RATE_LIMIT %q: %w", v, err)
		}
		cfg.RateLimit = f
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	return cfg, nil
}

// SplitLanguages parses a comma-separated list of language-code prefixes.
// A list with no usable entries yields DefaultLanguages.
func SplitLanguages(s string) []string {
	var langs []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			langs = append(langs, p)
		}
	}
	if len(langs) == 0 {
		return DefaultLanguages
	}
	return langs
}

// NewClient builds an Innertube client from the configuration.
func (c Config) NewClient(logger *slog.Logger) *Client {
	return NewClient(
		WithTimeout(c.HTTPTimeout),
		WithMaxElapsedTime(c.MaxElapsedTime),
		WithRateLimit(c.RateLimit, 1),
		WithLogger(logger),
	)
}

// NewResolver builds a Resolver from the configuration.
func (c Config) NewResolver(logger *slog.Logger) *Resolver {
	return NewResolver(
		WithPreferredLanguages(c.Languages...),
		WithResolverLogger(logger),
	)
}
