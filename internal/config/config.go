// Package config defines job configuration structures and loading hooks.
//
// Conventions:
//   - New returns the compiled-in defaults; Load layers overrides on top.
//   - Each job receives its own section (Aggregate, Generate) by value.
//   - Errors are wrapped with this package's sentinel errors.
package config

import (
	"time"
)

// Config contains process configuration for both jobs.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	Provider  ProviderConfig  `koanf:"provider"`
	Aggregate AggregateConfig `koanf:"aggregate"`
	Generate  GenerateConfig  `koanf:"generate"`
	Metrics   MetricsConfig   `koanf:"metrics"`
}

// ProviderConfig configures the stats provider HTTP client.
type ProviderConfig struct {
	BaseURL      string        `koanf:"base_url"`
	Timeout      time.Duration `koanf:"timeout"`
	UserAgent    string        `koanf:"user_agent"`
	MaxBodyBytes int64         `koanf:"max_body_bytes"`
}

// AggregateConfig configures the stat aggregator.
type AggregateConfig struct {
	// Players is the roster, processed in order.
	Players []string `koanf:"players"`

	// Season in provider format "YYYY-YY".
	Season string `koanf:"season"`

	// Window is the number of most recent games averaged.
	Window int `koanf:"window"`

	// Stats lists the statistics to project (PTS, REB, AST, PRA).
	Stats []string `koanf:"stats"`

	// Schema selects the file layout: auto, points, mu_sigma, per_stat.
	Schema string `koanf:"schema"`

	// Delay is the fixed pause after every player.
	Delay time.Duration `koanf:"delay"`

	// Output is the projections CSV path.
	Output string `koanf:"output"`

	// SigmaFallbacks overrides the per-statistic fallback sigma.
	SigmaFallbacks map[string]float64 `koanf:"sigma_fallbacks"`
}

// GenerateConfig configures the module generator.
type GenerateConfig struct {
	Input  string `koanf:"input"`
	Output string `koanf:"output"`

	// Target is the generated language: typescript or go.
	Target string `koanf:"target"`

	// Package is the Go package name used by the go target.
	Package string `koanf:"package"`
}

// MetricsConfig controls the prometheus textfile dump.
type MetricsConfig struct {
	// Textfile, when set, receives the registry after each run.
	Textfile string `koanf:"textfile"`
}

// Default values.
const (
	DefaultSeason       = "2024-25"
	DefaultWindow       = 10
	DefaultDelay        = 500 * time.Millisecond
	DefaultCSVPath      = "nba_projections.csv"
	DefaultModulePath   = "src/projections.ts"
	DefaultBaseURL      = "https://stats.nba.com/stats"
	DefaultTimeout      = 30 * time.Second
	DefaultMaxBodyBytes = 8 << 20
	DefaultUserAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
)

// New creates a Config holding the compiled-in defaults.
func New() *Config {
	return &Config{
		LogLevel: "info",
		Provider: ProviderConfig{
			BaseURL:      DefaultBaseURL,
			Timeout:      DefaultTimeout,
			UserAgent:    DefaultUserAgent,
			MaxBodyBytes: DefaultMaxBodyBytes,
		},
		Aggregate: AggregateConfig{
			Players: []string{
				"LeBron James",
				"Anthony Davis",
				"Luka Doncic",
				"Stephen Curry",
				"Jayson Tatum",
				"James Harden",
			},
			Season: DefaultSeason,
			Window: DefaultWindow,
			Stats:  []string{"PTS"},
			Schema: "auto",
			Delay:  DefaultDelay,
			Output: DefaultCSVPath,
		},
		Generate: GenerateConfig{
			Input:   DefaultCSVPath,
			Output:  DefaultModulePath,
			Target:  "typescript",
			Package: "projections",
		},
	}
}
