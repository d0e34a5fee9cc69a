package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/propline/internal/domain/model"
)

// Environment variables read by Load.
const (
	EnvPrefix     = "PROPLINE_"
	EnvConfigFile = "PROPLINE_CONFIG"
)

var seasonRe = regexp.MustCompile(`^\d{4}-\d{2}$`)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if PROPLINE_CONFIG is set
//  3. env (prefix PROPLINE_, "__" separates nested keys)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, loadErr(err)
		}
	}

	// PROPLINE_AGGREGATE__WINDOW -> aggregate.window
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		if s == EnvConfigFile {
			return ""
		}
		s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, loadErr(err)
	}

	cfg := *base
	// Env values arrive as plain strings; split lists on commas.
	uc := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			WeaklyTypedInput: true,
			Result:           &cfg,
			TagName:          "koanf",
		},
	}
	if err := k.UnmarshalWithConf("", &cfg, uc); err != nil {
		return nil, loadErr(err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks both job sections and the provider settings.
func (c *Config) Validate() error {
	if err := c.Aggregate.Validate(); err != nil {
		return err
	}
	if err := c.Generate.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Provider.BaseURL) == "" {
		return invalidf("provider.base_url must not be empty")
	}
	if c.Provider.Timeout <= 0 {
		return invalidf("provider.timeout must be positive")
	}
	return nil
}

// Validate checks the aggregator section.
func (a AggregateConfig) Validate() error {
	if len(a.Players) == 0 {
		return invalidf("aggregate.players must not be empty")
	}
	if !seasonRe.MatchString(a.Season) {
		return invalidf("aggregate.season %q must look like YYYY-YY", a.Season)
	}
	if a.Window <= 0 {
		return invalidf("aggregate.window must be positive, got %d", a.Window)
	}
	if a.Delay < 0 {
		return invalidf("aggregate.delay must not be negative")
	}
	if strings.TrimSpace(a.Output) == "" {
		return invalidf("aggregate.output must not be empty")
	}
	if _, err := a.Statistics(); err != nil {
		return invalidf("aggregate.stats: %v", err)
	}
	if _, err := a.Fallbacks(); err != nil {
		return invalidf("aggregate.sigma_fallbacks: %v", err)
	}
	switch strings.ToLower(a.Schema) {
	case "", "auto", "points", "mu_sigma", "per_stat":
	default:
		return invalidf("aggregate.schema %q is not one of auto, points, mu_sigma, per_stat", a.Schema)
	}
	return nil
}

// Statistics parses Stats.
func (a AggregateConfig) Statistics() ([]model.Statistic, error) {
	if len(a.Stats) == 0 {
		return nil, errors.New("no statistics configured")
	}
	return model.ParseStatistics(a.Stats)
}

// Fallbacks parses SigmaFallbacks keyed by statistic.
func (a AggregateConfig) Fallbacks() (map[model.Statistic]float64, error) {
	out := make(map[model.Statistic]float64, len(a.SigmaFallbacks))
	for name, v := range a.SigmaFallbacks {
		st, err := model.ParseStatistic(name)
		if err != nil {
			return nil, err
		}
		if v <= 0 {
			return nil, fmt.Errorf("fallback for %s must be positive", st)
		}
		out[st] = v
	}
	return out, nil
}

// Validate checks the generator section.
func (g GenerateConfig) Validate() error {
	if strings.TrimSpace(g.Input) == "" || strings.TrimSpace(g.Output) == "" {
		return invalidf("generate.input and generate.output must not be empty")
	}
	switch strings.ToLower(strings.TrimSpace(g.Target)) {
	case "", "typescript", "ts":
	case "go":
		if g.Package == "" {
			return invalidf("generate.package is required for the go target")
		}
	default:
		return invalidf("generate.target %q is not one of typescript, go", g.Target)
	}
	return nil
}
