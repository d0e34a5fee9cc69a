// Command aggregate resolves the configured roster against the stats
// provider and writes mean and standard deviation projections to CSV.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/propline/internal/adapters/provider"
	"github.com/okian/propline/internal/app"
	"github.com/okian/propline/internal/config"
	"github.com/okian/propline/pkg/logger"
	"github.com/okian/propline/pkg/metrics"
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := logger.Init(); err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return 1
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return 1
	}

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	_, err = aggregate(ctx, cfg, log)
	writeMetrics(ctx, cfg, log)
	if err != nil {
		log.Error(ctx, "aggregation failed", logger.Error(err))
		return 1
	}
	return 0
}

func aggregate(ctx context.Context, cfg *config.Config, log logger.Logger) (app.Result, error) {
	client := provider.NewStatsClient(
		provider.WithBaseURL(cfg.Provider.BaseURL),
		provider.WithTimeout(cfg.Provider.Timeout),
		provider.WithUserAgent(cfg.Provider.UserAgent),
		provider.WithMaxBodyBytes(cfg.Provider.MaxBodyBytes),
		provider.WithLogger(log.Named("provider")),
	)
	agg := app.NewAggregator(client, app.WithLogger(log.Named("aggregator")))
	return agg.Run(ctx, cfg.Aggregate)
}

func writeMetrics(ctx context.Context, cfg *config.Config, log logger.Logger) {
	if cfg.Metrics.Textfile == "" {
		return
	}
	if err := metrics.Default().WriteTextfile(cfg.Metrics.Textfile); err != nil {
		log.Warn(ctx, "failed to write metrics textfile", logger.String("path", cfg.Metrics.Textfile), logger.Error(err))
	}
}
