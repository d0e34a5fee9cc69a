// Command generate renders the projections CSV as a typed source module.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/propline/internal/app"
	"github.com/okian/propline/internal/config"
	"github.com/okian/propline/internal/domain/projection"
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return 1
	}

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	_, err = generate(ctx, cfg, log)
	if cfg.Metrics.Textfile != "" {
		if werr := metrics.Default().WriteTextfile(cfg.Metrics.Textfile); werr != nil {
			log.Warn(ctx, "failed to write metrics textfile", logger.String("path", cfg.Metrics.Textfile), logger.Error(werr))
		}
	}
	if err != nil {
		log.Error(ctx, "generation failed", logger.Error(err))
		return 1
	}
	return 0
}

// generate renders cfg.Generate. The module's default sigmas follow the
// aggregator's configured fallbacks.
func generate(ctx context.Context, cfg *config.Config, log logger.Logger) (app.GenerateResult, error) {
	fallbacks, err := cfg.Aggregate.Fallbacks()
	if err != nil {
		return app.GenerateResult{}, fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}
	gen := app.NewGenerator(
		app.WithLogger(log.Named("generator")),
		app.WithCalculator(projection.NewCalculator(projection.WithFallbacks(fallbacks))),
	)
	return gen.Run(ctx, cfg.Generate)
}
