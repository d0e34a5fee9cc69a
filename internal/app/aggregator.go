package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/okian/propline/internal/adapters/provider"
	"github.com/okian/propline/internal/adapters/tabular"
	"github.com/okian/propline/internal/config"
	"github.com/okian/propline/internal/domain/model"
	"github.com/okian/propline/internal/domain/projection"
	"github.com/okian/propline/internal/domain/roster"
	"github.com/okian/propline/pkg/logger"
	"github.com/okian/propline/pkg/metrics"
)

// Skipped describes a roster entry that produced no projections.
type Skipped struct {
	Player string
	Reason string // metrics.ReasonNotFound or metrics.ReasonRetrieval
	Err    error
}

// Result summarises one aggregator run.
type Result struct {
	RunID       uuid.UUID
	Schema      tabular.Schema
	Projections []model.Projection
	Skipped     []Skipped
	Path        string
	Rows        int
	Written     bool
}

// Aggregator fetches game logs for a roster and writes the projections file.
type Aggregator struct {
	deps
	provider provider.Provider
}

// NewAggregator creates an aggregator reading from p.
func NewAggregator(p provider.Provider, opts ...Option) *Aggregator {
	return &Aggregator{
		deps:     newDeps("aggregator", opts),
		provider: p,
	}
}

// Run processes cfg.Players in order. Players that cannot be resolved or
// fetched are logged and skipped. The configured delay follows every
// player. When nothing was projected no file is written and the previous
// file, if any, is left untouched.
func (a *Aggregator) Run(ctx context.Context, cfg config.AggregateConfig) (Result, error) {
	if a.provider == nil {
		return Result{}, errors.New("aggregator has no provider")
	}
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	stats, err := cfg.Statistics()
	if err != nil {
		return Result{}, err
	}
	schema, err := tabular.SchemaFor(stats, cfg.Schema)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}
	calc := a.calc
	if calc == nil {
		fallbacks, err := cfg.Fallbacks()
		if err != nil {
			return Result{}, fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
		}
		calc = projection.NewCalculator(projection.WithFallbacks(fallbacks))
	}

	res := Result{RunID: a.newID(), Schema: schema, Path: cfg.Output}
	log := a.logger.With(logger.String("run_id", res.RunID.String()))
	start := a.now()

	log.Info(ctx, "aggregation started",
		logger.Int("players", len(cfg.Players)),
		logger.String("season", cfg.Season),
		logger.Int("window", cfg.Window),
		logger.Any("stats", stats),
		logger.String("schema", schema.String()))

	projected := 0
	for _, name := range cfg.Players {
		out, err := a.projectPlayer(ctx, log, calc, cfg, stats, name)
		if err != nil {
			reason := metrics.ReasonRetrieval
			if errors.Is(err, roster.ErrPlayerNotFound) {
				reason = metrics.ReasonNotFound
			}
			a.metrics.RecordPlayerSkipped(reason)
			res.Skipped = append(res.Skipped, Skipped{Player: name, Reason: reason, Err: err})
			log.Warn(ctx, "player skipped",
				logger.String("player", name),
				logger.String("reason", reason),
				logger.Error(err))
		} else {
			res.Projections = append(res.Projections, out...)
			projected++
		}

		if err := a.sleep(ctx, cfg.Delay); err != nil {
			a.metrics.RecordRun(JobAggregate, a.now().Sub(start), false, a.now())
			return res, fmt.Errorf("aggregation interrupted: %w", err)
		}
	}

	if len(res.Projections) == 0 {
		a.metrics.RecordRun(JobAggregate, a.now().Sub(start), false, a.now())
		log.Warn(ctx, "no projections generated; check names and network",
			logger.Int("skipped", len(res.Skipped)))
		return res, nil
	}

	if err := tabular.Write(cfg.Output, schema, res.Projections); err != nil {
		a.metrics.RecordRun(JobAggregate, a.now().Sub(start), false, a.now())
		return res, fmt.Errorf("write %s: %w", cfg.Output, err)
	}
	res.Rows = len(res.Projections)
	res.Written = true

	end := a.now()
	a.metrics.SetRowsWritten(res.Rows)
	a.metrics.RecordRun(JobAggregate, end.Sub(start), true, end)
	log.Info(ctx, "projections written",
		logger.String("path", cfg.Output),
		logger.Int("rows", res.Rows),
		logger.Int("players", projected),
		logger.Int("skipped", len(res.Skipped)),
		logger.Duration("elapsed", end.Sub(start)))
	return res, nil
}

func (a *Aggregator) projectPlayer(
	ctx context.Context,
	log logger.Logger,
	calc *projection.Calculator,
	cfg config.AggregateConfig,
	stats []model.Statistic,
	name string,
) ([]model.Projection, error) {
	directory, err := a.provider.Players(ctx, cfg.Season)
	if err != nil {
		return nil, fmt.Errorf("load player directory: %w", err)
	}
	player, err := roster.Resolve(directory, name)
	if err != nil {
		return nil, err
	}
	a.metrics.RecordPlayerResolved()

	games, err := a.provider.GameLog(ctx, player.ID, cfg.Season, provider.SeasonTypeRegular)
	if err != nil {
		return nil, fmt.Errorf("game log for %s: %w", player.FullName, err)
	}
	window := projection.Window(games, cfg.Window)

	out := make([]model.Projection, 0, len(stats))
	for _, st := range stats {
		p, fellBack := calc.Project(player.FullName, st, window)
		a.metrics.RecordProjection(st.String(), fellBack)
		log.Info(ctx, "player projected",
			logger.String("player", p.Player),
			logger.String("stat", st.String()),
			logger.Float64("mu", p.Mu),
			logger.Float64("sigma", p.Sigma),
			logger.Int("games", len(window)),
			logger.Int("window", cfg.Window))
		if fellBack {
			log.Debug(ctx, "sigma fell back to default",
				logger.String("player", p.Player),
				logger.String("stat", st.String()))
		}
		out = append(out, p)
	}
	return out, nil
}
