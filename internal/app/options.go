// Package app wires the provider, projection math, tabular store and code
// generator into the two batch jobs: Aggregator and Generator.
package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/okian/propline/internal/domain/projection"
	"github.com/okian/propline/pkg/logger"
	"github.com/okian/propline/pkg/metrics"
)

// Job names used as metric labels.
const (
	JobAggregate = "aggregate"
	JobGenerate  = "generate"
)

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Option applies a configuration option to a job.
type Option func(*deps)

type deps struct {
	logger  logger.Logger
	metrics *metrics.Manager
	calc    *projection.Calculator
	sleep   Sleeper
	now     func() time.Time
	newID   func() uuid.UUID
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(d *deps) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithMetrics sets the metrics manager.
func WithMetrics(m *metrics.Manager) Option {
	return func(d *deps) {
		if m != nil {
			d.metrics = m
		}
	}
}

// WithCalculator replaces the calculator built from the aggregate config.
// The generator emits its fallbacks as the module's default sigmas.
func WithCalculator(c *projection.Calculator) Option {
	return func(d *deps) {
		if c != nil {
			d.calc = c
		}
	}
}

// WithSleeper replaces the inter-player delay.
func WithSleeper(s Sleeper) Option {
	return func(d *deps) {
		if s != nil {
			d.sleep = s
		}
	}
}

// WithClock sets the time source used for timestamps and durations.
func WithClock(now func() time.Time) Option {
	return func(d *deps) {
		if now != nil {
			d.now = now
		}
	}
}

// WithIDGenerator sets the run ID source.
func WithIDGenerator(gen func() uuid.UUID) Option {
	return func(d *deps) {
		if gen != nil {
			d.newID = gen
		}
	}
}

func newDeps(name string, opts []Option) deps {
	d := deps{
		metrics: metrics.Default(),
		sleep:   SleepContext,
		now:     time.Now,
		newID:   uuid.New,
	}
	for _, opt := range opts {
		opt(&d)
	}
	if d.logger == nil {
		d.logger = logger.Get().Named(name)
	}
	return d
}

// SleepContext waits for d unless ctx is cancelled first.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
