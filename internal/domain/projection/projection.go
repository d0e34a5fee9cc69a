// Package projection computes per-statistic mean and standard deviation
// over a trailing window of games.
package projection

import (
	"math"

	"github.com/okian/propline/internal/domain/model"
)

// Option applies a configuration option to the Calculator.
type Option func(*Calculator)

// WithFallbacks overrides the per-statistic fallback sigma. Non-positive
// values are ignored so a projected sigma can never be zero.
func WithFallbacks(fallbacks map[model.Statistic]float64) Option {
	return func(c *Calculator) {
		for st, v := range fallbacks {
			if v > 0 {
				c.fallbacks[st] = v
			}
		}
	}
}

// Calculator turns a window of games into projections.
type Calculator struct {
	fallbacks map[model.Statistic]float64
}

// NewCalculator creates a calculator seeded with the default fallbacks.
func NewCalculator(opts ...Option) *Calculator {
	c := &Calculator{fallbacks: make(map[model.Statistic]float64, len(model.AllStatistics))}
	for _, st := range model.AllStatistics {
		c.fallbacks[st] = st.DefaultSigma()
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fallback returns the sigma substituted for a degenerate window.
func (c *Calculator) Fallback(stat model.Statistic) float64 {
	if v, ok := c.fallbacks[stat]; ok {
		return v
	}
	return stat.DefaultSigma()
}

// Window returns the first min(len(games), n) games, keeping provider order.
func Window(games []model.Game, n int) []model.Game {
	if n <= 0 {
		return nil
	}
	if len(games) > n {
		return games[:n]
	}
	return games
}

// Project computes mu and sigma of stat over window. The second return
// value reports whether sigma was replaced by the fallback.
func (c *Calculator) Project(player string, stat model.Statistic, window []model.Game) (model.Projection, bool) {
	p := model.Projection{Player: player, Stat: stat}
	if len(window) == 0 {
		p.Sigma = c.Fallback(stat)
		return p, true
	}

	values := make([]float64, len(window))
	for i, g := range window {
		values[i] = stat.Value(g)
	}
	p.Mu = Mean(values)

	sigma := PopulationStdDev(values)
	if len(values) < 2 || math.IsNaN(sigma) || sigma <= 0 {
		p.Sigma = c.Fallback(stat)
		return p, true
	}
	p.Sigma = sigma
	return p, false
}

// Mean is the arithmetic mean; NaN for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// PopulationStdDev divides by len(values), not len(values)-1.
func PopulationStdDev(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	mu := Mean(values)
	var ss float64
	for _, v := range values {
		d := v - mu
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)))
}
