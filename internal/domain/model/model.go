// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"fmt"
	"strings"
)

// Statistic parsing errors.
var (
	ErrUnknownStatistic   = errors.New("unknown statistic")
	ErrDuplicateStatistic = errors.New("duplicate statistic")
)

// Player is an entry of the provider's player directory.
type Player struct {
	ID       int64  // stable provider identifier
	FullName string // canonical full name, e.g. "LeBron James"
}

// Game is one row of a player's game log. Providers return rows
// most-recent-first.
type Game struct {
	GameID   string
	Date     string
	Matchup  string
	Points   float64
	Rebounds float64
	Assists  float64
}

// Statistic is a projected category. The string value is the tag
// persisted in the tabular file.
type Statistic string

// Supported statistics.
const (
	Points   Statistic = "PTS"
	Rebounds Statistic = "REB"
	Assists  Statistic = "AST"
	Combined Statistic = "PRA" // points + rebounds + assists per game
)

// AllStatistics lists every supported statistic in canonical order.
var AllStatistics = []Statistic{Points, Rebounds, Assists, Combined}

// ParseStatistic accepts a tag (PTS, REB, AST, PRA) or a long name
// (points, rebounds, assists, combined), case-insensitively.
func ParseStatistic(s string) (Statistic, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pts", "points":
		return Points, nil
	case "reb", "rebounds":
		return Rebounds, nil
	case "ast", "assists":
		return Assists, nil
	case "pra", "combined":
		return Combined, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatistic, s)
}

// ParseStatistics parses a list of statistic names, rejecting duplicates.
func ParseStatistics(names []string) ([]Statistic, error) {
	out := make([]Statistic, 0, len(names))
	seen := make(map[Statistic]bool, len(names))
	for _, n := range names {
		st, err := ParseStatistic(n)
		if err != nil {
			return nil, err
		}
		if seen[st] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateStatistic, st)
		}
		seen[st] = true
		out = append(out, st)
	}
	return out, nil
}

// Value extracts the per-game value of the statistic.
func (s Statistic) Value(g Game) float64 {
	switch s {
	case Points:
		return g.Points
	case Rebounds:
		return g.Rebounds
	case Assists:
		return g.Assists
	case Combined:
		return g.Points + g.Rebounds + g.Assists
	}
	return 0
}

// DefaultSigma is the fallback standard deviation used when the observed
// one is undefined or not positive.
func (s Statistic) DefaultSigma() float64 {
	switch s {
	case Points:
		return 6.0
	case Rebounds, Assists:
		return 3.0
	case Combined:
		return 8.0
	}
	return 0
}

func (s Statistic) String() string { return string(s) }

// Projection is the aggregated mean and standard deviation of one
// statistic for one player over the trailing window.
type Projection struct {
	Player string
	Stat   Statistic
	Mu     float64
	Sigma  float64
}
