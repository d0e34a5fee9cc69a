// Package provider fetches the player directory and game logs from the
// stats provider.
package provider

import (
	"context"
	"errors"

	"github.com/okian/propline/internal/domain/model"
)

// SeasonTypeRegular restricts game logs to regular-season games.
const SeasonTypeRegular = "Regular Season"

// Sentinel error kinds for this package.
var (
	ErrUnexpectedStatus = errors.New("unexpected provider status")
	ErrNoResultSet      = errors.New("result set missing")
	ErrMalformed        = errors.New("malformed provider response")
)

// Provider is the upstream directory and game-log service.
type Provider interface {
	// Players returns the full player directory for a season.
	Players(ctx context.Context, season string) ([]model.Player, error)

	// GameLog returns a player's games, most recent first.
	GameLog(ctx context.Context, playerID int64, season, seasonType string) ([]model.Game, error)
}
