package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/okian/propline/internal/domain/model"
	"github.com/okian/propline/pkg/logger"
	"github.com/okian/propline/pkg/metrics"
)

// Endpoint names, also used as metric labels.
const (
	EndpointPlayers = "commonallplayers"
	EndpointGameLog = "playergamelog"
)

const (
	defaultBaseURL      = "https://stats.nba.com/stats"
	defaultTimeout      = 30 * time.Second
	defaultMaxBodyBytes = 8 << 20
	defaultUserAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
	leagueIDNBA         = "00"
)

// Option applies a configuration option to the StatsClient.
type Option func(*StatsClient)

// WithBaseURL sets the provider base URL, e.g. for a test server.
func WithBaseURL(base string) Option {
	return func(c *StatsClient) {
		if base != "" {
			c.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *StatsClient) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *StatsClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *StatsClient) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithMaxBodyBytes caps the size of a response body.
func WithMaxBodyBytes(n int64) Option {
	return func(c *StatsClient) {
		if n > 0 {
			c.maxBody = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *StatsClient) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics sets the metrics manager.
func WithMetrics(m *metrics.Manager) Option {
	return func(c *StatsClient) {
		if m != nil {
			c.metrics = m
		}
	}
}

// StatsClient implements Provider against the stats.nba.com JSON API.
type StatsClient struct {
	baseURL   string
	http      *http.Client
	timeout   time.Duration
	userAgent string
	maxBody   int64
	logger    logger.Logger
	metrics   *metrics.Manager

	mu        sync.Mutex
	directory map[string][]model.Player // by season
}

var _ Provider = (*StatsClient)(nil)

// NewStatsClient creates a client with provider defaults.
func NewStatsClient(opts ...Option) *StatsClient {
	c := &StatsClient{
		baseURL:   defaultBaseURL,
		http:      &http.Client{},
		timeout:   defaultTimeout,
		userAgent: defaultUserAgent,
		maxBody:   defaultMaxBodyBytes,
		metrics:   metrics.Default(),
		directory: make(map[string][]model.Player),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Get().Named("provider")
	}
	return c
}

// Players returns the directory for season. The result is fetched once per
// season and reused for the lifetime of the client.
func (c *StatsClient) Players(ctx context.Context, season string) ([]model.Player, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if players, ok := c.directory[season]; ok {
		return players, nil
	}

	q := url.Values{}
	q.Set("LeagueID", leagueIDNBA)
	q.Set("Season", season)
	q.Set("IsOnlyCurrentSeason", "0")

	rs, err := c.fetch(ctx, EndpointPlayers, q)
	if err != nil {
		return nil, err
	}
	idCol, err := rs.column("PERSON_ID")
	if err != nil {
		return nil, err
	}
	nameCol, err := rs.column("DISPLAY_FIRST_LAST")
	if err != nil {
		return nil, err
	}

	players := make([]model.Player, 0, len(rs.RowSet))
	for i, row := range rs.RowSet {
		id, err := cellInt(row, idCol)
		if err != nil {
			return nil, fmt.Errorf("%w: %s row %d: %w", ErrMalformed, EndpointPlayers, i, err)
		}
		players = append(players, model.Player{ID: id, FullName: cellString(row, nameCol)})
	}

	c.directory[season] = players
	c.logger.Debug(ctx, "player directory loaded",
		logger.String("season", season),
		logger.Int("players", len(players)))
	return players, nil
}

// GameLog returns the player's games for season, most recent first as
// ordered by the provider.
func (c *StatsClient) GameLog(ctx context.Context, playerID int64, season, seasonType string) ([]model.Game, error) {
	q := url.Values{}
	q.Set("PlayerID", strconv.FormatInt(playerID, 10))
	q.Set("Season", season)
	q.Set("SeasonType", seasonType)
	q.Set("LeagueID", leagueIDNBA)

	rs, err := c.fetch(ctx, EndpointGameLog, q)
	if err != nil {
		return nil, err
	}

	cols := make(map[string]int, 6)
	for _, h := range []string{"GAME_ID", "GAME_DATE", "MATCHUP", "PTS", "REB", "AST"} {
		idx, err := rs.column(h)
		if err != nil {
			return nil, err
		}
		cols[h] = idx
	}

	games := make([]model.Game, 0, len(rs.RowSet))
	for i, row := range rs.RowSet {
		var g model.Game
		g.GameID = cellString(row, cols["GAME_ID"])
		g.Date = cellString(row, cols["GAME_DATE"])
		g.Matchup = cellString(row, cols["MATCHUP"])
		if g.Points, err = cellFloat(row, cols["PTS"]); err != nil {
			return nil, fmt.Errorf("%w: %s row %d: %w", ErrMalformed, EndpointGameLog, i, err)
		}
		if g.Rebounds, err = cellFloat(row, cols["REB"]); err != nil {
			return nil, fmt.Errorf("%w: %s row %d: %w", ErrMalformed, EndpointGameLog, i, err)
		}
		if g.Assists, err = cellFloat(row, cols["AST"]); err != nil {
			return nil, fmt.Errorf("%w: %s row %d: %w", ErrMalformed, EndpointGameLog, i, err)
		}
		games = append(games, g)
	}
	return games, nil
}

// resultSet is one table of the provider's tabular JSON envelope.
type resultSet struct {
	Name    string   `json:"name"`
	Headers []string `json:"headers"`
	RowSet  [][]any  `json:"rowSet"`
}

type envelope struct {
	ResultSets []resultSet `json:"resultSets"`
}

// column finds a header case-insensitively; game logs use "Game_ID" while
// most endpoints use upper case.
func (rs resultSet) column(name string) (int, error) {
	for i, h := range rs.Headers {
		if strings.EqualFold(h, name) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: column %s not in %s", ErrMalformed, name, rs.Name)
}

func (c *StatsClient) fetch(ctx context.Context, endpoint string, q url.Values) (resultSet, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := c.baseURL + "/" + endpoint + "?" + q.Encode()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, u, nil)
	if err != nil {
		return resultSet{}, fmt.Errorf("build %s request: %w", endpoint, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Referer", "https://www.nba.com/")
	req.Header.Set("Origin", "https://www.nba.com")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.RecordProviderRequest(endpoint, 0, time.Since(start))
		return resultSet{}, fmt.Errorf("%s request: %w", endpoint, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Error(ctx, "failed to close response body", logger.Error(err))
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	c.metrics.RecordProviderRequest(endpoint, resp.StatusCode, time.Since(start))
	if err != nil {
		return resultSet{}, fmt.Errorf("read %s response: %w", endpoint, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resultSet{}, fmt.Errorf("%w: %s returned %d", ErrUnexpectedStatus, endpoint, resp.StatusCode)
	}
	if int64(len(body)) > c.maxBody {
		return resultSet{}, fmt.Errorf("%w: %s body exceeds %d bytes", ErrMalformed, endpoint, c.maxBody)
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var env envelope
	if err := dec.Decode(&env); err != nil {
		return resultSet{}, fmt.Errorf("%w: decode %s: %w", ErrMalformed, endpoint, err)
	}
	if len(env.ResultSets) == 0 {
		return resultSet{}, fmt.Errorf("%w: %s", ErrNoResultSet, endpoint)
	}
	return env.ResultSets[0], nil
}

func cellString(row []any, idx int) string {
	if idx >= len(row) || row[idx] == nil {
		return ""
	}
	switch v := row[idx].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// cellFloat treats a missing or null cell as zero; the provider leaves
// stats null for games a player did not log.
func cellFloat(row []any, idx int) (float64, error) {
	if idx >= len(row) || row[idx] == nil {
		return 0, nil
	}
	switch v := row[idx].(type) {
	case json.Number:
		return v.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	default:
		return 0, fmt.Errorf("unexpected %T value", v)
	}
}

func cellInt(row []any, idx int) (int64, error) {
	if idx >= len(row) || row[idx] == nil {
		return 0, errors.New("missing id")
	}
	switch v := row[idx].(type) {
	case json.Number:
		return v.Int64()
	case string:
		return strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	default:
		return 0, fmt.Errorf("unexpected %T value", v)
	}
}
