package provider_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/okian/propline/internal/adapters/provider"
	"github.com/okian/propline/pkg/logger"
	"github.com/okian/propline/pkg/metrics"
	. "github.com/smartystreets/goconvey/convey"
)

const playersBody = `{
  "resource": "commonallplayers",
  "resultSets": [{
    "name": "CommonAllPlayers",
    "headers": ["PERSON_ID", "DISPLAY_LAST_COMMA_FIRST", "DISPLAY_FIRST_LAST", "ROSTERSTATUS"],
    "rowSet": [
      [2544, "James, LeBron", "LeBron James", 1],
      [201939, "Curry, Stephen", "Stephen Curry", 1]
    ]
  }]
}`

const gameLogBody = `{
  "resource": "playergamelog",
  "resultSets": [{
    "name": "PlayerGameLog",
    "headers": ["SEASON_ID", "Player_ID", "Game_ID", "GAME_DATE", "MATCHUP", "WL", "MIN", "PTS", "REB", "AST"],
    "rowSet": [
      ["22024", 2544, "0022401190", "APR 13, 2025", "LAL @ POR", "L", 30, 30, 8, 9],
      ["22024", 2544, "0022401170", "APR 11, 2025", "LAL vs. HOU", "W", 35, 25, 10, 7],
      ["22024", 2544, "0022401150", "APR 09, 2025", "LAL vs. DAL", "W", 33, 20, null, 6]
    ]
  }]
}`

func newTestClient(srv *httptest.Server, opts ...provider.Option) *provider.StatsClient {
	base := []provider.Option{
		provider.WithBaseURL(srv.URL),
		provider.WithHTTPClient(srv.Client()),
		provider.WithLogger(logger.New(io.Discard)),
		provider.WithMetrics(metrics.NewManager()),
	}
	return provider.NewStatsClient(append(base, opts...)...)
}

func TestStatsClient_Players(t *testing.T) {
	Convey("Given a provider serving the player directory", t, func() {
		var hits int32
		var gotQuery, gotReferer, gotUA string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&hits, 1)
			gotQuery = r.URL.RawQuery
			gotReferer = r.Header.Get("Referer")
			gotUA = r.Header.Get("User-Agent")
			if r.URL.Path != "/commonallplayers" {
				http.NotFound(w, r)
				return
			}
			_, _ = w.Write([]byte(playersBody))
		}))
		defer srv.Close()

		client := newTestClient(srv, provider.WithUserAgent("propline-test"))
		ctx := context.Background()

		Convey("When fetching the directory twice", func() {
			first, err := client.Players(ctx, "2024-25")
			So(err, ShouldBeNil)
			second, err := client.Players(ctx, "2024-25")
			So(err, ShouldBeNil)

			Convey("Then players are decoded and the directory is memoised", func() {
				So(first, ShouldHaveLength, 2)
				So(first[0].ID, ShouldEqual, 2544)
				So(first[0].FullName, ShouldEqual, "LeBron James")
				So(second, ShouldResemble, first)
				So(atomic.LoadInt32(&hits), ShouldEqual, 1)
			})

			Convey("And the request carries season and provider headers", func() {
				So(gotQuery, ShouldContainSubstring, "Season=2024-25")
				So(gotQuery, ShouldContainSubstring, "LeagueID=00")
				So(gotReferer, ShouldEqual, "https://www.nba.com/")
				So(gotUA, ShouldEqual, "propline-test")
			})
		})
	})
}

func TestStatsClient_GameLog(t *testing.T) {
	Convey("Given a provider serving a game log", t, func() {
		var gotQuery string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotQuery = r.URL.Query().Get("SeasonType") + "|" + r.URL.Query().Get("PlayerID")
			_, _ = w.Write([]byte(gameLogBody))
		}))
		defer srv.Close()

		client := newTestClient(srv)

		Convey("When fetching the log", func() {
			games, err := client.GameLog(context.Background(), 2544, "2024-25", provider.SeasonTypeRegular)

			Convey("Then rows keep provider order and null stats read as zero", func() {
				So(err, ShouldBeNil)
				So(games, ShouldHaveLength, 3)
				So(games[0].GameID, ShouldEqual, "0022401190")
				So(games[0].Matchup, ShouldEqual, "LAL @ POR")
				So(games[0].Points, ShouldEqual, 30)
				So(games[1].Rebounds, ShouldEqual, 10)
				So(games[2].Rebounds, ShouldEqual, 0)
				So(games[2].Assists, ShouldEqual, 6)
				So(gotQuery, ShouldEqual, "Regular Season|2544")
			})
		})
	})
}

func TestStatsClient_Errors(t *testing.T) {
	Convey("Given misbehaving providers", t, func() {
		ctx := context.Background()

		Convey("When the provider returns a non-2xx status", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusForbidden)
			}))
			defer srv.Close()

			_, err := newTestClient(srv).Players(ctx, "2024-25")
			So(errors.Is(err, provider.ErrUnexpectedStatus), ShouldBeTrue)
		})

		Convey("When the body is not JSON", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("<html>blocked</html>"))
			}))
			defer srv.Close()

			_, err := newTestClient(srv).GameLog(ctx, 1, "2024-25", provider.SeasonTypeRegular)
			So(errors.Is(err, provider.ErrMalformed), ShouldBeTrue)
		})

		Convey("When the envelope has no result sets", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"resultSets": []}`))
			}))
			defer srv.Close()

			_, err := newTestClient(srv).Players(ctx, "2024-25")
			So(errors.Is(err, provider.ErrNoResultSet), ShouldBeTrue)
		})

		Convey("When a required column is missing", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"resultSets":[{"name":"PlayerGameLog","headers":["Game_ID","PTS"],"rowSet":[]}]}`))
			}))
			defer srv.Close()

			_, err := newTestClient(srv).GameLog(ctx, 1, "2024-25", provider.SeasonTypeRegular)
			So(errors.Is(err, provider.ErrMalformed), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "GAME_DATE")
		})

		Convey("When the body exceeds the size cap", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(strings.Repeat(" ", 64) + playersBody))
			}))
			defer srv.Close()

			_, err := newTestClient(srv, provider.WithMaxBodyBytes(32)).Players(ctx, "2024-25")
			So(errors.Is(err, provider.ErrMalformed), ShouldBeTrue)
		})

		Convey("When the provider is unreachable", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
			client := newTestClient(srv)
			srv.Close()

			_, err := client.Players(ctx, "2024-25")
			So(err, ShouldNotBeNil)
		})
	})
}
