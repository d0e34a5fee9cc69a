package config_test

import (
	"testing"
	"time"

	"github.com/okian/propline/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should carry the compiled-in roster and settings", func() {
			convey.So(cfg.Aggregate.Players, convey.ShouldHaveLength, 6)
			convey.So(cfg.Aggregate.Players[0], convey.ShouldEqual, "LeBron James")
			convey.So(cfg.Aggregate.Season, convey.ShouldEqual, "2024-25")
			convey.So(cfg.Aggregate.Window, convey.ShouldEqual, 10)
			convey.So(cfg.Aggregate.Stats, convey.ShouldResemble, []string{"PTS"})
			convey.So(cfg.Aggregate.Delay, convey.ShouldEqual, 500*time.Millisecond)
			convey.So(cfg.Aggregate.Output, convey.ShouldEqual, "nba_projections.csv")
			convey.So(cfg.Generate.Input, convey.ShouldEqual, cfg.Aggregate.Output)
			convey.So(cfg.Generate.Output, convey.ShouldEqual, "src/projections.ts")
			convey.So(cfg.Generate.Target, convey.ShouldEqual, "typescript")
			convey.So(cfg.Provider.Timeout, convey.ShouldEqual, 30*time.Second)
		})

		convey.Convey("Then the defaults validate", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}
