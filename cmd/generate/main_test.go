package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/smartystreets/goconvey/convey"
)

func TestRun(t *testing.T) {
	convey.Convey("Given a projections file", t, func() {
		dir := t.TempDir()
		in := filepath.Join(dir, "nba_projections.csv")
		out := filepath.Join(dir, "src", "projections.ts")
		convey.So(os.WriteFile(in, []byte("player,mu,sigma\nLeBron James,25.00,4.08\n"), 0o600), convey.ShouldBeNil)

		t.Setenv("PROPLINE_GENERATE__INPUT", in)
		t.Setenv("PROPLINE_GENERATE__OUTPUT", out)

		convey.Convey("When generating", func() {
			code := run()

			convey.Convey("Then the module is written", func() {
				convey.So(code, convey.ShouldEqual, 0)
				data, err := os.ReadFile(out)
				convey.So(err, convey.ShouldBeNil)
				convey.So(string(data), convey.ShouldContainSubstring, `{ player: "LeBron James", mu: 25, sigma: 4.08 }`)
			})
		})

		convey.Convey("When the input is missing", func() {
			t.Setenv("PROPLINE_GENERATE__INPUT", filepath.Join(dir, "absent.csv"))

			convey.Convey("Then the job fails", func() {
				convey.So(run(), convey.ShouldEqual, 1)
				_, err := os.Stat(out)
				convey.So(os.IsNotExist(err), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When sigma fallbacks are configured for the aggregator", func() {
			t.Setenv("PROPLINE_AGGREGATE__SIGMA_FALLBACKS__PTS", "7.5")

			convey.So(run(), convey.ShouldEqual, 0)
			data, err := os.ReadFile(out)
			convey.So(err, convey.ShouldBeNil)
			convey.So(string(data), convey.ShouldContainSubstring, "export const defaultSigma = 7.5;")
		})

		convey.Convey("When a metrics textfile is configured", func() {
			prom := filepath.Join(dir, "generate.prom")
			t.Setenv("PROPLINE_METRICS__TEXTFILE", prom)

			convey.So(run(), convey.ShouldEqual, 0)
			data, err := os.ReadFile(prom)
			convey.So(err, convey.ShouldBeNil)
			convey.So(string(data), convey.ShouldContainSubstring, "propline_generated_records 1")
		})
	})
}
