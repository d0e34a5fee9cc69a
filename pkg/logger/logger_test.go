package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given the global logger", t, func() {
		So(Init(), ShouldBeNil)
		defer func() { So(Sync(), ShouldBeNil) }()

		Convey("Then Get and Named return usable loggers", func() {
			So(Get(), ShouldNotBeNil)
			So(Named("aggregate"), ShouldNotBeNil)
			Get().Info(context.Background(), "test message", String("k", "v"))
		})
	})
}

func TestLoggerWriter(t *testing.T) {
	Convey("Given a logger writing to a buffer", t, func() {
		So(SetLevelString("info"), ShouldBeNil)
		var buf bytes.Buffer
		l := New(&buf)
		ctx := context.Background()

		Convey("When logging with fields", func() {
			l.Info(ctx, "player projected", String("player", "LeBron James"), Float64("mu", 25))

			Convey("Then the record carries message, fields and source", func() {
				out := buf.String()
				So(out, ShouldContainSubstring, "msg=\"player projected\"")
				So(out, ShouldContainSubstring, "player=\"LeBron James\"")
				So(out, ShouldContainSubstring, "mu=25")
				So(out, ShouldContainSubstring, "source=")
				So(out, ShouldContainSubstring, "logger_test.go")
			})
		})

		Convey("When using With", func() {
			l.With(String("run_id", "abc")).Warn(ctx, "skipping player", Error(errors.New("boom")))

			Convey("Then the bound field and error are present", func() {
				out := buf.String()
				So(out, ShouldContainSubstring, "run_id=abc")
				So(out, ShouldContainSubstring, "error=boom")
				So(out, ShouldContainSubstring, "level=WARN")
			})
		})

		Convey("When the level is raised to error", func() {
			So(SetLevelString("ERROR"), ShouldBeNil)
			defer func() { _ = SetLevelString("info") }()
			l.Info(ctx, "hidden")

			Convey("Then info records are dropped", func() {
				So(buf.String(), ShouldBeEmpty)
			})
		})
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Given level strings", t, func() {
		defer func() { _ = SetLevelString("info") }()

		So(SetLevelString("debug"), ShouldBeNil)
		So(SetLevelString(" warning "), ShouldBeNil)
		So(SetLevelString(""), ShouldBeNil)
		So(SetLevelString("verbose"), ShouldNotBeNil)
	})
}
