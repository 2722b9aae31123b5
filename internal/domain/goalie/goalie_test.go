package goalie_test

import (
	"context"
	"testing"

	"github.com/okian/rinktime/internal/domain/anomaly"
	"github.com/okian/rinktime/internal/domain/goalie"
	"github.com/okian/rinktime/internal/domain/interval"
	"github.com/okian/rinktime/internal/domain/model"
	"github.com/okian/rinktime/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func in(t int, side model.Side, p string) model.GoaltenderChange {
	return model.GoaltenderChange{Time: t, Side: side, Direction: model.DirectionIn, Player: model.PlayerID(p)}
}

func out(t int, side model.Side, p string) model.GoaltenderChange {
	return model.GoaltenderChange{Time: t, Side: side, Direction: model.DirectionOut, Player: model.PlayerID(p)}
}

func TestBuildShifts(t *testing.T) {
	Convey("Given goaltender changes for both teams", t, func() {
		_ = logger.Init()
		ctx := context.Background()
		rec := anomaly.NewRecorder("g", nil)
		idx := interval.New()

		changes := []model.GoaltenderChange{
			in(0, model.Home, "h1"),
			in(0, model.Road, "r1"),
			out(1800, model.Road, "r1"),
			in(1800, model.Road, "r2"),
			out(3540, model.Home, "h1"),
		}

		Convey("When shifts are built", func() {
			shifts := goalie.BuildShifts(ctx, changes, 3600, idx, rec)

			Convey("Then changes should pair in recorded order per side", func() {
				So(shifts, ShouldHaveLength, 3)
				So(shifts[0], ShouldResemble, model.GoaltenderShift{ID: "home-1", Side: model.Home, Player: "h1", From: 0, To: 3540})
				So(shifts[1], ShouldResemble, model.GoaltenderShift{ID: "road-1", Side: model.Road, Player: "r1", From: 0, To: 1800})
			})

			Convey("Then a trailing entry should close at game end", func() {
				So(shifts[2].Player, ShouldEqual, model.PlayerID("r2"))
				So(shifts[2].From, ShouldEqual, 1800)
				So(shifts[2].To, ShouldEqual, 3600)
			})

			Convey("Then every shift should be indexed", func() {
				So(idx.Count(interval.KindShift), ShouldEqual, 3)
				So(rec.Anomalies(), ShouldBeEmpty)
			})
		})

		Convey("When a pair enters and leaves at the same second", func() {
			shifts := goalie.BuildShifts(ctx, []model.GoaltenderChange{
				in(0, model.Home, "h1"),
				out(0, model.Home, "h1"),
				in(0, model.Home, "h2"),
			}, 3600, idx, rec)

			Convey("Then the degenerate shift should be dropped", func() {
				So(shifts, ShouldHaveLength, 1)
				So(shifts[0].Player, ShouldEqual, model.PlayerID("h2"))
				So(rec.Count(model.AnomalyDegenerateShift), ShouldEqual, 1)
			})
		})

		Convey("When the log records unpaired directions", func() {
			shifts := goalie.BuildShifts(ctx, []model.GoaltenderChange{
				out(0, model.Home, "ghost"),
				in(10, model.Home, "h1"),
				in(1200, model.Home, "h2"),
				out(2400, model.Home, "h2"),
			}, 3600, idx, rec)

			Convey("Then pairing should realign and record each problem", func() {
				So(shifts, ShouldHaveLength, 2)
				So(shifts[0].To, ShouldEqual, 1200)
				So(shifts[1].From, ShouldEqual, 1200)
				So(shifts[1].To, ShouldEqual, 2400)
				So(rec.Count(model.AnomalyUnmatchedGoaltender), ShouldEqual, 2)
			})
		})
	})
}

func TestOnIce(t *testing.T) {
	Convey("Given indexed shifts with a late goaltender pull", t, func() {
		_ = logger.Init()
		ctx := context.Background()
		idx := interval.New()
		goalie.BuildShifts(ctx, []model.GoaltenderChange{
			in(0, model.Home, "h1"),
			in(1, model.Road, "r1"),
			out(3540, model.Road, "r1"),
		}, 3600, idx, nil)

		tl := goalie.OnIce(idx, 3600)

		Convey("Then one entry should exist per second", func() {
			So(tl.Goalies, ShouldHaveLength, 3601)
			So(tl.ExtraAttacker, ShouldHaveLength, 3601)
		})

		Convey("Then second 0 should see the goaltender entering just after it", func() {
			g, ea := tl.At(0)
			So(g.Home, ShouldEqual, model.PlayerID("h1"))
			So(g.Road, ShouldEqual, model.PlayerID("r1"))
			So(ea.Road, ShouldBeFalse)
		})

		Convey("Then a pulled goaltender should leave an extra attacker", func() {
			g, ea := tl.At(3545)
			So(g.Road, ShouldEqual, model.PlayerID(""))
			So(ea.Road, ShouldBeTrue)
			So(ea.Home, ShouldBeFalse)
		})

		Convey("Then the final second should keep the goaltender of a synthetic shift", func() {
			g, ea := tl.At(3600)
			So(g.Home, ShouldEqual, model.PlayerID("h1"))
			So(ea.Home, ShouldBeFalse)
			So(ea.Road, ShouldBeTrue)
		})

		Convey("Then seconds outside the game should report nobody", func() {
			g, ea := tl.At(5000)
			So(g.Home, ShouldEqual, model.PlayerID(""))
			So(ea.Home, ShouldBeTrue)
		})

		Convey("Then ShiftAt should report the shift on ice", func() {
			s, ok := goalie.ShiftAt(idx, model.Home, 1000, 3600)
			So(ok, ShouldBeTrue)
			So(s.Player, ShouldEqual, model.PlayerID("h1"))

			_, ok = goalie.ShiftAt(idx, model.Road, 3550, 3600)
			So(ok, ShouldBeFalse)
		})

		Convey("Then ShiftAt should agree with the timeline at both ends of the game", func() {
			for _, t := range []int{0, 3600} {
				g, _ := tl.At(t)
				for _, side := range []model.Side{model.Home, model.Road} {
					s, ok := goalie.ShiftAt(idx, side, t, 3600)
					So(ok, ShouldEqual, g.Get(side) != "")
					So(s.Player, ShouldEqual, g.Get(side))
				}
			}
			s, ok := goalie.ShiftAt(idx, model.Home, 3600, 3600)
			So(ok, ShouldBeTrue)
			So(s.Player, ShouldEqual, model.PlayerID("h1"))
		})
	})
}
