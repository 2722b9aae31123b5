package engine_test

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/rinktime/internal/domain/engine"
	"github.com/okian/rinktime/internal/domain/ingest"
	"github.com/okian/rinktime/internal/domain/model"
	"github.com/okian/rinktime/internal/domain/strength"
	"github.com/okian/rinktime/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

const majorGame = `{
  "game": {"id": "g-major", "season": "2024", "season_type": "regular",
           "home": {"id": "1", "name": "Home"}, "road": {"id": "2", "name": "Road"}},
  "periods": {
    "1": [
      {"type": "goalkeeper_change", "time": 0, "data": {"team": "home", "in": "hg"}},
      {"type": "goalkeeper_change", "time": 0, "data": {"team": "road", "in": "rg"}},
      {"type": "penalty", "time": 500, "data": {"id": "m1", "team": "road", "player_id": "44", "infraction": "BOARD", "duration": 300}},
      {"type": "goal", "time": 650, "data": {"team": "home", "scorer": "97", "balance": "PP"}},
      {"type": "penalty", "time": 700, "data": {"id": "ps", "team": "home", "player_id": "3", "infraction": "PSHOT", "duration": 0}}
    ],
    "2": [],
    "3": [
      {"type": "goal", "time": 3000, "data": {"team": "road", "scorer": "19", "balance": "EV"}},
      {"type": "goal", "time": 3300, "data": {"team": "home", "scorer": "29", "balance": "EV"}}
    ]
  }
}`

func parse(data string) *ingest.Log {
	log, err := ingest.NewParser().Parse(context.Background(), []byte(data))
	So(err, ShouldBeNil)
	return log
}

func TestReconstruct(t *testing.T) {
	Convey("Given a game with a road major at 500", t, func() {
		_ = logger.Init()
		ctx := context.Background()
		e := engine.New()

		res, err := e.Reconstruct(ctx, parse(majorGame))
		So(err, ShouldBeNil)

		Convey("Then every second of regulation should be reconstructed", func() {
			So(res.End, ShouldEqual, 3600)
			So(res.Snapshots, ShouldHaveLength, 3601)
			So(res.ExtraAttacker, ShouldHaveLength, 3601)
		})

		Convey("Then road should be short exactly during the major", func() {
			for t := 0; t <= 3600; t++ {
				snap, ok := res.At(t)
				So(ok, ShouldBeTrue)
				want := model.Sides[int]{Home: 5, Road: 5}
				if t >= 500 && t < 800 {
					want.Road = 4
				}
				So(snap.Skaters, ShouldResemble, want)
				So(snap.Goalies.Home, ShouldEqual, model.PlayerID("hg"))
			}
		})

		Convey("Then goals should be classified by strength", func() {
			So(res.Goals, ShouldHaveLength, 3)
			So(res.Goals[0].Strength, ShouldEqual, "5v4")
			So(res.Goals[0].GoalieAgainst, ShouldEqual, model.PlayerID("rg"))
			So(res.Goals[2].GameWinning, ShouldBeTrue)
			s, ok := res.Strength(650, model.Road)
			So(ok, ShouldBeTrue)
			So(s, ShouldEqual, "4v5")
		})

		Convey("Then the balance map should be keyed by goal time", func() {
			So(res.GoalBalance, ShouldResemble, map[int]string{650: "PP", 3000: "EV", 3300: "EV"})
		})

		Convey("Then the penalty shot should stay out of the index", func() {
			So(res.Index.Len(), ShouldEqual, 3)
			So(res.Shifts, ShouldHaveLength, 2)
			So(res.Anomalies, ShouldBeEmpty)
		})

		Convey("Then out-of-range lookups should fail softly", func() {
			_, ok := res.At(3601)
			So(ok, ShouldBeFalse)
			_, ok = res.Strength(-1, model.Home)
			So(ok, ShouldBeFalse)
		})
	})
}

func TestReconstructOvertime(t *testing.T) {
	Convey("Given a regular-season game decided in overtime", t, func() {
		_ = logger.Init()
		data := `{
		  "game": {"id": "g-ot", "season_type": "regular"},
		  "periods": {
		    "1": [
		      {"type": "goalkeeper_change", "time": 0, "data": {"team": "home", "in": "hg"}},
		      {"type": "goalkeeper_change", "time": 0, "data": {"team": "road", "in": "rg"}}
		    ],
		    "2": [], "3": [],
		    "overtime": [
		      {"type": "penalty", "time": 3650, "data": {"id": "ot1", "team": "road", "player_id": "8", "infraction": "TRIP", "duration": 120, "to": 3700}},
		      {"type": "goal", "time": 3700, "data": {"team": "home", "balance": "PP"}}
		    ]
		  }
		}`
		res, err := engine.New().Reconstruct(context.Background(), parse(data))
		So(err, ShouldBeNil)

		Convey("Then the game should end on the overtime goal", func() {
			So(res.End, ShouldEqual, 3700)
			So(res.Snapshots, ShouldHaveLength, 3701)
		})

		Convey("Then overtime should be three on three with a power-play skater", func() {
			snap, _ := res.At(3601)
			So(snap.Skaters, ShouldResemble, model.Sides[int]{Home: 3, Road: 3})
			snap, _ = res.At(3650)
			So(snap.Skaters, ShouldResemble, model.Sides[int]{Home: 4, Road: 3})
		})

		Convey("Then the final second should keep both goaltenders", func() {
			snap, _ := res.At(3700)
			So(snap.Goalies.Home, ShouldEqual, model.PlayerID("hg"))
			So(res.ExtraAttacker[3700].Road, ShouldBeFalse)
		})

		Convey("Then the winner should face the road goaltender on the power play it ended", func() {
			So(res.Goals, ShouldHaveLength, 1)
			g := res.Goals[0]
			So(g.Time, ShouldEqual, 3700)
			So(g.GoalieAgainst, ShouldEqual, model.PlayerID("rg"))
			So(g.EmptyNet, ShouldBeFalse)
			So(g.GameWinning, ShouldBeTrue)
			So(g.Strength, ShouldEqual, "4v3")
			So(g.Situation, ShouldEqual, "PP")
			So(strength.GoaltenderOfRecord(res.Index, g.Time, res.End).Road, ShouldEqual, model.PlayerID("rg"))
		})
	})
}

func TestReconstructErrors(t *testing.T) {
	Convey("Given unusable input", t, func() {
		_ = logger.Init()
		e := engine.New()

		Convey("When the log is nil", func() {
			_, err := e.Reconstruct(context.Background(), nil)
			So(errors.Is(err, ingest.ErrMalformedLog), ShouldBeTrue)
		})

		Convey("When the log has no period end", func() {
			_, err := e.Reconstruct(context.Background(), &ingest.Log{Game: model.Game{ID: "x"}})
			So(errors.Is(err, ingest.ErrMalformedLog), ShouldBeTrue)
		})

		Convey("When the context is already cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := e.Reconstruct(ctx, &ingest.Log{PeriodEnds: []int{3600}})
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})
}
