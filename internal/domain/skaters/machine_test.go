package skaters_test

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/okian/rinktime/internal/domain/anomaly"
	"github.com/okian/rinktime/internal/domain/goalie"
	"github.com/okian/rinktime/internal/domain/interval"
	"github.com/okian/rinktime/internal/domain/model"
	"github.com/okian/rinktime/internal/domain/skaters"
	"github.com/okian/rinktime/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

var regular = model.Game{ID: "g", SeasonType: model.SeasonRegular}

func pen(id string, side model.Side, duration, from int) *model.Penalty {
	return &model.Penalty{ID: id, Player: "p-" + model.PlayerID(id), Side: side, Duration: duration, From: from, To: from + duration}
}

func starters() []model.GoaltenderChange {
	return []model.GoaltenderChange{
		{Time: 0, Side: model.Home, Direction: model.DirectionIn, Player: "hg"},
		{Time: 0, Side: model.Road, Direction: model.DirectionIn, Player: "rg"},
	}
}

type run struct {
	*skaters.Result
	rec *anomaly.Recorder
}

func reconstruct(game model.Game, penalties []*model.Penalty, changes []model.GoaltenderChange, end int) run {
	ctx := context.Background()
	rec := anomaly.NewRecorder(game.ID, nil)
	idx := interval.New()
	for _, p := range penalties {
		if p.AffectsSkaters() {
			_ = idx.Insert(interval.ForPenalty(p))
		}
	}
	goalie.BuildShifts(ctx, changes, end, idx, rec)
	res := skaters.Run(ctx, skaters.Input{
		Game:      game,
		Index:     idx,
		Penalties: penalties,
		Goalies:   goalie.OnIce(idx, end),
		End:       end,
		Recorder:  rec,
		Logger:    logger.Get(),
	})
	return run{Result: res, rec: rec}
}

func counts(r run, t int) [2]int {
	s := r.Snapshots[t].Skaters
	return [2]int{s.Home, s.Road}
}

func TestSinglePenalties(t *testing.T) {
	Convey("Given a full-strength regulation game", t, func() {
		_ = logger.Init()

		Convey("When the home team takes a minor at 100", func() {
			r := reconstruct(regular, []*model.Penalty{pen("p1", model.Home, 120, 100)}, starters(), 3600)

			Convey("Then home should play with four for exactly two minutes", func() {
				So(r.Snapshots, ShouldHaveLength, 3601)
				So(counts(r, 99), ShouldEqual, [2]int{5, 5})
				So(counts(r, 100), ShouldEqual, [2]int{4, 5})
				So(counts(r, 219), ShouldEqual, [2]int{4, 5})
				So(counts(r, 220), ShouldEqual, [2]int{5, 5})
				So(counts(r, 3600), ShouldEqual, [2]int{5, 5})
			})
		})

		Convey("When the road team takes a major at 500", func() {
			r := reconstruct(regular, []*model.Penalty{pen("p1", model.Road, 300, 500)}, starters(), 3600)

			Convey("Then road should be short for five minutes only", func() {
				for s := 500; s < 800; s++ {
					So(counts(r, s), ShouldEqual, [2]int{5, 4})
				}
				So(counts(r, 499), ShouldEqual, [2]int{5, 5})
				So(counts(r, 800), ShouldEqual, [2]int{5, 5})
			})

			Convey("Then the home goaltender should stay on the ice", func() {
				for s := 0; s <= 3600; s++ {
					So(r.Snapshots[s].Goalies.Home, ShouldEqual, model.PlayerID("hg"))
				}
			})
		})

		Convey("When a delayed penalty is called before it is served", func() {
			p := pen("p1", model.Home, 120, 100)
			p.Created, p.HasCreated = 95, true
			r := reconstruct(regular, []*model.Penalty{p}, starters(), 3600)

			Convey("Then it should count from the call", func() {
				So(counts(r, 94), ShouldEqual, [2]int{5, 5})
				So(counts(r, 95), ShouldEqual, [2]int{4, 5})
				So(counts(r, 220), ShouldEqual, [2]int{5, 5})
			})
		})

		Convey("When penalties do not change skater counts", func() {
			ten := pen("misc", model.Home, 600, 100)
			shot := pen("shot", model.Road, 0, 200)
			r := reconstruct(regular, []*model.Penalty{ten, shot}, starters(), 3600)

			Convey("Then counts should stay at full strength", func() {
				for s := 0; s <= 3600; s += 50 {
					So(counts(r, s), ShouldEqual, [2]int{5, 5})
				}
			})
		})

		Convey("When a minor is cut short by a power-play goal", func() {
			p := pen("p1", model.Road, 120, 1000)
			p.To = 1045
			r := reconstruct(regular, []*model.Penalty{p}, starters(), 3600)

			Convey("Then the skater returns when the served interval ends", func() {
				So(counts(r, 1044), ShouldEqual, [2]int{5, 4})
				So(counts(r, 1045), ShouldEqual, [2]int{5, 5})
			})
		})
	})
}

func TestSimultaneousPenalties(t *testing.T) {
	Convey("Given penalties to both teams at the same second", t, func() {
		_ = logger.Init()

		Convey("When each team takes a major at full strength", func() {
			r := reconstruct(regular, []*model.Penalty{
				pen("h", model.Home, 300, 1000),
				pen("r", model.Road, 300, 1000),
			}, starters(), 3600)

			Convey("Then they should offset", func() {
				So(counts(r, 1000), ShouldEqual, [2]int{5, 5})
				So(counts(r, 1299), ShouldEqual, [2]int{5, 5})
				So(counts(r, 1300), ShouldEqual, [2]int{5, 5})
			})
		})

		Convey("When each team takes two minors at full strength", func() {
			r := reconstruct(regular, []*model.Penalty{
				pen("h1", model.Home, 120, 1000),
				pen("h2", model.Home, 120, 1000),
				pen("r1", model.Road, 120, 1000),
				pen("r2", model.Road, 120, 1000),
			}, starters(), 3600)

			Convey("Then all four should offset", func() {
				So(counts(r, 1000), ShouldEqual, [2]int{5, 5})
				So(counts(r, 1120), ShouldEqual, [2]int{5, 5})
			})
		})

		Convey("When each team takes one minor at full strength", func() {
			r := reconstruct(regular, []*model.Penalty{
				pen("h", model.Home, 120, 1000),
				pen("r", model.Road, 120, 1000),
			}, starters(), 3600)

			Convey("Then both should serve and play four on four", func() {
				So(counts(r, 999), ShouldEqual, [2]int{5, 5})
				So(counts(r, 1000), ShouldEqual, [2]int{4, 4})
				So(counts(r, 1119), ShouldEqual, [2]int{4, 4})
				So(counts(r, 1120), ShouldEqual, [2]int{5, 5})
			})
		})

		Convey("When one minor each is taken while home is already short", func() {
			r := reconstruct(regular, []*model.Penalty{
				pen("h0", model.Home, 120, 950),
				pen("h", model.Home, 120, 1000),
				pen("r", model.Road, 120, 1000),
			}, starters(), 3600)

			Convey("Then the pair should offset and keep the power play", func() {
				So(counts(r, 1000), ShouldEqual, [2]int{4, 5})
				So(counts(r, 1069), ShouldEqual, [2]int{4, 5})
				So(counts(r, 1070), ShouldEqual, [2]int{5, 5})
			})
		})

		Convey("When home takes two minors and road takes one", func() {
			long := pen("h-long", model.Home, 120, 1000)
			short := pen("h-short", model.Home, 120, 1000)
			short.To = 1060
			r := reconstruct(regular, []*model.Penalty{
				short,
				long,
				pen("r", model.Road, 120, 1000),
			}, starters(), 3600)

			Convey("Then the unmatched shorter minor should be served", func() {
				So(counts(r, 1000), ShouldEqual, [2]int{4, 5})
				So(counts(r, 1059), ShouldEqual, [2]int{4, 5})
				So(counts(r, 1060), ShouldEqual, [2]int{5, 5})
				So(counts(r, 1120), ShouldEqual, [2]int{5, 5})
			})
		})

		Convey("When majors and minors mix", func() {
			r := reconstruct(regular, []*model.Penalty{
				pen("h-major", model.Home, 300, 1000),
				pen("r-major", model.Road, 300, 1000),
				pen("r-minor", model.Road, 120, 1000),
			}, starters(), 3600)

			Convey("Then majors offset and the extra minor is served", func() {
				So(counts(r, 1000), ShouldEqual, [2]int{5, 4})
				So(counts(r, 1120), ShouldEqual, [2]int{5, 5})
				So(counts(r, 1300), ShouldEqual, [2]int{5, 5})
			})
		})

		Convey("When three penalties of one class meet one", func() {
			r := reconstruct(regular, []*model.Penalty{
				pen("h1", model.Home, 120, 1000),
				pen("h2", model.Home, 120, 1000),
				pen("h3", model.Home, 120, 1000),
				pen("r1", model.Road, 120, 1000),
			}, starters(), 3600)

			Convey("Then the combination should be approximated and flagged", func() {
				So(counts(r, 1000), ShouldEqual, [2]int{3, 5})
				So(r.rec.Count(model.AnomalyUnresolvedCombination), ShouldEqual, 1)
			})
		})
	})
}

func TestOvertime(t *testing.T) {
	Convey("Given a game that goes to overtime", t, func() {
		_ = logger.Init()

		Convey("When regular-season overtime starts at even strength", func() {
			r := reconstruct(regular, nil, starters(), 3900)

			Convey("Then play should be three on three", func() {
				So(counts(r, 3600), ShouldEqual, [2]int{5, 5})
				for s := 3601; s <= 3900; s++ {
					So(counts(r, s), ShouldEqual, [2]int{3, 3})
				}
			})
		})

		Convey("When a penalty is taken in overtime", func() {
			r := reconstruct(regular, []*model.Penalty{pen("h", model.Home, 120, 3700)}, starters(), 3900)

			Convey("Then the opponent should gain a skater until it expires", func() {
				So(counts(r, 3699), ShouldEqual, [2]int{3, 3})
				So(counts(r, 3700), ShouldEqual, [2]int{3, 4})
				So(counts(r, 3819), ShouldEqual, [2]int{3, 4})
				So(counts(r, 3820), ShouldEqual, [2]int{3, 3})
			})
		})

		Convey("When a regulation power play carries into overtime", func() {
			r := reconstruct(regular, []*model.Penalty{pen("h", model.Home, 120, 3550)}, starters(), 3900)

			Convey("Then five on four should become four on three", func() {
				So(counts(r, 3600), ShouldEqual, [2]int{4, 5})
				So(counts(r, 3601), ShouldEqual, [2]int{3, 4})
				So(counts(r, 3669), ShouldEqual, [2]int{3, 4})
				So(counts(r, 3670), ShouldEqual, [2]int{3, 3})
			})
		})

		Convey("When a playoff game goes to overtime", func() {
			playoffs := model.Game{ID: "g", SeasonType: model.SeasonPlayoffs}
			r := reconstruct(playoffs, []*model.Penalty{pen("h", model.Home, 120, 3700)}, starters(), 3900)

			Convey("Then full strength rules should continue", func() {
				So(counts(r, 3650), ShouldEqual, [2]int{5, 5})
				So(counts(r, 3700), ShouldEqual, [2]int{4, 5})
				So(counts(r, 3820), ShouldEqual, [2]int{5, 5})
			})
		})
	})
}

func TestGoaltenderPull(t *testing.T) {
	Convey("Given the road goaltender pulled at 3540", t, func() {
		_ = logger.Init()
		changes := append(starters(), model.GoaltenderChange{Time: 3540, Side: model.Road, Direction: model.DirectionOut, Player: "rg"})
		r := reconstruct(regular, nil, changes, 3600)

		Convey("Then road should gain exactly one skater while the net is empty", func() {
			So(counts(r, 3539), ShouldEqual, [2]int{5, 5})
			for s := 3540; s <= 3600; s++ {
				So(counts(r, s), ShouldEqual, [2]int{5, 6})
				So(r.Snapshots[s].Goalies.Road, ShouldEqual, model.PlayerID(""))
				So(r.Snapshots[s].Goalies.Home, ShouldEqual, model.PlayerID("hg"))
			}
		})

		Convey("Then the goaltender delta should be recorded once", func() {
			So(r.Steps[3540].Goalie.Road, ShouldEqual, 1)
			So(r.Steps[3541].Goalie.Road, ShouldEqual, 0)
		})
	})

	Convey("Given a pulled goaltender who returns", t, func() {
		_ = logger.Init()
		changes := append(starters(),
			model.GoaltenderChange{Time: 1500, Side: model.Home, Direction: model.DirectionOut, Player: "hg"},
			model.GoaltenderChange{Time: 1530, Side: model.Home, Direction: model.DirectionIn, Player: "hg"},
		)
		r := reconstruct(regular, nil, changes, 3600)

		Convey("Then the extra skater should leave when the goaltender returns", func() {
			So(counts(r, 1500), ShouldEqual, [2]int{6, 5})
			So(counts(r, 1529), ShouldEqual, [2]int{6, 5})
			So(counts(r, 1530), ShouldEqual, [2]int{5, 5})
		})
	})
}

func TestClamp(t *testing.T) {
	Convey("Given more penalties than a team can serve", t, func() {
		_ = logger.Init()
		r := reconstruct(regular, []*model.Penalty{
			pen("h1", model.Home, 120, 100),
			pen("h2", model.Home, 120, 100),
			pen("h3", model.Home, 300, 100),
		}, starters(), 3600)

		Convey("Then the reported count should stop at three", func() {
			So(counts(r, 100), ShouldEqual, [2]int{3, 5})
			So(r.Steps[100].Clamped.Home, ShouldBeTrue)
		})

		Convey("Then the clamp should be recorded once per stretch", func() {
			So(r.rec.Count(model.AnomalySkaterClamp), ShouldEqual, 1)
		})

		Convey("Then expiry should restore counts from the true state", func() {
			So(counts(r, 220), ShouldEqual, [2]int{4, 5})
			So(counts(r, 400), ShouldEqual, [2]int{5, 5})
		})
	})
}

func TestInvariants(t *testing.T) {
	Convey("Given a dense generated game", t, func() {
		_ = logger.Init()
		rng := rand.New(rand.NewSource(7))
		var penalties []*model.Penalty
		for i := 0; i < 60; i++ {
			dur := []int{120, 120, 120, 300, 600, 0}[rng.Intn(6)]
			p := pen(fmt.Sprintf("p%d", i), model.Side(rng.Intn(2)), dur, rng.Intn(3500))
			if dur > 0 && rng.Intn(4) == 0 {
				p.To = p.From + 1 + rng.Intn(dur)
			}
			penalties = append(penalties, p)
		}
		changes := append(starters(),
			model.GoaltenderChange{Time: 2000, Side: model.Home, Direction: model.DirectionOut, Player: "hg"},
			model.GoaltenderChange{Time: 2050, Side: model.Home, Direction: model.DirectionIn, Player: "hg2"},
			model.GoaltenderChange{Time: 3560, Side: model.Road, Direction: model.DirectionOut, Player: "rg"},
		)
		r := reconstruct(regular, penalties, changes, 3900)

		Convey("Then every reported count should be within bounds", func() {
			for _, snap := range r.Snapshots {
				So(snap.Skaters.Home, ShouldBeBetweenOrEqual, model.MinSkaters, model.MaxSkaters)
				So(snap.Skaters.Road, ShouldBeBetweenOrEqual, model.MinSkaters, model.MaxSkaters)
			}
		})

		Convey("Then applied deltas should account for every change", func() {
			for s := 1; s < len(r.Snapshots); s++ {
				step := r.Steps[s]
				if step.Equalized || step.Clamped.Home || step.Clamped.Road ||
					r.Steps[s-1].Clamped.Home || r.Steps[s-1].Clamped.Road {
					continue
				}
				prev, cur := r.Snapshots[s-1].Skaters, r.Snapshots[s].Skaters
				So(cur.Home-prev.Home, ShouldEqual, step.Penalty.Home+step.Goalie.Home)
				So(cur.Road-prev.Road, ShouldEqual, step.Penalty.Road+step.Goalie.Road)
			}
		})
	})
}
