// Package strength answers the questions collaborators ask of a
// reconstructed game: the skater situation at a moment, which goaltender
// was in net, and which goal decided the game.
package strength

import (
	"context"
	"fmt"
	"sort"

	"github.com/okian/rinktime/internal/domain/anomaly"
	"github.com/okian/rinktime/internal/domain/goalie"
	"github.com/okian/rinktime/internal/domain/interval"
	"github.com/okian/rinktime/internal/domain/model"
)

// Situation names of a strength relative to one team.
const (
	EvenStrength = "EV"
	PowerPlay    = "PP"
	Shorthanded  = "SH"
)

// Notation renders the skaters for side against its opponent, e.g. "5v4".
func Notation(snap model.SkaterSnapshot, side model.Side) string {
	return fmt.Sprintf("%dv%d", snap.Skaters.Get(side), snap.Skaters.Get(side.Other()))
}

// Situation classifies the snapshot from side's point of view.
func Situation(snap model.SkaterSnapshot, side model.Side) string {
	own, opp := snap.Skaters.Get(side), snap.Skaters.Get(side.Other())
	switch {
	case own > opp:
		return PowerPlay
	case own < opp:
		return Shorthanded
	default:
		return EvenStrength
	}
}

// GoaltenderOfRecord returns the goaltender of each side whose shift is
// on ice at t in a game ending at end. A side with an empty net reports
// no player.
func GoaltenderOfRecord(idx *interval.Index, t, end int) model.Sides[model.PlayerID] {
	var out model.Sides[model.PlayerID]
	for _, side := range []model.Side{model.Home, model.Road} {
		if s, ok := goalie.ShiftAt(idx, side, t, end); ok {
			out.Set(side, s.Player)
		}
	}
	return out
}

// Score tallies non-shootout goals per side.
func Score(goals []model.Goal) model.Sides[int] {
	var out model.Sides[int]
	for _, g := range goals {
		if g.Shootout {
			continue
		}
		out.Set(g.Side, out.Get(g.Side)+1)
	}
	return out
}

// GameWinningGoal returns the winner's goal that put it one ahead of the
// loser's final tally. Tied games and games decided by shootout have none.
func GameWinningGoal(goals []model.Goal) (model.Goal, bool) {
	score := Score(goals)
	if score.Home == score.Road {
		return model.Goal{}, false
	}
	winner := model.Home
	if score.Road > score.Home {
		winner = model.Road
	}
	need := score.Get(winner.Other()) + 1

	ordered := make([]model.Goal, 0, len(goals))
	for _, g := range goals {
		if !g.Shootout && g.Side == winner {
			ordered = append(ordered, g)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Time < ordered[j].Time })
	if need > len(ordered) {
		return model.Goal{}, false
	}
	return ordered[need-1], true
}

// ClassifiedGoal is a goal with the on-ice situation it was scored in.
type ClassifiedGoal struct {
	Time          int            `json:"t"`
	Period        string         `json:"period"`
	Side          string         `json:"side"`
	Scorer        model.PlayerID `json:"scorer,omitempty"`
	Balance       string         `json:"balance,omitempty"`
	Strength      string         `json:"strength"`
	Situation     string         `json:"situation"`
	GoalieAgainst model.PlayerID `json:"goalie_against,omitempty"`
	EmptyNet      bool           `json:"empty_net"`
	GameWinning   bool           `json:"game_winning"`
}

// PlayedAt is the second whose on-ice state a goal logged at t was scored
// in. Intervals close on the goal's own second, so a minor ended by the
// goal or a goaltender pulled after it has already changed state at t.
func PlayedAt(t int) int {
	if t > 0 {
		return t - 1
	}
	return t
}

// ClassifyGoals attaches strength and goaltender of record to every
// non-shootout goal whose second is covered by snapshots. Each goal is
// read against the state it was played in, see PlayedAt.
func ClassifyGoals(snapshots []model.SkaterSnapshot, idx *interval.Index, goals []model.Goal) []ClassifiedGoal {
	gwg, hasGWG := GameWinningGoal(goals)
	end := len(snapshots) - 1
	out := make([]ClassifiedGoal, 0, len(goals))
	for _, g := range goals {
		if g.Shootout || g.Time < 0 || g.Time > end {
			continue
		}
		at := PlayedAt(g.Time)
		snap := snapshots[at]
		against := GoaltenderOfRecord(idx, at, end).Get(g.Side.Other())
		out = append(out, ClassifiedGoal{
			Time:          g.Time,
			Period:        g.Period,
			Side:          g.Side.String(),
			Scorer:        g.Scorer,
			Balance:       g.Balance,
			Strength:      Notation(snap, g.Side),
			Situation:     Situation(snap, g.Side),
			GoalieAgainst: against,
			EmptyNet:      against == "",
			GameWinning:   hasGWG && g == gwg,
		})
	}
	return out
}

// BalanceByTime maps each non-shootout goal second to its balance code.
// When two goals share a second the later one in the log wins.
func BalanceByTime(ctx context.Context, goals []model.Goal, rec *anomaly.Recorder) map[int]string {
	out := make(map[int]string, len(goals))
	for _, g := range goals {
		if g.Shootout {
			continue
		}
		if prev, ok := out[g.Time]; ok {
			rec.Record(ctx, model.AnomalyDuplicateGoalTime, g.Time, "balance %q replaced by %q", prev, g.Balance)
		}
		out[g.Time] = g.Balance
	}
	return out
}
