package goalie

import (
	"github.com/okian/rinktime/internal/domain/interval"
	"github.com/okian/rinktime/internal/domain/model"
)

// Timeline is the per-second goaltender state of one game, seconds 0..End.
type Timeline struct {
	End           int
	Goalies       []model.Sides[model.PlayerID]
	ExtraAttacker []model.Sides[bool]
}

// At returns the goaltenders and extra-attacker flags at second t.
// Seconds outside the game report no goaltender.
func (tl *Timeline) At(t int) (model.Sides[model.PlayerID], model.Sides[bool]) {
	if t < 0 || t >= len(tl.Goalies) {
		return model.Sides[model.PlayerID]{}, model.Sides[bool]{Home: true, Road: true}
	}
	return tl.Goalies[t], tl.ExtraAttacker[t]
}

// OnIce derives the goaltender on the ice for every second 0..end from the
// shifts stored in idx. A side without an active shift has an extra
// attacker.
func OnIce(idx *interval.Index, end int) *Timeline {
	if end < 0 {
		end = 0
	}
	tl := &Timeline{
		End:           end,
		Goalies:       make([]model.Sides[model.PlayerID], end+1),
		ExtraAttacker: make([]model.Sides[bool], end+1),
	}

	for t := 0; t <= end; t++ {
		for _, side := range []model.Side{model.Home, model.Road} {
			s := shiftFor(idx, side, t, end)
			if s == nil {
				tl.ExtraAttacker[t].Set(side, true)
				continue
			}
			tl.Goalies[t].Set(side, s.Player)
		}
	}
	return tl
}

// activeShifts returns each side's shift containing t. When malformed data
// leaves two shifts active for one side, the later-starting one wins.
func activeShifts(idx *interval.Index, t int) model.Sides[*model.GoaltenderShift] {
	var out model.Sides[*model.GoaltenderShift]
	for _, iv := range idx.ActiveAt(t) {
		switch iv.Kind {
		case interval.KindShift:
			out.Set(iv.Shift.Side, iv.Shift)
		case interval.KindPenalty:
		}
	}
	return out
}

// shiftFor returns side's shift on ice at t in a game ending at end.
// Shifts open on their entry second, so second 0 falls back to the shift
// active just after the opening faceoff. Synthetic shifts close exactly at
// end, so the final second uses the one before it.
func shiftFor(idx *interval.Index, side model.Side, t, end int) *model.GoaltenderShift {
	s := activeShifts(idx, t).Get(side)
	switch {
	case s != nil || end <= 0:
	case t == 0:
		s = activeShifts(idx, 1).Get(side)
	case t == end:
		s = activeShifts(idx, end-1).Get(side)
	}
	return s
}

// ShiftAt returns the goaltender shift on ice for side at t in a game
// ending at end, with the same boundary handling as OnIce.
func ShiftAt(idx *interval.Index, side model.Side, t, end int) (model.GoaltenderShift, bool) {
	s := shiftFor(idx, side, t, end)
	if s == nil {
		return model.GoaltenderShift{}, false
	}
	return *s, true
}
