// Package interval indexes half-open time intervals for point and range queries.
package interval

import (
	"fmt"

	"github.com/okian/rinktime/internal/domain/model"
)

// Kind tags the payload an interval carries.
type Kind int

const (
	KindPenalty Kind = iota + 1
	KindShift
)

func (k Kind) String() string {
	switch k {
	case KindPenalty:
		return "penalty"
	case KindShift:
		return "shift"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Interval is the half-open stretch [From, To) of scoreboard seconds.
// Exactly one of Penalty or Shift is set, matching Kind.
type Interval struct {
	ID      string
	From    int
	To      int
	Kind    Kind
	Penalty *model.Penalty
	Shift   *model.GoaltenderShift
}

// ForPenalty builds the interval a penalty changes skater counts over.
// It opens when the penalty takes effect, which may be its call time.
func ForPenalty(p *model.Penalty) Interval {
	return Interval{
		ID:      "penalty:" + p.ID,
		From:    p.Start(),
		To:      p.To,
		Kind:    KindPenalty,
		Penalty: p,
	}
}

// ForShift builds the interval of a goaltender shift.
func ForShift(s *model.GoaltenderShift) Interval {
	return Interval{
		ID:    "shift:" + s.ID,
		From:  s.From,
		To:    s.To,
		Kind:  KindShift,
		Shift: s,
	}
}

// Contains reports whether t lies in [From, To).
func (iv Interval) Contains(t int) bool { return iv.From <= t && t < iv.To }

// Overlaps reports whether iv shares at least one second with [lo, hi).
func (iv Interval) Overlaps(lo, hi int) bool { return iv.From < hi && lo < iv.To }

// Len is the number of seconds covered.
func (iv Interval) Len() int { return iv.To - iv.From }

func (iv Interval) validate() error {
	if iv.From >= iv.To {
		return fmt.Errorf("%w: %s [%d,%d)", ErrEmptyInterval, iv.ID, iv.From, iv.To)
	}
	switch iv.Kind {
	case KindPenalty:
		if iv.Penalty == nil {
			return fmt.Errorf("%w: %s", ErrNoPayload, iv.ID)
		}
	case KindShift:
		if iv.Shift == nil {
			return fmt.Errorf("%w: %s", ErrNoPayload, iv.ID)
		}
	default:
		return fmt.Errorf("%w: %s has %s", ErrNoPayload, iv.ID, iv.Kind)
	}
	return nil
}
