// Package goalie derives goaltender shifts from raw changes and, from those
// shifts, which goaltender is on the ice at every second.
package goalie

import (
	"context"
	"fmt"

	"github.com/okian/rinktime/internal/domain/anomaly"
	"github.com/okian/rinktime/internal/domain/interval"
	"github.com/okian/rinktime/internal/domain/model"
)

// BuildShifts pairs each side's changes in recorded order into shifts and
// inserts them into idx. A trailing unmatched "in" is closed at end.
// Zero-length shifts are discarded. Shifts are returned home first, each
// side in time order.
func BuildShifts(ctx context.Context, changes []model.GoaltenderChange, end int, idx *interval.Index, rec *anomaly.Recorder) []model.GoaltenderShift {
	var perSide model.Sides[[]model.GoaltenderChange]
	for _, ch := range changes {
		perSide.Set(ch.Side, append(perSide.Get(ch.Side), ch))
	}

	out := make([]model.GoaltenderShift, 0, len(changes)/2+2)
	for _, side := range []model.Side{model.Home, model.Road} {
		shifts := pair(ctx, side, perSide.Get(side), end, rec)
		for i := range shifts {
			if i > 0 && shifts[i-1].To > shifts[i].From {
				rec.Record(ctx, model.AnomalyOverlappingShifts, shifts[i].From,
					"%s shifts %s and %s overlap", side, shifts[i-1].ID, shifts[i].ID)
			}
			s := shifts[i]
			if err := idx.Insert(interval.ForShift(&s)); err != nil {
				rec.Record(ctx, model.AnomalyDegenerateShift, s.From, "%v", err)
				continue
			}
			out = append(out, s)
		}
	}
	return out
}

// pair walks one side's changes two at a time.
func pair(ctx context.Context, side model.Side, changes []model.GoaltenderChange, end int, rec *anomaly.Recorder) []model.GoaltenderShift {
	shifts := make([]model.GoaltenderShift, 0, len(changes)/2+1)
	emit := func(in model.GoaltenderChange, to int) {
		id := fmt.Sprintf("%s-%d", side, len(shifts)+1)
		if to <= in.Time {
			rec.Record(ctx, model.AnomalyDegenerateShift, in.Time,
				"%s goaltender %s in at %d, out at %d", side, in.Player, in.Time, to)
			return
		}
		shifts = append(shifts, model.GoaltenderShift{
			ID:     id,
			Side:   side,
			Player: in.Player,
			From:   in.Time,
			To:     to,
		})
	}

	for i := 0; i < len(changes); {
		in := changes[i]
		if in.Direction != model.DirectionIn {
			rec.Record(ctx, model.AnomalyUnmatchedGoaltender, in.Time,
				"%s goaltender %s out without a shift", side, in.Player)
			i++
			continue
		}
		if i+1 == len(changes) {
			emit(in, end)
			break
		}
		next := changes[i+1]
		if next.Direction != model.DirectionOut {
			// The next entry implies this goaltender left; restart pairing from it.
			rec.Record(ctx, model.AnomalyUnmatchedGoaltender, next.Time,
				"%s goaltender %s in while %s on ice", side, next.Player, in.Player)
			emit(in, next.Time)
			i++
			continue
		}
		emit(in, next.Time)
		i += 2
	}
	return shifts
}
