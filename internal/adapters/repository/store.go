// Package repository persists reconstructed games and answers
// per-second lookups from stored strength segments.
package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/okian/rinktime/internal/domain/engine"
	"github.com/okian/rinktime/internal/domain/model"
	"github.com/okian/rinktime/internal/domain/strength"
)

// GameSummary describes a stored game.
type GameSummary struct {
	ID         string           `json:"id"`
	Season     string           `json:"season,omitempty"`
	SeasonType model.SeasonType `json:"season_type"`
	Home       string           `json:"home,omitempty"`
	Road       string           `json:"road,omitempty"`
	// End is the last reconstructed second.
	End       int `json:"end"`
	Segments  int `json:"segments"`
	Goals     int `json:"goals"`
	Anomalies int `json:"anomalies"`
}

// Store provides read/write access to reconstructed games.
type Store interface {
	// Save stores res, replacing any earlier reconstruction of the same game.
	Save(ctx context.Context, res *engine.Result) error

	// Game returns the summary of a stored game or ErrNotFound.
	Game(ctx context.Context, gameID string) (GameSummary, error)

	// Snapshots returns one snapshot per second in [from, to].
	// Returns ErrOutOfRange if the range is not inside [0, End].
	Snapshots(ctx context.Context, gameID string, from, to int) ([]model.SkaterSnapshot, error)

	// Snapshot returns the state at second t.
	Snapshot(ctx context.Context, gameID string, t int) (model.SkaterSnapshot, error)

	// Goals returns the classified goals of a game in log order.
	Goals(ctx context.Context, gameID string) ([]strength.ClassifiedGoal, error)

	// Count returns the number of stored games.
	Count(ctx context.Context) int

	Close() error
}

// record is the stored form of one game.
type record struct {
	summary  GameSummary
	segments []model.Segment
	goals    []strength.ClassifiedGoal
}

func newRecord(res *engine.Result) *record {
	segs := model.Compress(res.Snapshots)
	goals := append([]strength.ClassifiedGoal(nil), res.Goals...)
	return &record{
		summary: GameSummary{
			ID:         res.Game.ID,
			Season:     res.Game.Season,
			SeasonType: res.Game.SeasonType,
			Home:       res.Game.Teams.Home.Name,
			Road:       res.Game.Teams.Road.Name,
			End:        res.End,
			Segments:   len(segs),
			Goals:      len(goals),
			Anomalies:  len(res.Anomalies),
		},
		segments: segs,
		goals:    goals,
	}
}

func checkRange(end, from, to int) error {
	if from < 0 || to > end || from > to {
		return fmt.Errorf("%w: [%d, %d] not within [0, %d]", ErrOutOfRange, from, to, end)
	}
	return nil
}

// segmentAt finds the segment covering t in segments ordered by From.
func segmentAt(segments []model.Segment, t int) (model.Segment, bool) {
	i := sort.Search(len(segments), func(i int) bool { return segments[i].To > t })
	if i == len(segments) || !segments[i].Contains(t) {
		return model.Segment{}, false
	}
	return segments[i], true
}

func validateResult(res *engine.Result) error {
	if res == nil || res.Game.ID == "" {
		return fmt.Errorf("save: result has no game id")
	}
	return nil
}
