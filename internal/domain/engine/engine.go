// Package engine runs the whole reconstruction of one game: it indexes
// penalties, derives goaltender shifts and on-ice goaltenders, walks the
// skater-count state machine and classifies goals.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/rinktime/internal/domain/anomaly"
	"github.com/okian/rinktime/internal/domain/goalie"
	"github.com/okian/rinktime/internal/domain/ingest"
	"github.com/okian/rinktime/internal/domain/interval"
	"github.com/okian/rinktime/internal/domain/model"
	"github.com/okian/rinktime/internal/domain/skaters"
	"github.com/okian/rinktime/internal/domain/strength"
	"github.com/okian/rinktime/pkg/logger"
	"github.com/okian/rinktime/pkg/metrics"
)

// Result is the reconstructed state of one game.
type Result struct {
	Game model.Game
	// End is the last reconstructed second.
	End           int
	Snapshots     []model.SkaterSnapshot
	ExtraAttacker []model.Sides[bool]
	Shifts        []model.GoaltenderShift
	Goals         []strength.ClassifiedGoal
	// GoalBalance maps goal seconds to their balance code.
	GoalBalance map[int]string
	Anomalies   []model.Anomaly
	// Index holds every penalty and shift interval; read-only after Reconstruct.
	Index *interval.Index
}

// At returns the snapshot for second t.
func (r *Result) At(t int) (model.SkaterSnapshot, bool) {
	if t < 0 || t >= len(r.Snapshots) {
		return model.SkaterSnapshot{}, false
	}
	return r.Snapshots[t], true
}

// Strength returns side's "XvY" notation at t.
func (r *Result) Strength(t int, side model.Side) (string, bool) {
	snap, ok := r.At(t)
	if !ok {
		return "", false
	}
	return strength.Notation(snap, side), true
}

// Engine reconstructs games. It keeps no per-game state, so one Engine can
// serve many goroutines.
type Engine struct {
	logger logger.Logger
}

// New creates an engine with configuration options.
func New(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logger.Get().Named("engine")
	}
	return e
}

// Reconstruct produces a snapshot for every second 0..log.End().
func (e *Engine) Reconstruct(ctx context.Context, log *ingest.Log) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if log == nil {
		return nil, fmt.Errorf("%w: nil log", ingest.ErrMalformedLog)
	}
	end := log.End()
	if end <= 0 {
		metrics.RecordGameFailed()
		return nil, fmt.Errorf("%w: game %s has no period end", ingest.ErrMalformedLog, log.Game.ID)
	}

	start := time.Now()
	lg := e.logger.With(logger.String("game_id", log.Game.ID))
	rec := anomaly.NewRecorder(log.Game.ID, lg)
	idx := interval.New()

	for _, p := range log.Penalties {
		if !p.AffectsSkaters() {
			continue
		}
		iv := interval.ForPenalty(p)
		if err := idx.Insert(iv); err != nil {
			rec.Record(ctx, model.AnomalyEmptyPenalty, p.From, "penalty %s: %v", p.ID, err)
		}
	}

	shifts := goalie.BuildShifts(ctx, log.Changes, end, idx, rec)
	timeline := goalie.OnIce(idx, end)
	walk := skaters.Run(ctx, skaters.Input{
		Game:      log.Game,
		Index:     idx,
		Penalties: log.Penalties,
		Goalies:   timeline,
		End:       end,
		Recorder:  rec,
		Logger:    lg,
	})

	res := &Result{
		Game:          log.Game,
		End:           end,
		Snapshots:     walk.Snapshots,
		ExtraAttacker: timeline.ExtraAttacker,
		Shifts:        shifts,
		Goals:         strength.ClassifyGoals(walk.Snapshots, idx, log.Goals),
		GoalBalance:   strength.BalanceByTime(ctx, log.Goals, rec),
		Index:         idx,
	}
	res.Anomalies = append(append(res.Anomalies, log.Anomalies...), rec.Anomalies()...)

	latency := time.Since(start)
	metrics.RecordGameReconstructed()
	metrics.RecordSecondsReconstructed(len(res.Snapshots))
	metrics.RecordReconstructionLatency(float64(latency.Milliseconds()))

	lg.Info(ctx, "game reconstructed",
		logger.Int("end", end),
		logger.Int("penalties", idx.Count(interval.KindPenalty)),
		logger.Int("shifts", len(shifts)),
		logger.Int("goals", len(res.Goals)),
		logger.Int("anomalies", len(res.Anomalies)),
		logger.Float64("latency_ms", float64(latency.Microseconds())/1000),
	)
	return res, nil
}
