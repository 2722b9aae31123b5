// Package anomaly records data problems that reconstruction recovers from
// locally: each one is logged, counted and kept for the caller.
package anomaly

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/rinktime/internal/domain/model"
	"github.com/okian/rinktime/pkg/logger"
	"github.com/okian/rinktime/pkg/metrics"
)

// Recorder collects anomalies for one game.
type Recorder struct {
	mu     sync.Mutex
	gameID string
	log    logger.Logger
	items  []model.Anomaly
}

// NewRecorder creates a recorder for gameID. A nil log disables logging.
func NewRecorder(gameID string, log logger.Logger) *Recorder {
	return &Recorder{gameID: gameID, log: log}
}

// Record logs and stores an anomaly at second t.
func (r *Recorder) Record(ctx context.Context, kind model.AnomalyKind, t int, format string, args ...any) {
	if r == nil {
		return
	}
	detail := fmt.Sprintf(format, args...)
	metrics.RecordAnomaly(string(kind))
	if r.log != nil {
		r.log.Warn(ctx, "recovered data anomaly",
			logger.String("game_id", r.gameID),
			logger.String("kind", string(kind)),
			logger.Int("t", t),
			logger.String("detail", detail),
		)
	}

	r.mu.Lock()
	r.items = append(r.items, model.Anomaly{Kind: kind, Time: t, Detail: detail})
	r.mu.Unlock()
}

// Anomalies returns a copy of everything recorded so far.
func (r *Recorder) Anomalies() []model.Anomaly {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Anomaly, len(r.items))
	copy(out, r.items)
	return out
}

// Count returns the number of anomalies of kind.
func (r *Recorder) Count(kind model.AnomalyKind) int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, a := range r.items {
		if a.Kind == kind {
			n++
		}
	}
	return n
}
