package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/rinktime/internal/domain/engine"
	"github.com/okian/rinktime/internal/domain/model"
	"github.com/okian/rinktime/internal/domain/strength"
	"github.com/okian/rinktime/pkg/metrics"
)

// MemoryStore keeps reconstructed games in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	games map[string]*record

	metricsUpdateInterval time.Duration
	stopChan              chan struct{}
	stopOnce              sync.Once
	wg                    sync.WaitGroup
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore constructs a memory store. The background metrics updater
// runs until ctx is done or Close is called.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		games:                 make(map[string]*record),
		metricsUpdateInterval: 5 * time.Second,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.startMetricsUpdater(ctx)
	return s
}

// Close stops the background metrics updater.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

func (s *MemoryStore) Save(ctx context.Context, res *engine.Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateResult(res); err != nil {
		return err
	}
	start := time.Now()
	rec := newRecord(res)

	s.mu.Lock()
	s.games[rec.summary.ID] = rec
	n := len(s.games)
	s.mu.Unlock()

	metrics.UpdateStoreGames(n)
	metrics.RecordStoreSaveLatency(float64(time.Since(start).Milliseconds()))
	return nil
}

func (s *MemoryStore) get(gameID string) (*record, error) {
	s.mu.RLock()
	rec, ok := s.games[gameID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, gameID)
	}
	return rec, nil
}

func (s *MemoryStore) Game(_ context.Context, gameID string) (GameSummary, error) {
	rec, err := s.get(gameID)
	if err != nil {
		return GameSummary{}, err
	}
	return rec.summary, nil
}

func (s *MemoryStore) Snapshots(_ context.Context, gameID string, from, to int) ([]model.SkaterSnapshot, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreQueryLatency(float64(time.Since(start).Milliseconds())) }()

	rec, err := s.get(gameID)
	if err != nil {
		return nil, err
	}
	if err := checkRange(rec.summary.End, from, to); err != nil {
		return nil, err
	}
	return model.Expand(rec.segments, from, to), nil
}

func (s *MemoryStore) Snapshot(_ context.Context, gameID string, t int) (model.SkaterSnapshot, error) {
	rec, err := s.get(gameID)
	if err != nil {
		return model.SkaterSnapshot{}, err
	}
	if err := checkRange(rec.summary.End, t, t); err != nil {
		return model.SkaterSnapshot{}, err
	}
	seg, ok := segmentAt(rec.segments, t)
	if !ok {
		return model.SkaterSnapshot{}, fmt.Errorf("%w: no segment covers %d", ErrOutOfRange, t)
	}
	return seg.Snapshot(t), nil
}

func (s *MemoryStore) Goals(_ context.Context, gameID string) ([]strength.ClassifiedGoal, error) {
	rec, err := s.get(gameID)
	if err != nil {
		return nil, err
	}
	out := make([]strength.ClassifiedGoal, len(rec.goals))
	copy(out, rec.goals)
	return out, nil
}

func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.games)
}

func (s *MemoryStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				metrics.UpdateStoreGames(s.Count(ctx))
			}
		}
	}()
}
