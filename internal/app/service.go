// Package service wires parsing, deduplication, the job queue, the
// reconstruction worker pool and the result store behind the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/okian/rinktime/internal/adapters/http/api"
	"github.com/okian/rinktime/internal/adapters/mq/queue"
	"github.com/okian/rinktime/internal/adapters/mq/worker"
	"github.com/okian/rinktime/internal/adapters/repository"
	"github.com/okian/rinktime/internal/domain/dedupe"
	"github.com/okian/rinktime/internal/domain/engine"
	"github.com/okian/rinktime/internal/domain/ingest"
	"github.com/okian/rinktime/internal/domain/model"
	"github.com/okian/rinktime/internal/domain/strength"
	"github.com/okian/rinktime/pkg/logger"
	"github.com/okian/rinktime/pkg/metrics"
)

// ErrNotStarted is returned by Submit before Start or after Stop.
var ErrNotStarted = errors.New("service not started")

// ResultHook observes every finished job.
type ResultHook func(j queue.Job, res *engine.Result, err error)

// Service implements the API dependencies for game reconstruction.
type Service struct {
	mu sync.RWMutex

	// Core components
	store   repository.Store
	deduper dedupe.Deduper
	queue   queue.Queue
	parser  *ingest.Parser
	engine  *engine.Engine
	pool    *worker.Pool

	// Configuration
	workerCount    int
	queueSize      int
	dedupeSize     int
	overtimeLength int
	hook           ResultHook

	// State
	started       bool
	submitted     atomic.Int64
	reconstructed atomic.Int64
	failed        atomic.Int64

	logger logger.Logger
}

var _ api.Dependencies = (*Service)(nil)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of reconstruction workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of games waiting for a worker.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many game IDs are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size != 0 {
			s.dedupeSize = size
		}
	}
}

// WithOvertimeLength sets the overtime length assumed for shootout games.
func WithOvertimeLength(seconds int) Option {
	return func(s *Service) {
		if seconds > 0 {
			s.overtimeLength = seconds
		}
	}
}

// WithStore sets the result store. The service closes it on Stop.
// Without one, Start creates a memory store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithResultHook registers a callback run after every reconstruction.
func WithResultHook(hook ResultHook) Option {
	return func(s *Service) {
		s.hook = hook
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU(),
		queueSize:   1_000,
		dedupeSize:  50_000,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the pipeline and starts the workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	if s.store == nil {
		s.store = repository.NewMemoryStore(ctx)
		s.logger.Info(ctx, "using memory store")
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))

	parserOpts := []ingest.Option{ingest.WithLogger(logger.Get().Named("ingest"))}
	if s.overtimeLength > 0 {
		parserOpts = append(parserOpts, ingest.WithOvertimeLength(s.overtimeLength))
	}
	s.parser = ingest.NewParser(parserOpts...)
	s.engine = engine.New()

	s.pool = worker.NewPool(s.workerCount, s.queue, s.engine, s.store, worker.WithOnDone(s.done))
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "reconstruction service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)
	return nil
}

// Stop stops accepting games, waits for queued games to be reconstructed
// and closes the store.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping reconstruction service...")

	var errs []error
	if err := s.pool.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}

	s.started = false
	s.logger.Info(ctx, "reconstruction service stopped",
		logger.Int("reconstructed", int(s.reconstructed.Load())),
		logger.Int("failed", int(s.failed.Load())),
	)
	return errors.Join(errs...)
}

func (s *Service) done(j queue.Job, res *engine.Result, err error) {
	if err != nil {
		s.failed.Add(1)
		// A failed game may be submitted again.
		s.deduper.Unrecord(context.Background(), j.GameID())
	} else {
		s.reconstructed.Add(1)
	}
	if s.hook != nil {
		s.hook(j, res, err)
	}
}

// Submit decodes a game log and queues it for reconstruction.
func (s *Service) Submit(ctx context.Context, body io.Reader) (api.Submission, error) {
	if !s.isStarted() {
		return api.Submission{}, ErrNotStarted
	}
	log, err := s.parser.Decode(ctx, body)
	if err != nil {
		metrics.RecordGameFailed()
		return api.Submission{}, err
	}
	return s.SubmitLog(ctx, log)
}

// SubmitLog queues an already parsed game. A game ID seen before is
// acknowledged as a duplicate and not queued again.
func (s *Service) SubmitLog(ctx context.Context, log *ingest.Log) (api.Submission, error) {
	if !s.isStarted() {
		return api.Submission{}, ErrNotStarted
	}
	if log == nil {
		return api.Submission{}, fmt.Errorf("%w: nil log", ingest.ErrMalformedLog)
	}
	id := log.Game.ID
	if s.deduper.SeenAndRecord(ctx, id) {
		metrics.RecordGameDuplicate()
		s.logger.Debug(ctx, "duplicate game skipped", logger.String("game_id", id))
		return api.Submission{GameID: id, Duplicate: true}, nil
	}

	job := queue.Job{ID: uuid.NewString(), Log: log}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		s.deduper.Unrecord(ctx, id)
		return api.Submission{}, fmt.Errorf("queue game %s: %w", id, err)
	}
	s.submitted.Add(1)
	s.logger.Debug(ctx, "game queued",
		logger.String("game_id", id),
		logger.String("job_id", job.ID),
		logger.Int("events", len(log.Events)),
	)
	return api.Submission{GameID: id, JobID: job.ID}, nil
}

func (s *Service) isStarted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// Store returns the result store; nil before Start.
func (s *Service) Store() repository.Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store
}

func (s *Service) Game(ctx context.Context, gameID string) (repository.GameSummary, error) {
	return s.Store().Game(ctx, gameID)
}

func (s *Service) Snapshots(ctx context.Context, gameID string, from, to int) ([]model.SkaterSnapshot, error) {
	return s.Store().Snapshots(ctx, gameID, from, to)
}

func (s *Service) Snapshot(ctx context.Context, gameID string, t int) (model.SkaterSnapshot, error) {
	return s.Store().Snapshot(ctx, gameID, t)
}

func (s *Service) Goals(ctx context.Context, gameID string) ([]strength.ClassifiedGoal, error) {
	return s.Store().Goals(ctx, gameID)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]any{
		"started":       s.started,
		"workerCount":   s.workerCount,
		"queueSize":     s.queueSize,
		"dedupeSize":    s.dedupeSize,
		"submitted":     s.submitted.Load(),
		"reconstructed": s.reconstructed.Load(),
		"failed":        s.failed.Load(),
	}
	if s.started {
		queueLen := s.queue.Len(ctx)
		games := s.store.Count(ctx)
		stats["queueLength"] = queueLen
		stats["gamesStored"] = games
		stats["gamesRemembered"] = s.deduper.Size()

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateStoreGames(games)
	}
	return stats
}
