package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/okian/rinktime/internal/adapters/mq/queue"
	"github.com/okian/rinktime/internal/domain/engine"
	"github.com/okian/rinktime/internal/domain/ingest"
	"github.com/okian/rinktime/pkg/logger"
	"github.com/okian/rinktime/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Reconstructor rebuilds one game.
type Reconstructor interface {
	Reconstruct(ctx context.Context, log *ingest.Log) (*engine.Result, error)
}

// Sink receives reconstructed games.
type Sink interface {
	Save(ctx context.Context, res *engine.Result) error
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker processes jobs until stopped.
type Worker interface {
	Run(ctx context.Context)
	Shutdown(ctx context.Context) error
}

// InMemoryWorker reconstructs one game at a time.
type InMemoryWorker struct {
	queue  Queue
	engine Reconstructor
	sink   Sink
	name   string
	onDone func(queue.Job, *engine.Result, error)

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker with configuration options.
func NewInMemoryWorker(q Queue, r Reconstructor, sink Sink, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		engine:   r,
		sink:     sink,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run consumes jobs until the queue closes, ctx is done or Shutdown is called.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			res, err := w.process(ctx, j)
			if err != nil {
				w.logger.Error(ctx, "game reconstruction failed",
					logger.String("job_id", j.ID),
					logger.String("game_id", j.GameID()),
					logger.Error(err),
				)
			}
			if w.onDone != nil {
				w.onDone(j, res, err)
			}
		}
	}
}

// Shutdown stops the worker after its current job.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

func (w *InMemoryWorker) process(ctx context.Context, j queue.Job) (*engine.Result, error) {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	res, err := w.engine.Reconstruct(ctx, j.Log)
	if err != nil {
		kind := "reconstruction_error"
		if errors.Is(err, ingest.ErrMalformedLog) {
			kind = "malformed_log"
		}
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", kind)
		metrics.RecordErrorByType(kind, "high")
		return nil, fmt.Errorf("reconstruct game %s: %w", j.GameID(), err)
	}

	if w.sink != nil {
		if err := w.sink.Save(ctx, res); err != nil {
			metrics.RecordWorkerError()
			metrics.RecordErrorByComponent("worker", "store_error")
			metrics.RecordErrorByType("store_error", "high")
			return res, fmt.Errorf("save game %s: %w", j.GameID(), err)
		}
	}
	return res, nil
}

// Pool runs several workers over one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a pool of workerCount workers; zero or less means one per CPU.
// Options are applied to every worker.
func NewPool(workerCount int, q Queue, r Reconstructor, sink Sink, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := range p.workers {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		p.workers[i] = NewInMemoryWorker(q, r, sink, wopts...)
	}
	metrics.UpdateWorkerActiveCount(workerCount)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start launches every worker.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue and waits for workers to drain it. Workers
// still busy when ctx ends are told to stop after their current game.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.Done():
		case <-shutdownCtx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker drain timed out", logger.Int("worker_id", i))
			_ = w.Shutdown(context.Background())
		}
	}
	metrics.UpdateWorkerActiveCount(0)
	if timedOut {
		return fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
	}
	return nil
}
