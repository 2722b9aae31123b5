// Package worker reconstructs queued games and hands results to a sink.
package worker

import (
	"github.com/okian/rinktime/internal/adapters/mq/queue"
	"github.com/okian/rinktime/internal/domain/engine"
	"github.com/okian/rinktime/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithOnDone registers a callback run after every job, successful or not.
func WithOnDone(fn func(j queue.Job, res *engine.Result, err error)) Option {
	return func(w *InMemoryWorker) {
		w.onDone = fn
	}
}
