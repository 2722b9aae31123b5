package engine

import "github.com/okian/rinktime/pkg/logger"

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithLogger sets the logger used for anomalies and progress.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}
