// Package ingest turns a raw, period-keyed game log into typed events.
package ingest

import "github.com/okian/rinktime/pkg/logger"

// Option applies a configuration option to the Parser.
type Option func(*Parser)

// WithLogger sets the logger used for skipped and corrected events.
func WithLogger(l logger.Logger) Option {
	return func(p *Parser) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithOvertimeLength sets the length assumed for a regular-season overtime
// that ends without a recorded end time (a game decided by shootout).
func WithOvertimeLength(seconds int) Option {
	return func(p *Parser) {
		if seconds > 0 {
			p.overtimeLength = seconds
		}
	}
}
