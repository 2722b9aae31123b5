package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound   = errors.New("game not found")
	ErrOutOfRange = errors.New("time outside reconstructed game")
	ErrNoDSN      = errors.New("sqlite dsn is required")
)
