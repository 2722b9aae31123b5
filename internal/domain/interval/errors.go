package interval

import "errors"

// Sentinel kinds for index errors.
var (
	ErrEmptyInterval = errors.New("empty interval")
	ErrNoPayload     = errors.New("interval has no payload")
)
