package ingest

import "errors"

// Sentinel kinds for ingestion errors.
var (
	// ErrMalformedLog means the log is missing required structure and the
	// game cannot be reconstructed at all.
	ErrMalformedLog = errors.New("malformed event log")
)
