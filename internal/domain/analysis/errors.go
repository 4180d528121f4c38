package analysis

import "errors"

var (
	// ErrEngineUnavailable marks a transient engine failure. Retried with
	// backoff up to the configured bound.
	ErrEngineUnavailable = errors.New("analysis engine unavailable")

	// ErrEngineFailure marks a terminal engine failure: the engine ran but
	// could not produce a usable extraction. Never retried.
	ErrEngineFailure = errors.New("analysis engine error")

	// ErrStaleWrite is returned when a result save was superseded by a newer
	// job for the same file.
	ErrStaleWrite = errors.New("result superseded by a newer analysis")

	// ErrValidation marks a field constraint violation on stored or edited
	// result data.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a result lookup misses.
	ErrNotFound = errors.New("analysis result not found")
)
