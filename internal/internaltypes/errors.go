package internaltypes

import "errors"

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate")

	// ErrConfiguration marks a task that can never run: its account or payment
	// profile is missing or unreadable. It is the only error that fails a task.
	ErrConfiguration = errors.New("configuration error")

	// ErrTiming is a bounded wait that ran out. Always retryable.
	ErrTiming = errors.New("timed out")

	// ErrFieldInteraction is a required control that could not be found or filled.
	ErrFieldInteraction = errors.New("field interaction failed")

	// ErrArtifact is a snapshot or recording failure. Never affects a run's outcome.
	ErrArtifact = errors.New("artifact capture failed")

	ErrInvalidTransition = errors.New("invalid status transition")
	ErrStaleStatus       = errors.New("status changed concurrently")
)
