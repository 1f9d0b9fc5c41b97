package logjob

import (
	"errors"
)

// Sentinel errors for job service operations.
var (
	// ErrInvalidDate indicates a submission date that does not parse.
	ErrInvalidDate = errors.New("invalid date")

	// ErrNotFound indicates the job is unknown or its artifact is not ready.
	// Callers cannot distinguish "never existed" from "not yet completed".
	ErrNotFound = errors.New("job not found")

	// ErrArtifactMissing indicates a Completed job whose artifact no longer
	// exists on disk. This points at external interference with the log
	// directory and is surfaced as an internal error, not absence.
	ErrArtifactMissing = errors.New("artifact missing")
)

// IsNotFound returns true if the error indicates an unknown or unready job.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsArtifactMissing returns true if the error indicates a vanished artifact.
func IsArtifactMissing(err error) bool {
	return errors.Is(err, ErrArtifactMissing)
}
