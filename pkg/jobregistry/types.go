package jobregistry

import "time"

// JobState is the lifecycle state of an aggregation job.
//
// NOTE: These values appear in status responses and are part of the stable
// API contract.
type JobState string

const (
	JobStateInProgress JobState = "in_progress"
	JobStateCompleted  JobState = "completed"
	JobStateFailed     JobState = "failed"

	// JobStateNotFound is never stored in the registry. It is synthesized
	// for queries about identifiers the registry does not know, whether they
	// never existed or belonged to a pre-restart process.
	JobStateNotFound JobState = "not_found"
)

// Terminal reports whether s is a terminal state.
func (s JobState) Terminal() bool {
	return s == JobStateCompleted || s == JobStateFailed
}

// JobRecord is the registry entry for one submitted aggregation job.
//
// ArtifactPath and ErrorMessage are mutually exclusive: ArtifactPath is set
// only on Completed records, ErrorMessage only on Failed ones.
type JobRecord struct {
	JobID string   `json:"job_id"`
	Date  string   `json:"date"`
	State JobState `json:"state"`

	ArtifactPath string `json:"artifact_path,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}
