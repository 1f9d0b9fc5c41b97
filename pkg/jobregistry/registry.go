// Package jobregistry holds in-memory records for aggregation jobs.
//
// The registry is the single source of truth for job state. It lives for the
// process lifetime: records are never evicted or persisted, and any job
// submitted before a restart becomes permanently unknown. Callers that care
// must re-submit.
package jobregistry

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Registry is a process-wide concurrent map from job id to JobRecord.
//
// Point reads never block on worker completion; the only writers for a given
// key are the submitting caller (Insert) and the single worker that owns the
// job (Complete/Fail, exactly once).
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]JobRecord
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{jobs: make(map[string]JobRecord)}
}

// Insert adds a new record. It fails if the id is already present; ids are
// expected to be generated so that collisions are practically unreachable.
func (r *Registry) Insert(record JobRecord) error {
	jobID := strings.TrimSpace(record.JobID)
	if jobID == "" {
		return fmt.Errorf("job_id is required")
	}
	record.JobID = jobID

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobs[jobID]; exists {
		return fmt.Errorf("duplicate job id: %s", jobID)
	}
	r.jobs[jobID] = record
	return nil
}

// Get returns the current record for jobID, or ok=false if absent.
func (r *Registry) Get(jobID string) (JobRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.jobs[strings.TrimSpace(jobID)]
	return record, ok
}

// Complete transitions a job to Completed and stores the artifact path.
func (r *Registry) Complete(jobID, artifactPath string) error {
	return r.finish(jobID, func(record *JobRecord) {
		record.State = JobStateCompleted
		record.ArtifactPath = artifactPath
		record.ErrorMessage = ""
	})
}

// Fail transitions a job to Failed with a human-readable reason.
func (r *Registry) Fail(jobID, reason string) error {
	return r.finish(jobID, func(record *JobRecord) {
		record.State = JobStateFailed
		record.ErrorMessage = reason
		record.ArtifactPath = ""
	})
}

// finish applies a terminal transition. Transitions are monotonic: a record
// already in a terminal state is never rewritten.
func (r *Registry) finish(jobID string, mutate func(*JobRecord)) error {
	jobID = strings.TrimSpace(jobID)

	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.jobs[jobID]
	if !ok {
		return fmt.Errorf("unknown job id: %s", jobID)
	}
	if record.State.Terminal() {
		return fmt.Errorf("job %s already %s", jobID, record.State)
	}

	mutate(&record)
	now := time.Now().UTC()
	record.EndedAt = &now
	r.jobs[jobID] = record
	return nil
}

// List returns a snapshot of all records, newest first.
func (r *Registry) List() []JobRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]JobRecord, 0, len(r.jobs))
	for _, record := range r.jobs {
		out = append(out, record)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].JobID < out[j].JobID
	})

	return out
}

// Len returns the number of records held.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}
