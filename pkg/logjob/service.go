// Package logjob orchestrates aggregation jobs: submission, status polling,
// and artifact resolution.
//
// Submission inserts an InProgress registry entry synchronously, then hands
// the date to the aggregation worker on its own goroutine. The worker
// communicates completion solely through the registry; nothing calls back
// into request-handling code.
package logjob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/srmlabs/logmill/pkg/aggregate"
	"github.com/srmlabs/logmill/pkg/jobregistry"
	"github.com/srmlabs/logmill/pkg/logset"
)

// Status is the externally visible state of a job.
type Status struct {
	State        jobregistry.JobState `json:"state"`
	ErrorMessage string               `json:"error_message,omitempty"`
}

// Artifact is an open byte stream of a completed job's combined file.
//
// The caller owns Body and must close it.
type Artifact struct {
	Body     io.ReadCloser
	Size     int64
	Filename string
}

// Service coordinates the registry and the aggregation worker.
type Service struct {
	registry *jobregistry.Registry
	worker   *aggregate.Worker
	logger   *zap.Logger

	wg sync.WaitGroup
}

// NewService creates a job service. A nil logger disables logging.
func NewService(registry *jobregistry.Registry, worker *aggregate.Worker, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		registry: registry,
		worker:   worker,
		logger:   logger,
	}
}

// Submit validates date, registers a new InProgress job, and dispatches the
// worker off the caller's path. It returns the job id immediately.
//
// The date string is rejected before any registry entry is created. An
// immediate status poll for the returned id never observes NotFound.
// Submit takes no context: it never blocks, and the dispatched job is
// deliberately detached from the caller's lifetime.
func (s *Service) Submit(date string) (string, error) {
	parsed, err := logset.ParseDate(date)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidDate, err)
	}

	jobID := uuid.New().String()
	record := jobregistry.JobRecord{
		JobID:     jobID,
		Date:      logset.FormatDate(parsed),
		State:     jobregistry.JobStateInProgress,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.registry.Insert(record); err != nil {
		return "", fmt.Errorf("register job: %w", err)
	}

	s.logger.Info("Job submitted",
		zap.String("job_id", jobID),
		zap.String("date", record.Date))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		// Detached from the request context: a caller that stops polling
		// abandons the job, it does not cancel it.
		s.run(context.Background(), parsed, jobID)
	}()

	return jobID, nil
}

// run drives one job to a terminal state. Worker failures never escape; they
// are captured as the job's terminal state.
func (s *Service) run(ctx context.Context, date time.Time, jobID string) {
	summary, err := s.worker.Run(ctx, date, jobID)
	if err != nil {
		if ferr := s.registry.Fail(jobID, err.Error()); ferr != nil {
			s.logger.Error("Failed to record job failure",
				zap.String("job_id", jobID),
				zap.Error(ferr))
		}
		s.logger.Error("Job failed",
			zap.String("job_id", jobID),
			zap.String("date", logset.FormatDate(date)),
			zap.Error(err))
		return
	}

	if cerr := s.registry.Complete(jobID, summary.ArtifactPath); cerr != nil {
		s.logger.Error("Failed to record job completion",
			zap.String("job_id", jobID),
			zap.Error(cerr))
		return
	}

	s.logger.Info("Job completed",
		zap.String("job_id", jobID),
		zap.String("artifact", summary.ArtifactPath),
		zap.Int64("lines", summary.LinesWritten),
		zap.Duration("duration", summary.Duration))
}

// Status returns the job's current state, synthesizing NotFound for ids the
// registry does not know. The response is identical whether the id never
// existed or belonged to a pre-restart process.
func (s *Service) Status(jobID string) Status {
	record, ok := s.registry.Get(jobID)
	if !ok {
		return Status{State: jobregistry.JobStateNotFound}
	}
	return Status{State: record.State, ErrorMessage: record.ErrorMessage}
}

// Artifact opens the combined file of a Completed job.
//
// Returns ErrNotFound if the job is unknown or not yet Completed, and
// ErrArtifactMissing if the recorded file no longer exists on disk.
func (s *Service) Artifact(jobID string) (*Artifact, error) {
	record, ok := s.registry.Get(jobID)
	if !ok || record.State != jobregistry.JobStateCompleted {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, jobID)
	}

	f, err := os.Open(record.ArtifactPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrArtifactMissing, record.ArtifactPath)
		}
		return nil, fmt.Errorf("open artifact: %w", err)
	}

	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat artifact: %w", err)
	}

	return &Artifact{
		Body:     f,
		Size:     st.Size(),
		Filename: filepath.Base(record.ArtifactPath),
	}, nil
}

// Wait blocks until all dispatched workers have reached a terminal state.
// Used by graceful shutdown and tests; callers polling over HTTP never wait.
func (s *Service) Wait() {
	s.wg.Wait()
}
