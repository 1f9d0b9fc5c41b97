// Package handlers implements the HTTP endpoints.
package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/srmlabs/logmill/pkg/jobregistry"
	"github.com/srmlabs/logmill/pkg/logjob"
)

// JobsHandler serves the aggregation job endpoints.
type JobsHandler struct {
	service *logjob.Service
	logger  *zap.Logger
}

// NewJobsHandler creates a handler backed by the given job service.
func NewJobsHandler(service *logjob.Service, logger *zap.Logger) *JobsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JobsHandler{service: service, logger: logger}
}

// SubmitResponse is the body of a successful POST /jobs.
type SubmitResponse struct {
	JobID string `json:"job_id"`
}

// Submit handles POST /jobs?date=YYYY-MM-DD. It registers the job, kicks off
// aggregation in the background, and returns 202 immediately.
func (h *JobsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")

	jobID, err := h.service.Submit(date)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	h.logger.Info("Job accepted",
		zap.String("job_id", jobID),
		zap.String("date", date))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(SubmitResponse{JobID: jobID})
}

// Status handles GET /jobs/{id}. Unknown ids get a 404 envelope.
func (h *JobsHandler) Status(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")

	status := h.service.Status(jobID)
	if status.State == jobregistry.JobStateNotFound {
		respondWithError(w, r, fmt.Errorf("%w: %s", logjob.ErrNotFound, jobID))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(status)
}

// Artifact handles GET /jobs/{id}/artifact, streaming the aggregated file
// as a download.
func (h *JobsHandler) Artifact(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")

	artifact, err := h.service.Artifact(jobID)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	defer func() { _ = artifact.Body.Close() }()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.Filename))
	w.Header().Set("Content-Length", strconv.FormatInt(artifact.Size, 10))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, artifact.Body); err != nil {
		// Headers are already sent; all we can do is log.
		h.logger.Warn("Artifact stream interrupted",
			zap.String("job_id", jobID),
			zap.Error(err))
	}
}
