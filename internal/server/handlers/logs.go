package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/srmlabs/logmill/pkg/logreader"
	"github.com/srmlabs/logmill/pkg/logset"
)

// LogsHandler serves direct log reads, bypassing the job pipeline.
type LogsHandler struct {
	reader *logreader.Reader
	logger *zap.Logger
}

// NewLogsHandler creates a handler backed by the given reader.
func NewLogsHandler(reader *logreader.Reader, logger *zap.Logger) *LogsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogsHandler{reader: reader, logger: logger}
}

// Read handles GET /logs?date=YYYY-MM-DD[&limit=N]. Without limit it returns
// the whole file; with limit it returns the last N lines.
func (h *LogsHandler) Read(w http.ResponseWriter, r *http.Request) {
	date, err := logset.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	var (
		content  string
		filename string
	)
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		limit, perr := strconv.Atoi(limitParam)
		if perr != nil {
			respondWithError(w, r, fmt.Errorf("%w: limit must be an integer", logreader.ErrInvalidLimit))
			return
		}
		content, filename, err = h.reader.ReadTail(date, limit)
	} else {
		content, filename, err = h.reader.ReadFull(date)
	}
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	writeLogFile(w, filename, content)
}

// Rotation handles GET /logs/{date}/rotation/{n}, returning one rotated
// segment verbatim.
func (h *LogsHandler) Rotation(w http.ResponseWriter, r *http.Request) {
	date, err := logset.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	index, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil {
		respondWithError(w, r, fmt.Errorf("%w: rotation index must be an integer", logreader.ErrNotFound))
		return
	}

	content, filename, err := h.reader.ReadRotation(date, index)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	writeLogFile(w, filename, content)
}

func writeLogFile(w http.ResponseWriter, filename, content string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(content)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(content))
}
