// Package aggregate implements the log-aggregation worker.
//
// Given a target date, the worker locates that date's rotation files in the
// log directory, concatenates their lines in rotation-index order, and writes
// one combined artifact named after the date and the owning job id. Exactly
// one new file is created on success; nothing is ever deleted or modified.
package aggregate

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/srmlabs/logmill/pkg/archive"
	"github.com/srmlabs/logmill/pkg/logset"
)

// ErrNoRotations indicates no rotation files exist for the requested date.
var ErrNoRotations = fmt.Errorf("no log files found for date")

// Config configures worker behavior.
type Config struct {
	// LogDir is the directory holding rotation files and receiving artifacts.
	// Default: "logs"
	LogDir string

	// Delay simulates the cost of the underlying aggregation before any
	// filesystem work starts. Zero disables the delay.
	Delay time.Duration

	// RateLimit is the maximum rotation-file reads per second.
	// Zero means unlimited.
	RateLimit float64
}

// DefaultConfig returns the default worker configuration.
func DefaultConfig() Config {
	return Config{LogDir: "logs"}
}

// Summary contains the outcome of a successful aggregation.
type Summary struct {
	// ArtifactPath is the path of the combined artifact under the log directory.
	ArtifactPath string

	// FilesMatched is the number of rotation files concatenated.
	FilesMatched int

	// LinesWritten is the total number of lines in the artifact.
	LinesWritten int64

	// Duration is the total time spent aggregating.
	Duration time.Duration
}

// Worker aggregates one date's rotation files into a combined artifact.
//
// A Worker is safe for concurrent use: concurrent runs read the shared log
// directory and write disjoint artifacts (each output name embeds its job id).
type Worker struct {
	config   Config
	logger   *zap.Logger
	limiter  *rate.Limiter
	archiver archive.Archiver
}

// New creates a worker. A nil logger disables logging.
func New(cfg Config, logger *zap.Logger) *Worker {
	if cfg.LogDir == "" {
		cfg.LogDir = DefaultConfig().LogDir
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	w := &Worker{config: cfg, logger: logger}
	if cfg.RateLimit > 0 {
		w.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return w
}

// WithArchiver sets an optional artifact archiver. Archiving is best-effort:
// an upload failure is logged and does not fail the run.
// Returns the worker for method chaining.
func (w *Worker) WithArchiver(a archive.Archiver) *Worker {
	w.archiver = a
	return w
}

// Run aggregates the rotation files for date into a combined artifact owned
// by jobID.
//
// Run blocks until the aggregation reaches a terminal outcome. Failure
// reasons are returned as errors suitable for storing verbatim on the job
// record: a missing log directory, no rotation files for the date, or the
// underlying I/O failure.
func (w *Worker) Run(ctx context.Context, date time.Time, jobID string) (*Summary, error) {
	start := time.Now()

	if w.config.Delay > 0 {
		timer := time.NewTimer(w.config.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	files, err := logset.ListRotations(w.config.LogDir, date)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoRotations, logset.FormatDate(date))
	}

	artifactPath := filepath.Join(w.config.LogDir, logset.ArtifactName(date, jobID))
	lines, err := w.writeArtifact(ctx, artifactPath, files)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		ArtifactPath: artifactPath,
		FilesMatched: len(files),
		LinesWritten: lines,
		Duration:     time.Since(start),
	}

	w.logger.Info("Aggregation completed",
		zap.String("job_id", jobID),
		zap.String("date", logset.FormatDate(date)),
		zap.Int("files_matched", summary.FilesMatched),
		zap.Int64("lines_written", summary.LinesWritten),
		zap.Duration("duration", summary.Duration))

	w.archiveArtifact(ctx, artifactPath, jobID)

	return summary, nil
}

// writeArtifact concatenates files into path, atomically via temp + rename.
func (w *Worker) writeArtifact(ctx context.Context, path string, files []logset.RotationFile) (int64, error) {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return 0, fmt.Errorf("create artifact: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	out := bufio.NewWriter(tmp)
	var lines int64
	for _, rf := range files {
		if w.limiter != nil {
			if err := w.limiter.Wait(ctx); err != nil {
				_ = tmp.Close()
				return 0, err
			}
		}

		n, err := appendLines(out, filepath.Join(dir, rf.Name))
		if err != nil {
			_ = tmp.Close()
			return 0, err
		}
		lines += n
	}

	if err := out.Flush(); err != nil {
		_ = tmp.Close()
		return 0, fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("close artifact: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return 0, fmt.Errorf("rename artifact: %w", err)
	}
	return lines, nil
}

// appendLines copies path's lines to out, one line per line.
func appendLines(out *bufio.Writer, path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("read log file %s: %w", filepath.Base(path), err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var lines int64
	for scanner.Scan() {
		if _, err := out.Write(scanner.Bytes()); err != nil {
			return lines, fmt.Errorf("write artifact: %w", err)
		}
		if err := out.WriteByte('\n'); err != nil {
			return lines, fmt.Errorf("write artifact: %w", err)
		}
		lines++
	}
	if err := scanner.Err(); err != nil {
		return lines, fmt.Errorf("read log file %s: %w", filepath.Base(path), err)
	}
	return lines, nil
}

// archiveArtifact uploads the artifact if an archiver is configured.
func (w *Worker) archiveArtifact(ctx context.Context, path, jobID string) {
	if w.archiver == nil {
		return
	}

	f, err := os.Open(path)
	if err != nil {
		w.logger.Warn("Failed to open artifact for archiving",
			zap.String("job_id", jobID),
			zap.Error(err))
		return
	}
	defer func() { _ = f.Close() }()

	st, err := f.Stat()
	if err != nil {
		w.logger.Warn("Failed to stat artifact for archiving",
			zap.String("job_id", jobID),
			zap.Error(err))
		return
	}

	key := filepath.Base(path)
	if err := w.archiver.Put(ctx, key, f, st.Size()); err != nil {
		w.logger.Warn("Failed to archive artifact",
			zap.String("job_id", jobID),
			zap.String("key", key),
			zap.Error(err))
		return
	}

	w.logger.Info("Artifact archived",
		zap.String("job_id", jobID),
		zap.String("key", key),
		zap.Int64("bytes", st.Size()))
}
