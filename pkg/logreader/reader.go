// Package logreader resolves and reads individual log files synchronously.
//
// This is the direct sibling of the aggregation path: the caller already
// knows the date it wants and does not need a combined artifact. Two naming
// schemes coexist in the log directory and are deliberately not unified:
// the live/current application log and its dated historical copies
// (srmsystem.log / srmsystem-<date>.log), and the rotation fragments the
// aggregation worker consumes (app-<date>.<n>.log).
package logreader

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/srmlabs/logmill/pkg/logset"
)

// Errors returned by reader operations.
var (
	// ErrNotFound indicates the resolved log file does not exist.
	ErrNotFound = errors.New("log file not found")

	// ErrInvalidLimit indicates a non-positive tail limit. The filesystem
	// is never touched when this is returned.
	ErrInvalidLimit = errors.New("limit must be positive")
)

// IsNotFound returns true if the error indicates a missing log file.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Config configures a Reader.
type Config struct {
	// LogDir is the directory holding all log files.
	// Default: "logs"
	LogDir string

	// LiveFile is the name of the current application log, served when the
	// requested date is today.
	// Default: "srmsystem.log"
	LiveFile string

	// HistoricalPrefix names dated historical files <prefix>-<date>.log.
	// Default: "srmsystem"
	HistoricalPrefix string

	// Now supplies the current time; nil uses time.Now. Tests override it
	// to pin "today".
	Now func() time.Time
}

// DefaultConfig returns the default reader configuration.
func DefaultConfig() Config {
	return Config{
		LogDir:           "logs",
		LiveFile:         "srmsystem.log",
		HistoricalPrefix: "srmsystem",
	}
}

// Reader reads live, historical, and rotation log files for a date.
//
// Reader is safe for concurrent use; it holds no mutable state.
type Reader struct {
	config Config
}

// New creates a reader, applying defaults for zero-value fields.
func New(cfg Config) *Reader {
	def := DefaultConfig()
	if cfg.LogDir == "" {
		cfg.LogDir = def.LogDir
	}
	if cfg.LiveFile == "" {
		cfg.LiveFile = def.LiveFile
	}
	if cfg.HistoricalPrefix == "" {
		cfg.HistoricalPrefix = def.HistoricalPrefix
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Reader{config: cfg}
}

// resolve maps a date to the live file for today, or the dated historical
// file otherwise.
func (r *Reader) resolve(date time.Time) (string, string) {
	today := logset.FormatDate(r.config.Now())
	if logset.FormatDate(date) == today {
		return filepath.Join(r.config.LogDir, r.config.LiveFile), r.config.LiveFile
	}
	name := fmt.Sprintf("%s-%s.log", r.config.HistoricalPrefix, logset.FormatDate(date))
	return filepath.Join(r.config.LogDir, name), name
}

// ReadFull returns the full text content of the log file for date, plus the
// resolved file name for content-disposition hints.
func (r *Reader) ReadFull(date time.Time) (string, string, error) {
	path, name := r.resolve(date)

	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", "", fmt.Errorf("%w for date: %s", ErrNotFound, logset.FormatDate(date))
		}
		return "", "", fmt.Errorf("read log file %s: %w", name, err)
	}
	return string(b), name, nil
}

// ReadTail returns the last limit lines of the log file for date, preserving
// original order. Fewer lines are returned if the file is shorter.
//
// limit must be positive; validation happens before any filesystem access.
func (r *Reader) ReadTail(date time.Time, limit int) (string, string, error) {
	if limit <= 0 {
		return "", "", ErrInvalidLimit
	}

	path, _ := r.resolve(date)

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", "", fmt.Errorf("%w for date: %s", ErrNotFound, logset.FormatDate(date))
		}
		return "", "", fmt.Errorf("read log file: %w", err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	// Ring of the last limit lines.
	lines := make([]string, 0, limit)
	for scanner.Scan() {
		if len(lines) == limit {
			copy(lines, lines[1:])
			lines = lines[:limit-1]
		}
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return "", "", fmt.Errorf("read log file: %w", err)
	}

	name := fmt.Sprintf("logs-%s-limited.log", logset.FormatDate(date))
	return strings.Join(lines, "\n"), name, nil
}

// ReadRotation returns the content of one rotation file directly, bypassing
// aggregation.
func (r *Reader) ReadRotation(date time.Time, index int) (string, string, error) {
	if index < 0 {
		return "", "", fmt.Errorf("%w: rotation %d", ErrNotFound, index)
	}

	name := logset.RotationName(date, index)
	b, err := os.ReadFile(filepath.Join(r.config.LogDir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return "", "", fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return "", "", fmt.Errorf("read rotation file %s: %w", name, err)
	}
	return string(b), name, nil
}

// CheckHealth reports whether the log directory exists and is readable.
// Plugged into the health endpoint.
func (r *Reader) CheckHealth(ctx context.Context) error {
	_ = ctx
	st, err := os.Stat(r.config.LogDir)
	if err != nil {
		return fmt.Errorf("log directory: %w", err)
	}
	if !st.IsDir() {
		return fmt.Errorf("log directory %s is not a directory", r.config.LogDir)
	}
	return nil
}
