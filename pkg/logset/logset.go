// Package logset defines the rotated-log filename convention shared by the
// aggregation worker and the HTTP surface.
//
// Rotation files are produced externally as:
//
//	app-<date>.<rotationIndex>.log
//
// where <date> is an ISO calendar date and <rotationIndex> is a non-negative
// integer assigned by the upstream log writer. A successful aggregation
// produces a single combined artifact:
//
//	app-<date>-<jobID>.log
package logset

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// DateFormat is the ISO calendar date layout used in all log file names.
const DateFormat = "2006-01-02"

const (
	filePrefix = "app-"
	fileSuffix = ".log"
)

// Errors returned by logset operations.
var (
	// ErrDirNotFound indicates the log directory does not exist or is not a directory.
	ErrDirNotFound = errors.New("log directory not found")

	// ErrInvalidDate indicates a date string that does not parse as an ISO calendar date.
	ErrInvalidDate = errors.New("invalid date")
)

// RotationFile is one externally-produced log fragment for a date.
type RotationFile struct {
	// Name is the bare file name (no directory component).
	Name string

	// Index is the numeric rotation index parsed from the name.
	Index int
}

// ParseDate parses an ISO calendar date string.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse(DateFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q (expected %s)", ErrInvalidDate, s, DateFormat)
	}
	return t, nil
}

// FormatDate renders a date in the log naming layout.
func FormatDate(t time.Time) string {
	return t.Format(DateFormat)
}

// RotationPattern returns the glob matching all rotation files for a date.
func RotationPattern(date time.Time) string {
	return filePrefix + FormatDate(date) + ".*" + fileSuffix
}

// RotationName returns the rotation file name for a date and index.
func RotationName(date time.Time, index int) string {
	return fmt.Sprintf("%s%s.%d%s", filePrefix, FormatDate(date), index, fileSuffix)
}

// ArtifactName returns the combined artifact file name for a date and job id.
func ArtifactName(date time.Time, jobID string) string {
	return filePrefix + FormatDate(date) + "-" + jobID + fileSuffix
}

// ParseRotation reports whether name is a rotation file for the given date,
// and if so returns its parsed form.
//
// The glob wildcard in the naming convention is numeric: names whose middle
// field is not a non-negative integer (including combined artifacts, whose
// job id occupies that position under a '-' separator) do not match.
func ParseRotation(name string, date time.Time) (RotationFile, bool) {
	ok, err := doublestar.Match(RotationPattern(date), name)
	if err != nil || !ok {
		return RotationFile{}, false
	}

	middle := strings.TrimPrefix(name, filePrefix+FormatDate(date)+".")
	middle = strings.TrimSuffix(middle, fileSuffix)
	index, err := strconv.Atoi(middle)
	if err != nil || index < 0 {
		return RotationFile{}, false
	}

	return RotationFile{Name: name, Index: index}, true
}

// ListRotations enumerates the rotation files for a date in dir, sorted by
// rotation index ascending.
//
// Sorting makes the concatenation order deterministic regardless of
// filesystem enumeration order.
//
// Returns ErrDirNotFound if dir does not exist or is not a directory.
func ListRotations(dir string, date time.Time) ([]RotationFile, error) {
	st, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrDirNotFound
		}
		return nil, fmt.Errorf("stat log directory: %w", err)
	}
	if !st.IsDir() {
		return nil, ErrDirNotFound
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read log directory: %w", err)
	}

	var files []RotationFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if rf, ok := ParseRotation(entry.Name(), date); ok {
			files = append(files, rf)
		}
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].Index != files[j].Index {
			return files[i].Index < files[j].Index
		}
		return files[i].Name < files[j].Name
	})

	return files, nil
}
