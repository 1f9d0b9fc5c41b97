package logset

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-01-01")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", FormatDate(d))

	_, err = ParseDate("01/01/2024")
	assert.ErrorIs(t, err, ErrInvalidDate)

	_, err = ParseDate("")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestNames(t *testing.T) {
	d := mustDate(t, "2024-01-01")

	assert.Equal(t, "app-2024-01-01.*.log", RotationPattern(d))
	assert.Equal(t, "app-2024-01-01.3.log", RotationName(d, 3))
	assert.Equal(t, "app-2024-01-01-abc123.log", ArtifactName(d, "abc123"))
}

func TestParseRotation(t *testing.T) {
	d := mustDate(t, "2024-01-01")

	tests := []struct {
		name      string
		wantOK    bool
		wantIndex int
	}{
		{"app-2024-01-01.0.log", true, 0},
		{"app-2024-01-01.12.log", true, 12},
		{"app-2024-01-02.0.log", false, 0},     // wrong date
		{"app-2024-01-01.log", false, 0},       // no index field
		{"app-2024-01-01.x.log", false, 0},     // non-numeric index
		{"app-2024-01-01.-1.log", false, 0},    // negative index
		{"app-2024-01-01-job42.log", false, 0}, // combined artifact
		{"other-2024-01-01.0.log", false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rf, ok := ParseRotation(tt.name, d)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantIndex, rf.Index)
				assert.Equal(t, tt.name, rf.Name)
			}
		})
	}
}

func TestListRotations(t *testing.T) {
	d := mustDate(t, "2024-01-01")
	dir := t.TempDir()

	// Created out of index order on purpose.
	for _, name := range []string{
		"app-2024-01-01.2.log",
		"app-2024-01-01.0.log",
		"app-2024-01-01.10.log",
		"app-2024-01-01.1.log",
		"app-2024-01-02.0.log",
		"app-2024-01-01-oldjob.log",
		"unrelated.txt",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x\n"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "app-2024-01-01.9.log"), 0o755))

	files, err := ListRotations(dir, d)
	require.NoError(t, err)

	indexes := make([]int, 0, len(files))
	for _, f := range files {
		indexes = append(indexes, f.Index)
	}
	assert.Equal(t, []int{0, 1, 2, 10}, indexes)
}

func TestListRotationsMissingDir(t *testing.T) {
	d := mustDate(t, "2024-01-01")

	_, err := ListRotations(filepath.Join(t.TempDir(), "nope"), d)
	assert.ErrorIs(t, err, ErrDirNotFound)

	// A regular file in place of the directory is also "not found".
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = ListRotations(file, d)
	assert.ErrorIs(t, err, ErrDirNotFound)
}

func TestListRotationsEmpty(t *testing.T) {
	files, err := ListRotations(t.TempDir(), mustDate(t, "2099-01-01"))
	require.NoError(t, err)
	assert.Empty(t, files)
}
