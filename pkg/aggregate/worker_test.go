package aggregate

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srmlabs/logmill/pkg/logset"
)

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := logset.ParseDate(s)
	require.NoError(t, err)
	return d
}

func writeLogs(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
}

func TestRunCombinesRotationsInIndexOrder(t *testing.T) {
	dir := t.TempDir()
	writeLogs(t, dir, map[string]string{
		"app-2024-01-01.1.log": "third\nfourth\nfifth\n",
		"app-2024-01-01.0.log": "first\nsecond\n",
	})

	w := New(Config{LogDir: dir}, nil)
	summary, err := w.Run(context.Background(), date(t, "2024-01-01"), "job-1")
	require.NoError(t, err)

	assert.Equal(t, 2, summary.FilesMatched)
	assert.Equal(t, int64(5), summary.LinesWritten)
	assert.Equal(t, filepath.Join(dir, "app-2024-01-01-job-1.log"), summary.ArtifactPath)

	content, err := os.ReadFile(summary.ArtifactPath)
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond\nthird\nfourth\nfifth\n", string(content))
}

func TestRunHandlesMissingTrailingNewline(t *testing.T) {
	dir := t.TempDir()
	writeLogs(t, dir, map[string]string{
		"app-2024-01-01.0.log": "one\ntwo", // no trailing newline
	})

	w := New(Config{LogDir: dir}, nil)
	summary, err := w.Run(context.Background(), date(t, "2024-01-01"), "job-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.LinesWritten)

	content, err := os.ReadFile(summary.ArtifactPath)
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\n", string(content))
}

func TestRunFailsWhenDirectoryMissing(t *testing.T) {
	w := New(Config{LogDir: filepath.Join(t.TempDir(), "nope")}, nil)

	_, err := w.Run(context.Background(), date(t, "2024-01-01"), "job-1")
	assert.ErrorIs(t, err, logset.ErrDirNotFound)
}

func TestRunFailsWhenNoRotationsMatch(t *testing.T) {
	dir := t.TempDir()
	writeLogs(t, dir, map[string]string{
		"app-2024-01-01.0.log": "line\n",
	})

	w := New(Config{LogDir: dir}, nil)
	_, err := w.Run(context.Background(), date(t, "2099-01-01"), "job-1")
	require.ErrorIs(t, err, ErrNoRotations)
	assert.Contains(t, err.Error(), "2099-01-01")

	// No artifact is created on failure.
	entries, readErr := os.ReadDir(dir)
	require.NoError(t, readErr)
	assert.Len(t, entries, 1)
}

func TestRunIgnoresOtherArtifacts(t *testing.T) {
	dir := t.TempDir()
	writeLogs(t, dir, map[string]string{
		"app-2024-01-01.0.log":      "a\n",
		"app-2024-01-01-oldjob.log": "stale artifact\n",
		"app-2024-01-02.0.log":      "other date\n",
		"srmsystem-2024-01-01.log":  "direct reader file\n",
	})

	w := New(Config{LogDir: dir}, nil)
	summary, err := w.Run(context.Background(), date(t, "2024-01-01"), "job-2")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.FilesMatched)
	assert.Equal(t, int64(1), summary.LinesWritten)
}

func TestRunAppliesDelay(t *testing.T) {
	dir := t.TempDir()
	writeLogs(t, dir, map[string]string{"app-2024-01-01.0.log": "x\n"})

	w := New(Config{LogDir: dir, Delay: 30 * time.Millisecond}, nil)
	start := time.Now()
	_, err := w.Run(context.Background(), date(t, "2024-01-01"), "job-1")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestRunDelayHonorsContext(t *testing.T) {
	dir := t.TempDir()
	writeLogs(t, dir, map[string]string{"app-2024-01-01.0.log": "x\n"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := New(Config{LogDir: dir, Delay: time.Minute}, nil)
	_, err := w.Run(ctx, date(t, "2024-01-01"), "job-1")
	assert.ErrorIs(t, err, context.Canceled)
}

type captureArchiver struct {
	key  string
	body string
	size int64
	err  error
}

func (c *captureArchiver) Put(_ context.Context, key string, body io.Reader, size int64) error {
	if c.err != nil {
		return c.err
	}
	b, _ := io.ReadAll(body)
	c.key = key
	c.body = string(b)
	c.size = size
	return nil
}

func TestRunArchivesArtifact(t *testing.T) {
	dir := t.TempDir()
	writeLogs(t, dir, map[string]string{"app-2024-01-01.0.log": "payload\n"})

	arch := &captureArchiver{}
	w := New(Config{LogDir: dir}, nil).WithArchiver(arch)

	summary, err := w.Run(context.Background(), date(t, "2024-01-01"), "job-1")
	require.NoError(t, err)

	assert.Equal(t, "app-2024-01-01-job-1.log", arch.key)
	assert.Equal(t, "payload\n", arch.body)
	assert.Equal(t, int64(len("payload\n")), arch.size)
	assert.FileExists(t, summary.ArtifactPath)
}

func TestRunArchiveFailureDoesNotFailRun(t *testing.T) {
	dir := t.TempDir()
	writeLogs(t, dir, map[string]string{"app-2024-01-01.0.log": "payload\n"})

	arch := &captureArchiver{err: assert.AnError}
	w := New(Config{LogDir: dir}, nil).WithArchiver(arch)

	summary, err := w.Run(context.Background(), date(t, "2024-01-01"), "job-1")
	require.NoError(t, err)
	assert.FileExists(t, summary.ArtifactPath)
}

func TestRunWithRateLimit(t *testing.T) {
	dir := t.TempDir()
	writeLogs(t, dir, map[string]string{
		"app-2024-01-01.0.log": "a\n",
		"app-2024-01-01.1.log": "b\n",
	})

	w := New(Config{LogDir: dir, RateLimit: 1000}, nil)
	summary, err := w.Run(context.Background(), date(t, "2024-01-01"), "job-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.LinesWritten)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "logs", cfg.LogDir)
	assert.Zero(t, cfg.Delay)

	w := New(Config{}, nil)
	assert.Equal(t, "logs", w.config.LogDir)
}
