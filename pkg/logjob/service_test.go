package logjob

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srmlabs/logmill/pkg/aggregate"
	"github.com/srmlabs/logmill/pkg/jobregistry"
)

func newTestService(t *testing.T, dir string) (*Service, *jobregistry.Registry) {
	t.Helper()
	registry := jobregistry.New()
	worker := aggregate.New(aggregate.Config{LogDir: dir}, nil)
	return NewService(registry, worker, nil), registry
}

func TestSubmitRejectsInvalidDate(t *testing.T) {
	svc, registry := newTestService(t, t.TempDir())

	_, err := svc.Submit("not-a-date")
	require.ErrorIs(t, err, ErrInvalidDate)

	// Rejected before any registry entry is created.
	assert.Zero(t, registry.Len())
}

func TestSubmitReturnsIDImmediatelyVisible(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app-2024-01-01.0.log"), []byte("a\nb\n"), 0o644))

	svc, _ := newTestService(t, dir)

	jobID, err := svc.Submit("2024-01-01")
	require.NoError(t, err)
	require.NotEmpty(t, jobID)

	// An immediate poll never observes NotFound.
	status := svc.Status(jobID)
	assert.NotEqual(t, jobregistry.JobStateNotFound, status.State)

	svc.Wait()
	status = svc.Status(jobID)
	assert.Equal(t, jobregistry.JobStateCompleted, status.State)
	assert.Empty(t, status.ErrorMessage)
}

func TestStatusUnknownJob(t *testing.T) {
	svc, _ := newTestService(t, t.TempDir())

	status := svc.Status("never-submitted")
	assert.Equal(t, jobregistry.JobStateNotFound, status.State)
}

func TestJobFailsWhenNoFilesMatch(t *testing.T) {
	dir := t.TempDir()
	svc, _ := newTestService(t, dir)

	jobID, err := svc.Submit("2099-01-01")
	require.NoError(t, err)
	svc.Wait()

	status := svc.Status(jobID)
	assert.Equal(t, jobregistry.JobStateFailed, status.State)
	assert.Contains(t, status.ErrorMessage, "no log files found")
	assert.Contains(t, status.ErrorMessage, "2099-01-01")

	// A failed job has no artifact.
	_, err = svc.Artifact(jobID)
	assert.ErrorIs(t, err, ErrNotFound)

	entries, readErr := os.ReadDir(dir)
	require.NoError(t, readErr)
	assert.Empty(t, entries)
}

func TestJobFailsWhenDirectoryMissing(t *testing.T) {
	svc, _ := newTestService(t, filepath.Join(t.TempDir(), "missing"))

	jobID, err := svc.Submit("2024-01-01")
	require.NoError(t, err)
	svc.Wait()

	status := svc.Status(jobID)
	assert.Equal(t, jobregistry.JobStateFailed, status.State)
	assert.Contains(t, status.ErrorMessage, "log directory not found")
}

func TestArtifactStreamsCombinedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app-2024-01-01.0.log"), []byte("l1\nl2\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app-2024-01-01.1.log"), []byte("l3\nl4\nl5\n"), 0o644))

	svc, _ := newTestService(t, dir)

	jobID, err := svc.Submit("2024-01-01")
	require.NoError(t, err)
	svc.Wait()

	artifact, err := svc.Artifact(jobID)
	require.NoError(t, err)
	defer func() { _ = artifact.Body.Close() }()

	content, err := io.ReadAll(artifact.Body)
	require.NoError(t, err)
	assert.Equal(t, "l1\nl2\nl3\nl4\nl5\n", string(content))
	assert.Equal(t, int64(len(content)), artifact.Size)
	assert.Equal(t, "app-2024-01-01-"+jobID+".log", artifact.Filename)
}

func TestArtifactNotReadyWhileInProgress(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app-2024-01-01.0.log"), []byte("x\n"), 0o644))

	registry := jobregistry.New()
	worker := aggregate.New(aggregate.Config{LogDir: dir, Delay: 200 * time.Millisecond}, nil)
	svc := NewService(registry, worker, nil)

	jobID, err := svc.Submit("2024-01-01")
	require.NoError(t, err)

	_, err = svc.Artifact(jobID)
	assert.ErrorIs(t, err, ErrNotFound)

	svc.Wait()
	artifact, err := svc.Artifact(jobID)
	require.NoError(t, err)
	_ = artifact.Body.Close()
}

func TestArtifactMissingFromDisk(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app-2024-01-01.0.log"), []byte("x\n"), 0o644))

	svc, _ := newTestService(t, dir)

	jobID, err := svc.Submit("2024-01-01")
	require.NoError(t, err)
	svc.Wait()

	artifact, err := svc.Artifact(jobID)
	require.NoError(t, err)
	path := filepath.Join(dir, artifact.Filename)
	_ = artifact.Body.Close()

	// External interference with the log directory.
	require.NoError(t, os.Remove(path))

	_, err = svc.Artifact(jobID)
	assert.ErrorIs(t, err, ErrArtifactMissing)
	assert.False(t, IsNotFound(err))
	assert.True(t, IsArtifactMissing(err))
}

func TestConcurrentSubmissionsForDifferentDates(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app-2024-01-01.0.log"), []byte("a\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app-2024-01-02.0.log"), []byte("b\n"), 0o644))

	svc, _ := newTestService(t, dir)

	id1, err := svc.Submit("2024-01-01")
	require.NoError(t, err)
	id2, err := svc.Submit("2024-01-02")
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	svc.Wait()
	assert.Equal(t, jobregistry.JobStateCompleted, svc.Status(id1).State)
	assert.Equal(t, jobregistry.JobStateCompleted, svc.Status(id2).State)
}

func TestStatusEventuallyTerminal(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app-2024-01-01.0.log"), []byte("x\n"), 0o644))

	registry := jobregistry.New()
	worker := aggregate.New(aggregate.Config{LogDir: dir, Delay: 20 * time.Millisecond}, nil)
	svc := NewService(registry, worker, nil)

	jobID, err := svc.Submit("2024-01-01")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return svc.Status(jobID).State.Terminal()
	}, 2*time.Second, 10*time.Millisecond)
}
