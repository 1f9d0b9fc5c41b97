package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetAggregateFlags() {
	aggregateDate = ""
	aggregateJobPath = ""
	aggregateLogDir = ""
	aggregateDelay = 0
	aggregateRateLimit = 0
	aggregateJSON = false
}

func execute(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(context.Background())
}

func TestAggregateSingleDate(t *testing.T) {
	defer resetAggregateFlags()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app-2024-01-01.0.log"), []byte("a\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app-2024-01-01.1.log"), []byte("b\n"), 0o644))

	err := execute(t, "aggregate", "--date", "2024-01-01", "--log-dir", dir)
	require.NoError(t, err)

	matches, err := filepath.Glob(filepath.Join(dir, "app-2024-01-01-*.log"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	content, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Equal(t, "a\nb\n", string(content))
}

func TestAggregateFromManifest(t *testing.T) {
	defer resetAggregateFlags()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app-2024-01-01.0.log"), []byte("one\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app-2024-01-02.0.log"), []byte("two\n"), 0o644))

	manifestPath := filepath.Join(dir, "batch.yaml")
	manifestBody := "log_dir: " + dir + "\ndates:\n  - \"2024-01-01\"\n  - \"2024-01-02\"\n"
	require.NoError(t, os.WriteFile(manifestPath, []byte(manifestBody), 0o644))

	err := execute(t, "aggregate", "--job", manifestPath)
	require.NoError(t, err)

	for _, date := range []string{"2024-01-01", "2024-01-02"} {
		matches, gerr := filepath.Glob(filepath.Join(dir, "app-"+date+"-*.log"))
		require.NoError(t, gerr)
		assert.Len(t, matches, 1, "expected one artifact for %s", date)
	}
}

func TestAggregateRequiresDateOrJob(t *testing.T) {
	defer resetAggregateFlags()

	err := execute(t, "aggregate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--date or --job")
}

func TestAggregateRejectsBothDateAndJob(t *testing.T) {
	defer resetAggregateFlags()

	err := execute(t, "aggregate", "--date", "2024-01-01", "--job", "batch.yaml")
	require.Error(t, err)
}

func TestAggregateNoRotations(t *testing.T) {
	defer resetAggregateFlags()

	err := execute(t, "aggregate", "--date", "2024-01-01", "--log-dir", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no log files found for date")
}

func TestAggregateInvalidDate(t *testing.T) {
	defer resetAggregateFlags()

	err := execute(t, "aggregate", "--date", "January 1st", "--log-dir", t.TempDir())
	require.Error(t, err)
}
