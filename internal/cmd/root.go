// Package cmd implements the logmill command line interface.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"regexp"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/srmlabs/logmill/internal/observability"
	"github.com/srmlabs/logmill/internal/server/handlers"
)

var rootCmd = &cobra.Command{
	Use:   "logmill",
	Short: "Log aggregation job service",
	Long: `logmill aggregates rotated application log files into per-date artifacts.

It runs either as an HTTP service (logmill serve) accepting asynchronous
aggregation jobs, or as a one-shot CLI (logmill aggregate, logmill logs)
operating directly on a log directory.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return observability.InitCLI(rootLogLevel)
	},
}

var rootLogLevel string

func init() {
	rootCmd.PersistentFlags().StringVar(&rootLogLevel, "log-level", "info", "Log level (debug|info|warn|error)")
}

// versionInfo holds build metadata injected via -ldflags.
var versionInfo = struct {
	Version   string
	Commit    string
	BuildDate string
}{
	Version:   "dev",
	Commit:    "HEAD",
	BuildDate: "unknown",
}

// SetVersionInfo installs build metadata for the version command and the
// /version endpoint.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
	handlers.SetVersionInfo(version, commit, buildDate)
}

// exitError creates an error that will cause the CLI to exit with the given code.
func exitError(code int, message string, err error) error {
	return fmt.Errorf("%s: %w (exit code %d)", message, err, code)
}

var exitCodePattern = regexp.MustCompile(`\(exit code (\d+)\)$`)

// exitCodeFor extracts the exit code an error carries, defaulting to 1.
func exitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	if m := exitCodePattern.FindStringSubmatch(err.Error()); m != nil {
		if code, cerr := strconv.Atoi(m[1]); cerr == nil {
			return code
		}
	}
	return 1
}

// Execute runs the CLI and returns the process exit code. Commands run under
// a context cancelled on SIGINT/SIGTERM.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitCodeFor(err)
	}
	return 0
}
