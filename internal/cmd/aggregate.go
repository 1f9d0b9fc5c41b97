package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/srmlabs/logmill/internal/observability"
	"github.com/srmlabs/logmill/pkg/aggregate"
	"github.com/srmlabs/logmill/pkg/logset"
	"github.com/srmlabs/logmill/pkg/manifest"
)

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Aggregate rotated log files for one or more dates",
	Long: `Aggregate rotated log files (app-<date>.<n>.log) into one combined
artifact per date, synchronously.

Dates come either from --date or from a YAML/JSON manifest listing several:

  log_dir: /var/log/app
  dates:
    - "2024-01-01"
    - "2024-01-02"

Example:
  logmill aggregate --date 2024-01-01
  logmill aggregate --date 2024-01-01 --log-dir /var/log/app
  logmill aggregate --job batch.yaml
  logmill aggregate --job batch.yaml --json`,
	RunE: runAggregate,
}

var (
	aggregateDate      string
	aggregateJobPath   string
	aggregateLogDir    string
	aggregateDelay     time.Duration
	aggregateRateLimit float64
	aggregateJSON      bool
)

func init() {
	rootCmd.AddCommand(aggregateCmd)

	aggregateCmd.Flags().StringVarP(&aggregateDate, "date", "d", "", "Date to aggregate (YYYY-MM-DD)")
	aggregateCmd.Flags().StringVarP(&aggregateJobPath, "job", "j", "", "Path to batch manifest")
	aggregateCmd.Flags().StringVar(&aggregateLogDir, "log-dir", "", "Log directory (default: logs)")
	aggregateCmd.Flags().DurationVar(&aggregateDelay, "delay", 0, "Delay before each aggregation")
	aggregateCmd.Flags().Float64Var(&aggregateRateLimit, "rate-limit", 0, "Max rotation-file reads per second (0 = unlimited)")
	aggregateCmd.Flags().BoolVar(&aggregateJSON, "json", false, "Emit one JSON object per aggregated date")
}

// aggregateResult is one row of aggregate command output.
type aggregateResult struct {
	Date     string `json:"date"`
	JobID    string `json:"job_id"`
	Artifact string `json:"artifact"`
	Files    int    `json:"files"`
	Lines    int64  `json:"lines"`
	Duration string `json:"duration"`
}

func runAggregate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if (aggregateDate == "") == (aggregateJobPath == "") {
		return exitError(foundry.ExitInvalidArgument, "Invalid arguments",
			fmt.Errorf("exactly one of --date or --job is required"))
	}

	cfg := aggregate.Config{
		LogDir:    aggregateLogDir,
		Delay:     aggregateDelay,
		RateLimit: aggregateRateLimit,
	}
	dates := []string{aggregateDate}

	if aggregateJobPath != "" {
		m, err := manifest.Load(aggregateJobPath)
		if err != nil {
			observability.CLILogger.Error("Failed to load manifest",
				zap.String("path", aggregateJobPath),
				zap.Error(err))
			return exitError(foundry.ExitInvalidArgument, "Invalid manifest", err)
		}
		dates = m.Dates
		if aggregateLogDir == "" {
			cfg.LogDir = m.LogDir
		}
		if aggregateDelay == 0 {
			cfg.Delay = m.ParsedDelay()
		}
		if aggregateRateLimit == 0 {
			cfg.RateLimit = m.RateLimit
		}
	}

	worker := aggregate.New(cfg, observability.CLILogger)

	var results []aggregateResult
	for _, dateStr := range dates {
		date, err := logset.ParseDate(dateStr)
		if err != nil {
			return exitError(foundry.ExitInvalidArgument, "Invalid date", err)
		}

		jobID := uuid.New().String()
		summary, err := worker.Run(ctx, date, jobID)
		if err != nil {
			if ctx.Err() != nil {
				return exitError(foundry.ExitSignalInt, "Aggregation cancelled", err)
			}
			observability.CLILogger.Error("Aggregation failed",
				zap.String("date", dateStr),
				zap.Error(err))
			return exitError(foundry.ExitFileReadError, "Aggregation failed", err)
		}

		results = append(results, aggregateResult{
			Date:     dateStr,
			JobID:    jobID,
			Artifact: summary.ArtifactPath,
			Files:    summary.FilesMatched,
			Lines:    summary.LinesWritten,
			Duration: summary.Duration.String(),
		})
	}

	if aggregateJSON {
		enc := json.NewEncoder(os.Stdout)
		for _, res := range results {
			if err := enc.Encode(res); err != nil {
				return exitError(foundry.ExitFileWriteError, "Failed to write output", err)
			}
		}
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tFILES\tLINES\tARTIFACT")
	for _, res := range results {
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", res.Date, res.Files, res.Lines, res.Artifact)
	}
	return w.Flush()
}
