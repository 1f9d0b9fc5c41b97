package cmd

import (
	"fmt"
	"os"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"

	"github.com/srmlabs/logmill/pkg/logreader"
	"github.com/srmlabs/logmill/pkg/logset"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Print a log file for a date",
	Long: `Print the log file for a date to stdout: the live file for today, the
dated historical file otherwise.

Example:
  logmill logs --date 2024-01-01
  logmill logs --date 2024-01-01 --tail 100
  logmill logs --date 2024-01-01 --rotation 2`,
	RunE: runLogs,
}

var (
	logsDate     string
	logsTail     int
	logsRotation int
	logsDir      string
)

func init() {
	rootCmd.AddCommand(logsCmd)

	logsCmd.Flags().StringVarP(&logsDate, "date", "d", "", "Date to read (YYYY-MM-DD, required)")
	logsCmd.Flags().IntVar(&logsTail, "tail", 0, "Print only the last N lines")
	logsCmd.Flags().IntVar(&logsRotation, "rotation", -1, "Print one rotation segment instead of the daily file")
	logsCmd.Flags().StringVar(&logsDir, "log-dir", "", "Log directory (default: logs)")

	_ = logsCmd.MarkFlagRequired("date")
}

func runLogs(cmd *cobra.Command, args []string) error {
	date, err := logset.ParseDate(logsDate)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid date", err)
	}

	reader := logreader.New(logreader.Config{LogDir: logsDir})

	var content string
	switch {
	case logsRotation >= 0:
		content, _, err = reader.ReadRotation(date, logsRotation)
	case logsTail > 0:
		content, _, err = reader.ReadTail(date, logsTail)
	default:
		content, _, err = reader.ReadFull(date)
	}
	if err != nil {
		if logreader.IsNotFound(err) {
			return exitError(foundry.ExitFileReadError, "Log file not found", err)
		}
		return exitError(foundry.ExitFileReadError, "Failed to read log file", err)
	}

	fmt.Fprint(os.Stdout, content)
	if content != "" && content[len(content)-1] != '\n' {
		fmt.Fprintln(os.Stdout)
	}
	return nil
}
