package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/srmlabs/logmill/internal/config"
	"github.com/srmlabs/logmill/internal/observability"
	"github.com/srmlabs/logmill/internal/server"
	"github.com/srmlabs/logmill/internal/server/handlers"
	"github.com/srmlabs/logmill/pkg/aggregate"
	"github.com/srmlabs/logmill/pkg/archive"
	"github.com/srmlabs/logmill/pkg/jobregistry"
	"github.com/srmlabs/logmill/pkg/logjob"
	"github.com/srmlabs/logmill/pkg/logreader"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the aggregation job HTTP service",
	Long: `Run the HTTP service exposing aggregation jobs and direct log reads.

Example:
  logmill serve
  logmill serve --port 9000 --log-dir /var/log/app
  LOGMILL_ARCHIVE_ENABLED=true LOGMILL_ARCHIVE_BUCKET=my-artifacts logmill serve`,
	RunE: runServe,
}

var (
	serveHost   string
	servePort   int
	serveLogDir string
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", "", "Listen host (overrides config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Listen port (overrides config)")
	serveCmd.Flags().StringVar(&serveLogDir, "log-dir", "", "Log directory (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	overrides := map[string]any{}
	if serveHost != "" {
		overrides["server"] = map[string]any{"host": serveHost}
	}
	if servePort != 0 {
		srv, _ := overrides["server"].(map[string]any)
		if srv == nil {
			srv = map[string]any{}
		}
		srv["port"] = servePort
		overrides["server"] = srv
	}
	if serveLogDir != "" {
		overrides["logs"] = map[string]any{"dir": serveLogDir}
	}

	cfg, err := config.Load(ctx, overrides)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid configuration", err)
	}

	logger, err := observability.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid logging configuration", err)
	}
	defer func() { _ = logger.Sync() }()

	reader := logreader.New(logreader.Config{
		LogDir:           cfg.Logs.Dir,
		LiveFile:         cfg.Logs.LiveFile,
		HistoricalPrefix: cfg.Logs.HistoricalPrefix,
	})

	worker := aggregate.New(aggregate.Config{
		LogDir:    cfg.Logs.Dir,
		Delay:     cfg.Jobs.Delay,
		RateLimit: cfg.Jobs.RateLimit,
	}, logger)

	if cfg.Archive.Enabled {
		archiver, aerr := archive.NewS3(ctx, archive.Config{
			Bucket:          cfg.Archive.Bucket,
			Prefix:          cfg.Archive.Prefix,
			Region:          cfg.Archive.Region,
			Endpoint:        cfg.Archive.Endpoint,
			Profile:         cfg.Archive.Profile,
			AccessKeyID:     cfg.Archive.AccessKeyID,
			SecretAccessKey: cfg.Archive.SecretAccessKey,
			ForcePathStyle:  cfg.Archive.ForcePathStyle,
		})
		if aerr != nil {
			return exitError(foundry.ExitExternalServiceUnavailable, "Failed to connect to archive storage", aerr)
		}
		worker = worker.WithArchiver(archiver)
		logger.Info("Artifact archiving enabled",
			zap.String("bucket", cfg.Archive.Bucket),
			zap.String("prefix", cfg.Archive.Prefix))
	}

	service := logjob.NewService(jobregistry.New(), worker, logger)

	handlers.InitHealthManager(versionInfo.Version)
	handlers.GetHealthManager().RegisterChecker("logs", reader)

	srv := server.NewWithTimeouts(cfg.Server.Host, cfg.Server.Port, server.Deps{
		Jobs:   service,
		Reader: reader,
		Logger: logger,
	}, server.Timeouts{
		Read:  cfg.Server.ReadTimeout,
		Write: cfg.Server.WriteTimeout,
		Idle:  cfg.Server.IdleTimeout,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", zap.Error(err))
			return exitError(foundry.ExitExternalServiceUnavailable, "Server failed", err)
		}
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Shutdown did not complete cleanly", zap.Error(err))
	}

	// Let in-flight aggregation jobs reach a terminal state before exit.
	done := make(chan struct{})
	go func() {
		service.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(cfg.Server.ShutdownTimeout):
		logger.Warn("Timed out waiting for in-flight jobs")
	}

	logger.Info("Server stopped")
	return nil
}
