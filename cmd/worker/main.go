// The worker consumes queued statement imports and runs them through the
// pipeline, one at a time.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ledgerlane/statement-engine/internal/app"
	"github.com/ledgerlane/statement-engine/internal/config"
	"github.com/ledgerlane/statement-engine/internal/jobs"
	"github.com/ledgerlane/statement-engine/internal/jobs/inmemory"
	"github.com/ledgerlane/statement-engine/internal/logger"
)

func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	application, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build application")
	}
	defer application.Close()

	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore, cfg.BatchInterval)

	handler := func(ctx context.Context, job *jobs.ImportJob) error {
		report, err := application.Engine.Run(ctx, job)
		if err != nil {
			return err
		}
		job.Report = report
		return nil
	}

	if err := jobQueue.Start(ctx, handler); err != nil {
		log.Fatal().Err(err).Msg("failed to start job consumer")
	}

	log.Info().Msg("worker started, waiting for jobs")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down worker")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during graceful shutdown")
	}
}
