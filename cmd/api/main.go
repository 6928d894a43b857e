// The api server accepts statement uploads over HTTP, queues them for the
// embedded worker and answers status and transaction queries.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ledgerlane/statement-engine/internal/api/handlers"
	"github.com/ledgerlane/statement-engine/internal/api/middleware"
	"github.com/ledgerlane/statement-engine/internal/app"
	"github.com/ledgerlane/statement-engine/internal/config"
	"github.com/ledgerlane/statement-engine/internal/jobs"
	"github.com/ledgerlane/statement-engine/internal/jobs/inmemory"
	"github.com/ledgerlane/statement-engine/internal/logger"
)

func main() {
	log := logger.New()

	port := flag.String("port", "", "HTTP server port, overrides PORT")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if *port != "" {
		cfg.Port = *port
	}

	ctx := logger.WithContext(context.Background(), log)

	application, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build application")
	}
	defer application.Close()

	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore, cfg.BatchInterval)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	handler := func(ctx context.Context, job *jobs.ImportJob) error {
		report, err := application.Engine.Run(ctx, job)
		if err != nil {
			return err
		}
		job.Report = report
		return nil
	}
	if err := jobQueue.Start(workerCtx, handler); err != nil {
		log.Fatal().Err(err).Msg("failed to start job consumer")
	}

	statementsHandler := handlers.NewStatementsHandler(application.Objects, jobQueue, log)
	transactionsHandler := handlers.NewTransactionsHandler(application.Store, log)
	jobsHandler := handlers.NewJobsHandler(jobStore, log)

	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", handlers.Health)

	mux.HandleFunc("/api/statements", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			statementsHandler.Upload(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	})

	mux.HandleFunc("/api/transactions", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			transactionsHandler.ListTransactions(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobsHandler.ListJobs(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
		if jobID == "" {
			middleware.WriteError(w, http.StatusBadRequest, "job id is required")
			return
		}
		jobsHandler.GetJob(w, r, jobID)
	})

	var root http.Handler = mux
	root = middleware.Logger(log)(root)
	root = middleware.RequestID(root)
	root = middleware.Recovery(log)(root)
	root = middleware.CORS(root)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("api server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down api server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}

	cancelWorker()
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("queue shutdown error")
	}
}
