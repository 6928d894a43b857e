// Package app wires the production collaborators into a ready pipeline
// engine. Commands construct an App once at startup and share it.
package app

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	gcs "cloud.google.com/go/storage"
	"github.com/rs/zerolog"

	"github.com/ledgerlane/statement-engine/internal/analysis"
	"github.com/ledgerlane/statement-engine/internal/config"
	"github.com/ledgerlane/statement-engine/internal/dedupe"
	infrabq "github.com/ledgerlane/statement-engine/internal/infra/bigquery"
	"github.com/ledgerlane/statement-engine/internal/ocr"
	"github.com/ledgerlane/statement-engine/internal/parse"
	"github.com/ledgerlane/statement-engine/internal/pipeline"
	"github.com/ledgerlane/statement-engine/internal/reconcile"
	"github.com/ledgerlane/statement-engine/internal/storage"
)

// App bundles the long-lived clients and the assembled pipeline engine.
type App struct {
	Config  *config.Config
	Engine  *pipeline.Engine
	Store   *infrabq.Store
	Objects *storage.GCSStore

	bqClient  *bigquery.Client
	gcsClient *gcs.Client
}

// New builds the production wiring. Both GCP clients use Application
// Default Credentials.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	bqClient, err := bigquery.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("app: bigquery client: %w", err)
	}

	gcsClient, err := gcs.NewClient(ctx)
	if err != nil {
		bqClient.Close()
		return nil, fmt.Errorf("app: storage client: %w", err)
	}

	completer, err := analysis.NewGeminiCompleter(ctx, cfg.ModelName, cfg.Temperature)
	if err != nil {
		bqClient.Close()
		gcsClient.Close()
		return nil, fmt.Errorf("app: gemini completer: %w", err)
	}

	if cfg.OCRBaseURL == "" {
		log.Warn().Msg("OCR_BASE_URL not set, PDF imports will fail")
	}

	store := infrabq.NewStore(bqClient, cfg.DatasetID)
	objects := storage.NewGCSStore(gcsClient, cfg.GCSBucket)

	poller := &ocr.Poller{
		Client:   ocr.NewHTTPClient(cfg.OCRBaseURL, cfg.OCRAPIKey),
		Attempts: cfg.OCRPollAttempts,
		Interval: cfg.OCRPollInterval,
	}

	engine := &pipeline.Engine{
		Objects: objects,
		ParserDeps: parse.Deps{
			OCR:       poller,
			Extractor: analysis.NewExtractor(completer),
		},
		History:    store,
		Invoices:   store,
		Analyzer:   analysis.NewOrchestrator(completer, cfg.AIRetries),
		Reconciler: reconcile.New(store),
		Gate:       dedupe.NewGate(store),
	}

	return &App{
		Config:    cfg,
		Engine:    engine,
		Store:     store,
		Objects:   objects,
		bqClient:  bqClient,
		gcsClient: gcsClient,
	}, nil
}

// Close releases the shared clients.
func (a *App) Close() {
	a.bqClient.Close()
	a.gcsClient.Close()
}
