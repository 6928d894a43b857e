// Ingest imports a single local statement file synchronously: upload to the
// bucket, run the pipeline, print the report.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerlane/statement-engine/internal/app"
	"github.com/ledgerlane/statement-engine/internal/config"
	"github.com/ledgerlane/statement-engine/internal/jobs"
	"github.com/ledgerlane/statement-engine/internal/logger"
	"github.com/ledgerlane/statement-engine/internal/parse"
)

func main() {
	log := logger.New()

	filePath := flag.String("file", "", "path to the statement file (csv, xls, xlsx or pdf)")
	fileType := flag.String("type", "", "declared file type, defaults to the file extension")
	flag.Parse()

	if *filePath == "" {
		log.Fatal().Msg("--file is required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	declared := *fileType
	if declared == "" {
		declared = filepath.Ext(*filePath)
	}
	t, err := parse.TypeFromString(declared)
	if err != nil {
		log.Fatal().Err(err).Msg("unsupported file type")
	}

	data, err := os.ReadFile(*filePath)
	if err != nil {
		log.Fatal().Err(err).Str("file", *filePath).Msg("could not read file")
	}

	application, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build application")
	}
	defer application.Close()

	filename := filepath.Base(*filePath)
	objectName := fmt.Sprintf("uploads/%s/%s-%s", time.Now().Format("2006/01/02"), uuid.NewString(), filename)

	uri, err := application.Objects.Put(ctx, objectName, data)
	if err != nil {
		log.Fatal().Err(err).Msg("upload failed")
	}

	job := &jobs.ImportJob{
		JobID:       uuid.NewString(),
		DocumentURI: uri,
		Filename:    filename,
		FileType:    string(t),
	}

	log.Info().Str("file", filename).Str("uri", uri).Msg("starting import")

	report, err := application.Engine.Run(ctx, job)
	if err != nil {
		log.Fatal().Err(err).Msg("import failed")
	}

	fmt.Printf("imported %s: %d transactions, %d persisted, %d duplicates, %d invoice matches (confidence %.2f)\n",
		filename, report.TransactionCount, report.Persisted, report.Duplicates, report.Matches, report.Confidence)
}
