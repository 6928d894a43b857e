package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries every externally-tunable setting of the engine. It is
// loaded once at process start and injected into constructors; nothing in
// the engine reads the environment lazily.
type Config struct {
	// GCP
	ProjectID string
	DatasetID string
	GCSBucket string

	// AI analysis
	ModelName   string
	AIRetries   int
	Temperature float32

	// OCR service
	OCRBaseURL      string
	OCRAPIKey       string
	OCRPollAttempts int
	OCRPollInterval time.Duration

	// Batch processing
	BatchInterval time.Duration

	// HTTP API
	Port string
}

// Load reads configuration from the environment, with optional .env support.
// Missing optional values fall back to defaults; ProjectID is required.
func Load() (*Config, error) {
	// Best effort: a missing .env file is fine.
	_ = godotenv.Load()

	cfg := &Config{
		ProjectID:       os.Getenv("GCP_PROJECT_ID"),
		DatasetID:       getEnv("BQ_DATASET", "finance"),
		GCSBucket:       os.Getenv("GCS_BUCKET"),
		ModelName:       getEnv("AI_MODEL", "gemini-2.5-flash"),
		AIRetries:       getEnvInt("AI_RETRIES", 3),
		Temperature:     0.1,
		OCRBaseURL:      os.Getenv("OCR_BASE_URL"),
		OCRAPIKey:       os.Getenv("OCR_API_KEY"),
		OCRPollAttempts: getEnvInt("OCR_POLL_ATTEMPTS", 60),
		OCRPollInterval: getEnvDuration("OCR_POLL_INTERVAL", time.Second),
		BatchInterval:   getEnvDuration("BATCH_INTERVAL", time.Second),
		Port:            getEnv("PORT", "8080"),
	}

	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("config: GCP_PROJECT_ID is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
