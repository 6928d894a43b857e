// Package jobs defines the asynchronous statement-import queue contracts.
package jobs

import (
	"context"
	"time"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeImportStatement represents a statement import job.
	JobTypeImportStatement JobType = "import_statement"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusRetrying  JobStatus = "retrying"
)

// ImportReport summarizes what a completed import did.
type ImportReport struct {
	TransactionCount int     `json:"transaction_count"`
	Persisted        int     `json:"persisted"`
	Duplicates       int     `json:"duplicates"`
	Matches          int     `json:"matches"`
	Confidence       float64 `json:"confidence"`
	AnalysisFallback bool    `json:"analysis_fallback"`
}

// ImportJob is one statement waiting to be run through the pipeline.
type ImportJob struct {
	JobID string `json:"job_id"`

	// DocumentURI points at the uploaded statement in object storage.
	DocumentURI string `json:"document_uri"`
	Filename    string `json:"filename"`
	FileType    string `json:"file_type"`

	Status    JobStatus `json:"status"`
	CreatedAt time.Time `json:"created_at"`

	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Error string `json:"error,omitempty"`

	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`

	Report *ImportReport `json:"report,omitempty"`
}

// Publisher enqueues import jobs. The abstraction keeps the door open for a
// Cloud Tasks or Pub/Sub implementation alongside the in-memory one.
type Publisher interface {
	PublishImport(ctx context.Context, job *ImportJob) error
	Close() error
}

// Consumer drains the queue.
type Consumer interface {
	// Start begins consuming jobs. The handler runs for one job at a time;
	// processing is strictly sequential.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming and waits for the in-flight job to finish.
	Stop(ctx context.Context) error
}

// JobHandler processes one job. A returned error marks the job for retry.
type JobHandler func(ctx context.Context, job *ImportJob) error

// JobStore tracks job state so the API can answer status queries.
type JobStore interface {
	SaveJob(ctx context.Context, job *ImportJob) error
	GetJob(ctx context.Context, jobID string) (*ImportJob, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*ImportJob, error)
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	Status JobStatus
	Limit  int
	Offset int
}
