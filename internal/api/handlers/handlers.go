// Package handlers implements the HTTP endpoints of the statement API:
// statement upload, import status and transaction queries.
package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ledgerlane/statement-engine/internal/api/middleware"
	"github.com/ledgerlane/statement-engine/internal/domain"
	"github.com/ledgerlane/statement-engine/internal/jobs"
	"github.com/ledgerlane/statement-engine/internal/parse"
)

// maxUploadBytes bounds a statement upload. Statements are small; anything
// larger is not a statement.
const maxUploadBytes = 32 << 20

// ObjectPutter stores uploaded documents.
type ObjectPutter interface {
	Put(ctx context.Context, objectName string, data []byte) (string, error)
}

// TransactionSource answers date-range queries over persisted transactions.
type TransactionSource interface {
	TransactionsByDateRange(ctx context.Context, startDate, endDate string) ([]*domain.Transaction, error)
}

// StatementsHandler handles statement upload and import endpoints.
type StatementsHandler struct {
	objects   ObjectPutter
	publisher jobs.Publisher
	log       zerolog.Logger
}

// NewStatementsHandler creates a new statements handler.
func NewStatementsHandler(objects ObjectPutter, publisher jobs.Publisher, log zerolog.Logger) *StatementsHandler {
	return &StatementsHandler{
		objects:   objects,
		publisher: publisher,
		log:       log,
	}
}

// Upload handles POST /api/statements. The statement file arrives as
// multipart form data under "file"; the declared type defaults to the
// filename extension.
func (h *StatementsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	filename := filepath.Base(header.Filename)
	declaredType := r.FormValue("file_type")
	if declaredType == "" {
		declaredType = filepath.Ext(filename)
	}

	fileType, err := parse.TypeFromString(declaredType)
	if err != nil {
		middleware.WriteError(w, http.StatusUnsupportedMediaType, fmt.Sprintf("unsupported file type %q", declaredType))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "could not read upload")
		return
	}
	if len(data) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "uploaded file is empty")
		return
	}

	objectName := fmt.Sprintf("uploads/%s/%s-%s", time.Now().Format("2006/01/02"), uuid.NewString(), filename)
	uri, err := h.objects.Put(ctx, objectName, data)
	if err != nil {
		h.log.Error().Err(err).Str("file", filename).Msg("failed to store upload")
		middleware.WriteError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}

	job := &jobs.ImportJob{
		DocumentURI: uri,
		Filename:    filename,
		FileType:    string(fileType),
	}
	if err := h.publisher.PublishImport(ctx, job); err != nil {
		h.log.Error().Err(err).Str("uri", uri).Msg("failed to enqueue import")
		middleware.WriteError(w, http.StatusInternalServerError, "failed to enqueue import")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Str("file", filename).Str("uri", uri).Msg("statement import enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id":       job.JobID,
		"document_uri": uri,
		"status":       string(job.Status),
	})
}

// JobsHandler answers import status queries.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{store: store, log: log}
}

// GetJob handles GET /api/jobs/{id}.
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, "job not found")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs.
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := jobs.JobFilter{
		Status: jobs.JobStatus(query.Get("status")),
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}
	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}

// TransactionsHandler answers queries over persisted transactions.
type TransactionsHandler struct {
	source TransactionSource
	log    zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(source TransactionSource, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{source: source, log: log}
}

// ListTransactions handles GET /api/transactions?start_date=&end_date=.
func (h *TransactionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	startDate := query.Get("start_date")
	if startDate == "" {
		startDate = time.Now().AddDate(-1, 0, 0).Format(domain.DateFormat)
	}
	endDate := query.Get("end_date")
	if endDate == "" {
		endDate = time.Now().Format(domain.DateFormat)
	}
	for _, d := range []string{startDate, endDate} {
		if _, err := time.Parse(domain.DateFormat, d); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid date %q, want YYYY-MM-DD", d))
			return
		}
	}

	txs, err := h.source.TransactionsByDateRange(r.Context(), startDate, endDate)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to query transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "failed to query transactions")
		return
	}
	if txs == nil {
		txs = []*domain.Transaction{}
	}

	middleware.WriteJSON(w, http.StatusOK, txs)
}

// Health handles GET /healthz.
func Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
