// Package storage keeps uploaded statement documents in a bucket while they
// move through the pipeline. Objects are addressed by gs:// URI.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"

	"github.com/ledgerlane/statement-engine/internal/logger"
)

// uploadTimeout bounds a single object upload.
const uploadTimeout = 2 * time.Minute

// ObjectStore is the document storage contract of the pipeline.
type ObjectStore interface {
	// Put stores the bytes under the object name and returns the gs:// URI.
	Put(ctx context.Context, objectName string, data []byte) (string, error)
	// Fetch downloads the object behind the URI.
	Fetch(ctx context.Context, uri string) ([]byte, error)
	// Delete removes the object behind the URI.
	Delete(ctx context.Context, uri string) error
}

// GCSStore is the Cloud Storage implementation. The client is injected and
// shared; assumes Application Default Credentials.
type GCSStore struct {
	client *storage.Client
	bucket string
}

func NewGCSStore(client *storage.Client, bucket string) *GCSStore {
	return &GCSStore{client: client, bucket: bucket}
}

func (s *GCSStore) Put(ctx context.Context, objectName string, data []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(objectName).NewWriter(ctx)
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("Put: copy to object writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("Put: finalize upload: %w", err)
	}
	return fmt.Sprintf("gs://%s/%s", s.bucket, objectName), nil
}

func (s *GCSStore) Fetch(ctx context.Context, uri string) ([]byte, error) {
	bucket, object, err := SplitURI(uri)
	if err != nil {
		return nil, err
	}

	rc, err := s.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("Fetch: reading object %s/%s: %w", bucket, object, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("Fetch: reading bytes: %w", err)
	}
	return data, nil
}

// Delete removes the intermediate document. Callers treat failures as
// non-fatal; the object lifecycle policy on the bucket is the backstop.
func (s *GCSStore) Delete(ctx context.Context, uri string) error {
	bucket, object, err := SplitURI(uri)
	if err != nil {
		return err
	}
	if err := s.client.Bucket(bucket).Object(object).Delete(ctx); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Str("uri", uri).Msg("could not delete intermediate object")
		return fmt.Errorf("Delete: %s: %w", uri, err)
	}
	return nil
}

// SplitURI decomposes a gs://bucket/path/to/object URI.
func SplitURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}

// FilenameOf extracts the base filename from a gs:// URI.
func FilenameOf(uri string) string {
	trimmed := strings.TrimPrefix(uri, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) < 2 {
		return trimmed
	}
	return path.Base(parts[1])
}
