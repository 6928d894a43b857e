// Package ocr defines the contract with the external optical-character-
// recognition service and the bounded polling loop the engine runs against
// it. The service itself lives outside this repository.
package ocr

import (
	"context"
	"fmt"
	"time"

	"github.com/ledgerlane/statement-engine/internal/domain"
	"github.com/ledgerlane/statement-engine/internal/logger"
)

// JobHandle identifies a submitted OCR job.
type JobHandle string

// Status of an OCR job as reported by Poll.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// PollResult is one page of OCR output. A non-empty ContinuationToken means
// more pages follow and must be fetched with another Poll call.
type PollResult struct {
	Status            Status
	Lines             []string
	ContinuationToken string
}

// Client is the OCR collaborator boundary.
type Client interface {
	Submit(ctx context.Context, data []byte, filename string) (JobHandle, error)
	Poll(ctx context.Context, handle JobHandle, continuation string) (*PollResult, error)
}

// Poller wraps a Client with the engine's polling policy: a fixed attempt
// budget at a fixed interval, with pagination continuation.
type Poller struct {
	Client   Client
	Attempts int           // total poll attempts before giving up
	Interval time.Duration // pause between attempts
}

// NewPoller applies the default ~60 second ceiling (60 attempts at 1s).
func NewPoller(client Client) *Poller {
	return &Poller{Client: client, Attempts: 60, Interval: time.Second}
}

// CollectLines submits the document and polls until the job finishes,
// following pagination until the continuation token runs out. It honors
// context cancellation between attempts and fails with a ServiceError once
// the attempt budget is exhausted.
func (p *Poller) CollectLines(ctx context.Context, data []byte, filename string) ([]string, error) {
	log := logger.FromContext(ctx)

	handle, err := p.Client.Submit(ctx, data, filename)
	if err != nil {
		return nil, &domain.ServiceError{Service: "ocr", Err: fmt.Errorf("submit %s: %w", filename, err)}
	}

	var lines []string
	continuation := ""

	for attempt := 1; attempt <= p.Attempts; attempt++ {
		res, err := p.Client.Poll(ctx, handle, continuation)
		if err != nil {
			return nil, &domain.ServiceError{Service: "ocr", Err: fmt.Errorf("poll %s: %w", handle, err)}
		}

		switch res.Status {
		case StatusFailed:
			return nil, &domain.ServiceError{Service: "ocr", Err: fmt.Errorf("job %s failed", handle)}
		case StatusSucceeded:
			lines = append(lines, res.Lines...)
			if res.ContinuationToken == "" {
				return lines, nil
			}
			// More pages: continue polling immediately with the token.
			continuation = res.ContinuationToken
			continue
		}

		log.Debug().Str("handle", string(handle)).Int("attempt", attempt).Msg("ocr job still running")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(p.Interval):
		}
	}

	return nil, &domain.ServiceError{
		Service: "ocr",
		Err:     fmt.Errorf("job %s did not finish within %d attempts", handle, p.Attempts),
	}
}
