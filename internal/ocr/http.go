package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// HTTPClient talks to the OCR service over its JSON API: POST /v1/jobs to
// submit a document, GET /v1/jobs/{id} to poll. Pagination of large results
// uses the page_token query parameter.
type HTTPClient struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

// NewHTTPClient builds a client with a sane request timeout. The timeout
// covers one HTTP round trip, not the whole OCR job; the Poller owns the
// overall budget.
func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

type submitRequest struct {
	Filename string `json:"filename"`
	Content  string `json:"content"` // base64
}

type submitResponse struct {
	JobID string `json:"job_id"`
}

type pollResponse struct {
	Status        string   `json:"status"`
	Lines         []string `json:"lines"`
	NextPageToken string   `json:"next_page_token"`
	Error         string   `json:"error"`
}

// Submit uploads the document and returns the job handle.
func (c *HTTPClient) Submit(ctx context.Context, data []byte, filename string) (JobHandle, error) {
	body, err := json.Marshal(submitRequest{
		Filename: filename,
		Content:  base64.StdEncoding.EncodeToString(data),
	})
	if err != nil {
		return "", fmt.Errorf("Submit: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/jobs", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("Submit: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("Submit: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return "", fmt.Errorf("Submit: unexpected status %s", resp.Status)
	}

	var sr submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return "", fmt.Errorf("Submit: decode response: %w", err)
	}
	if sr.JobID == "" {
		return "", fmt.Errorf("Submit: response carried no job id")
	}
	return JobHandle(sr.JobID), nil
}

// Poll fetches the current job state, optionally continuing a paginated
// result.
func (c *HTTPClient) Poll(ctx context.Context, handle JobHandle, continuation string) (*PollResult, error) {
	u := fmt.Sprintf("%s/v1/jobs/%s", c.BaseURL, url.PathEscape(string(handle)))
	if continuation != "" {
		u += "?page_token=" + url.QueryEscape(continuation)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("Poll: build request: %w", err)
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Poll: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Poll: unexpected status %s", resp.Status)
	}

	var pr pollResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return nil, fmt.Errorf("Poll: decode response: %w", err)
	}

	switch pr.Status {
	case "running", "pending":
		return &PollResult{Status: StatusRunning}, nil
	case "succeeded":
		return &PollResult{Status: StatusSucceeded, Lines: pr.Lines, ContinuationToken: pr.NextPageToken}, nil
	case "failed":
		return nil, fmt.Errorf("Poll: job failed: %s", pr.Error)
	default:
		return nil, fmt.Errorf("Poll: unknown job status %q", pr.Status)
	}
}

var _ Client = (*HTTPClient)(nil)
