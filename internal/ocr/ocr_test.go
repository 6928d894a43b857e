package ocr

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerlane/statement-engine/internal/domain"
)

// mockClient scripts a sequence of poll results.
type mockClient struct {
	submitErr error
	results   []*PollResult
	pollErr   error
	polls     int
}

func (m *mockClient) Submit(ctx context.Context, data []byte, filename string) (JobHandle, error) {
	if m.submitErr != nil {
		return "", m.submitErr
	}
	return "job-1", nil
}

func (m *mockClient) Poll(ctx context.Context, handle JobHandle, continuation string) (*PollResult, error) {
	if m.pollErr != nil {
		return nil, m.pollErr
	}
	if m.polls >= len(m.results) {
		return &PollResult{Status: StatusRunning}, nil
	}
	res := m.results[m.polls]
	m.polls++
	return res, nil
}

func fastPoller(c Client, attempts int) *Poller {
	return &Poller{Client: c, Attempts: attempts, Interval: time.Millisecond}
}

func TestCollectLinesSinglePage(t *testing.T) {
	client := &mockClient{results: []*PollResult{
		{Status: StatusRunning},
		{Status: StatusSucceeded, Lines: []string{"a", "b"}},
	}}

	lines, err := fastPoller(client, 5).CollectLines(context.Background(), []byte("pdf"), "s.pdf")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, lines)
}

func TestCollectLinesPagination(t *testing.T) {
	client := &mockClient{results: []*PollResult{
		{Status: StatusSucceeded, Lines: []string{"page1"}, ContinuationToken: "next"},
		{Status: StatusSucceeded, Lines: []string{"page2"}},
	}}

	lines, err := fastPoller(client, 5).CollectLines(context.Background(), nil, "s.pdf")
	require.NoError(t, err)
	assert.Equal(t, []string{"page1", "page2"}, lines)
}

func TestCollectLinesBudgetExhausted(t *testing.T) {
	client := &mockClient{} // always running
	_, err := fastPoller(client, 3).CollectLines(context.Background(), nil, "s.pdf")

	var svcErr *domain.ServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.Equal(t, "ocr", svcErr.Service)
}

func TestCollectLinesJobFailure(t *testing.T) {
	client := &mockClient{results: []*PollResult{{Status: StatusFailed}}}
	_, err := fastPoller(client, 3).CollectLines(context.Background(), nil, "s.pdf")

	var svcErr *domain.ServiceError
	require.True(t, errors.As(err, &svcErr))
}

func TestCollectLinesCancellation(t *testing.T) {
	client := &mockClient{} // never finishes
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := (&Poller{Client: client, Attempts: 10, Interval: time.Second}).
		CollectLines(ctx, nil, "s.pdf")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCollectLinesSubmitFailure(t *testing.T) {
	client := &mockClient{submitErr: errors.New("boom")}
	_, err := fastPoller(client, 3).CollectLines(context.Background(), nil, "s.pdf")

	var svcErr *domain.ServiceError
	require.True(t, errors.As(err, &svcErr))
}
