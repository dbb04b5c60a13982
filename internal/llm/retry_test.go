package llm

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type fakeClient struct {
	failures  int
	calls     int
	response  string
	deltas    []string
	streamErr error
}

func (f *fakeClient) Complete(ctx context.Context, system string, messages []Message) (string, error) {
	f.calls++
	if f.calls <= f.failures {
		return "", errors.New("upstream unavailable")
	}
	return f.response, nil
}

func (f *fakeClient) Stream(ctx context.Context, system string, messages []Message, chunks chan<- string) (string, error) {
	f.calls++
	if f.calls <= f.failures {
		return "", errors.New("upstream unavailable")
	}
	var full string
	for _, d := range f.deltas {
		chunks <- d
		full += d
	}
	if f.streamErr != nil {
		return "", f.streamErr
	}
	return full, nil
}

func (f *fakeClient) ModelName() string { return "fake" }

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestRetryClientSucceedsAfterFailures(t *testing.T) {
	inner := &fakeClient{failures: 2, response: "ok"}
	client := NewRetryClient(inner, testLogger(), WithBaseDelay(time.Millisecond))

	text, err := client.Complete(context.Background(), "sys", []Message{UserMessage("hi")})
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, 3, inner.calls)
}

func TestRetryClientGivesUpAfterMaxAttempts(t *testing.T) {
	inner := &fakeClient{failures: 10}
	client := NewRetryClient(inner, testLogger(), WithBaseDelay(time.Millisecond), WithMaxAttempts(2))

	_, err := client.Complete(context.Background(), "sys", []Message{UserMessage("hi")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
	assert.Equal(t, 2, inner.calls)
}

func TestRetryClientStreamForwardsDeltas(t *testing.T) {
	inner := &fakeClient{failures: 1, deltas: []string{"hel", "lo"}}
	client := NewRetryClient(inner, testLogger(), WithBaseDelay(time.Millisecond))

	chunks := make(chan string, 8)
	text, err := client.Stream(context.Background(), "sys", []Message{UserMessage("hi")}, chunks)
	require.NoError(t, err)
	assert.Equal(t, "hello", text)

	close(chunks)
	var got []string
	for d := range chunks {
		got = append(got, d)
	}
	assert.Equal(t, []string{"hel", "lo"}, got)
}

func TestRetryClientStreamDoesNotRetryAfterFirstDelta(t *testing.T) {
	inner := &fakeClient{deltas: []string{"partial"}, streamErr: errors.New("connection reset")}
	client := NewRetryClient(inner, testLogger(), WithBaseDelay(time.Millisecond))

	chunks := make(chan string, 8)
	_, err := client.Stream(context.Background(), "sys", []Message{UserMessage("hi")}, chunks)
	require.Error(t, err)
	assert.Equal(t, 1, inner.calls, "partial stream must not be restarted")
}

func TestRetryClientRespectsContextDuringBackoff(t *testing.T) {
	inner := &fakeClient{failures: 10}
	client := NewRetryClient(inner, testLogger(), WithBaseDelay(time.Minute))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := client.Complete(ctx, "sys", []Message{UserMessage("hi")})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRetryClientAppliesLimiter(t *testing.T) {
	inner := &fakeClient{response: "ok"}
	limiter := rate.NewLimiter(rate.Every(time.Hour), 1)
	client := NewRetryClient(inner, testLogger(), WithLimiter(limiter))

	// First call consumes the only token.
	_, err := client.Complete(context.Background(), "sys", []Message{UserMessage("hi")})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = client.Complete(ctx, "sys", []Message{UserMessage("hi")})
	require.Error(t, err, "second call should block on the limiter until the context expires")
}
