package llm

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = time.Second
)

// RetryClient wraps a provider client with exponential backoff and an
// outbound token-bucket limiter shared across all calls.
type RetryClient struct {
	inner       Client
	maxAttempts int
	baseDelay   time.Duration
	limiter     *rate.Limiter
	log         *slog.Logger
}

type RetryOption func(*RetryClient)

func WithMaxAttempts(n int) RetryOption {
	return func(c *RetryClient) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

func WithBaseDelay(d time.Duration) RetryOption {
	return func(c *RetryClient) {
		if d > 0 {
			c.baseDelay = d
		}
	}
}

// WithLimiter caps the rate of outbound model calls. A nil limiter
// disables outbound rate limiting.
func WithLimiter(l *rate.Limiter) RetryOption {
	return func(c *RetryClient) { c.limiter = l }
}

func NewRetryClient(inner Client, log *slog.Logger, opts ...RetryOption) *RetryClient {
	c := &RetryClient{
		inner:       inner,
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
		log:         log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *RetryClient) ModelName() string {
	return c.inner.ModelName()
}

func (c *RetryClient) Complete(ctx context.Context, system string, messages []Message) (string, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if err := c.wait(ctx, attempt); err != nil {
			return "", err
		}
		text, err := c.inner.Complete(ctx, system, messages)
		if err == nil {
			return text, nil
		}
		lastErr = err
		c.log.WarnContext(ctx, "model call failed", "attempt", attempt+1, "error", err)
	}
	return "", fmt.Errorf("model call failed after %d attempts: %w", c.maxAttempts, lastErr)
}

// Stream retries only while nothing has been emitted on chunks. Once the
// first delta is forwarded a failure is surfaced to the caller instead of
// restarting the stream, which would duplicate output.
func (c *RetryClient) Stream(ctx context.Context, system string, messages []Message, chunks chan<- string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if err := c.wait(ctx, attempt); err != nil {
			return "", err
		}

		var emitted atomic.Bool
		relay := make(chan string)
		done := make(chan struct{})
		go func() {
			defer close(done)
			for delta := range relay {
				emitted.Store(true)
				select {
				case chunks <- delta:
				case <-ctx.Done():
					return
				}
			}
		}()

		text, err := c.inner.Stream(ctx, system, messages, relay)
		close(relay)
		<-done

		if err == nil {
			return text, nil
		}
		if emitted.Load() {
			return "", err
		}
		lastErr = err
		c.log.WarnContext(ctx, "model stream failed", "attempt", attempt+1, "error", err)
	}
	return "", fmt.Errorf("model call failed after %d attempts: %w", c.maxAttempts, lastErr)
}

// wait applies the outbound limiter, plus exponential backoff before retries.
func (c *RetryClient) wait(ctx context.Context, attempt int) error {
	if attempt > 0 {
		delay := c.baseDelay << (attempt - 1)
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}
	return nil
}
