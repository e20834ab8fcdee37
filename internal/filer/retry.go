package filer

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryClient wraps a Client with bounded retries and a fixed backoff.
// Transient session drops are the dominant failure mode against filers, so
// the wrapped session is re-established before every retry.
type RetryClient struct {
	inner    Client
	attempts uint
	delay    time.Duration
	logger   *slog.Logger
}

// NewRetryClient wraps inner with retry behavior. attempts counts total
// tries, not re-tries; values below 1 are raised to 1.
func NewRetryClient(inner Client, attempts uint, delay time.Duration, logger *slog.Logger) *RetryClient {
	if attempts < 1 {
		attempts = 1
	}
	return &RetryClient{
		inner:    inner,
		attempts: attempts,
		delay:    delay,
		logger:   logger,
	}
}

// Host identifies the monitored filer.
func (c *RetryClient) Host() string { return c.inner.Host() }

// Reconnect re-establishes the underlying session.
func (c *RetryClient) Reconnect(ctx context.Context) error {
	return c.inner.Reconnect(ctx)
}

// ListCounterMetadata retries the metadata call on failure.
func (c *RetryClient) ListCounterMetadata(ctx context.Context, object string) ([]CounterMeta, error) {
	return retry(ctx, c, "list counter metadata", func() ([]CounterMeta, error) {
		return c.inner.ListCounterMetadata(ctx, object)
	})
}

// ListInstances retries the instance listing on failure.
func (c *RetryClient) ListInstances(ctx context.Context, object string) ([]string, error) {
	return retry(ctx, c, "list instances", func() ([]string, error) {
		return c.inner.ListInstances(ctx, object)
	})
}

// GetCounterValues retries the batched value read on failure.
func (c *RetryClient) GetCounterValues(ctx context.Context, object string, instances []string) (*PerfValues, error) {
	return retry(ctx, c, "get counter values", func() (*PerfValues, error) {
		return c.inner.GetCounterValues(ctx, object, instances)
	})
}

func retry[T any](ctx context.Context, c *RetryClient, op string, fn func() (T, error)) (T, error) {
	first := true
	return backoff.Retry(ctx,
		func() (T, error) {
			if !first {
				if err := c.inner.Reconnect(ctx); err != nil {
					c.logger.Warn("session re-establish failed", "op", op, "error", err)
				}
			}
			first = false

			v, err := fn()
			if err != nil {
				c.logger.Warn("filer api call failed", "op", op, "error", err)
			}
			return v, err
		},
		backoff.WithBackOff(backoff.NewConstantBackOff(c.delay)),
		backoff.WithMaxTries(c.attempts),
	)
}
