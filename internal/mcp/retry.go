package mcp

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// retryConnect wraps a transport connect attempt with exponential backoff.
// Reconnect attempts are transient by nature (the remote process or socket
// may not be ready yet); ctx cancellation always stops the retry loop
// immediately rather than letting backoff keep spinning.
func retryConnect(ctx context.Context, connect func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = DefaultConnectTimeout
	b.RandomizationFactor = 0.2

	return backoff.Retry(func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		if err := connect(); err != nil {
			return err
		}
		return nil
	}, backoff.WithContext(b, ctx))
}
