package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryConnectSucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	err := retryConnect(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("connection refused")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryConnectStopsOnContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts := 0
	err := retryConnect(ctx, func() error {
		attempts++
		return errors.New("connection refused")
	})
	assert.Error(t, err)
	assert.Equal(t, 0, attempts)
}
