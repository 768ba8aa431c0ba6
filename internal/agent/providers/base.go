package providers

import (
	"context"
	"time"
)

// BaseProvider holds the retry settings shared by providers whose SDK
// doesn't already implement its own backoff (currently just Bedrock; the
// Anthropic and OpenAI adapters roll their own since their streaming APIs
// need the loop wrapped around stream creation, not a single call).
type BaseProvider struct {
	name       string
	maxRetries int
	retryDelay time.Duration
}

// NewBaseProvider fills in maxRetries/retryDelay defaults when the caller
// leaves them at zero.
func NewBaseProvider(name string, maxRetries int, retryDelay time.Duration) BaseProvider {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelay <= 0 {
		retryDelay = time.Second
	}
	return BaseProvider{name: name, maxRetries: maxRetries, retryDelay: retryDelay}
}

// Retry calls op until it succeeds, isRetryable rejects its error, the
// context is cancelled, or maxRetries is exhausted. Backoff is linear in the
// attempt number, not exponential — Bedrock calls are non-streaming request/
// response, so a blunter backoff is enough to ride out a transient throttle.
func (b *BaseProvider) Retry(ctx context.Context, isRetryable func(error) bool, op func() error) error {
	if op == nil {
		return nil
	}

	var lastErr error
	for attempt := 1; attempt <= b.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := op()
		if err == nil {
			return nil
		}
		lastErr = err

		if isRetryable == nil || !isRetryable(err) {
			return err
		}
		if attempt >= b.maxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(b.retryDelay * time.Duration(attempt)):
		}
	}
	return lastErr
}
