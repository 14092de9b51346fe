package provider

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/sarvam-ai/turnengine/internal/reliability"
	"github.com/sarvam-ai/turnengine/internal/turn"
)

// checkpoint is satisfied by *turn.Token; kept as a narrow interface so the
// retry helper doesn't force every caller to depend on the concrete type.
type checkpoint interface {
	IsCancelled() bool
}

// Attempt runs fn up to policy.MaxAttempts times with capped exponential
// backoff between retries, honoring cancellation at every checkpoint: before
// the call, before each retry sleep, and after the call returns. fn must
// return an *ExternalProviderError to participate in retry classification;
// any other error is treated as permanent.
func Attempt(ctx context.Context, tok checkpoint, policy RetryPolicy, fn func(ctx context.Context) error) error {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		if tok != nil && tok.IsCancelled() {
			return &turn.Cancelled{}
		}

		err := fn(ctx)
		if tok != nil && tok.IsCancelled() {
			return &turn.Cancelled{}
		}
		if err == nil {
			return nil
		}
		lastErr = err

		var perr *ExternalProviderError
		if !errors.As(err, &perr) || !perr.Retryable {
			return err
		}

		if attempt == policy.MaxAttempts-1 {
			break
		}

		if tok != nil && tok.IsCancelled() {
			return &turn.Cancelled{}
		}

		delay := reliability.ExponentialBackoff(attempt, policy.BaseDelay, policy.CapDelay)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}

// ClassifyHTTPError builds an ExternalProviderError from an HTTP status code
// using the shared retryable-status classifier.
func ClassifyHTTPError(provider, op string, statusCode int, err error) *ExternalProviderError {
	return &ExternalProviderError{
		Provider:  provider,
		Op:        op,
		Retryable: reliability.IsRetryableHTTPStatus(statusCode),
		Err:       err,
	}
}

// ClassifyNetworkError treats timeouts and connection-level failures as
// retryable transient errors; anything else bubbles up as permanent.
func ClassifyNetworkError(provider, op string, err error) *ExternalProviderError {
	retryable := false
	var netErr net.Error
	if errors.As(err, &netErr) {
		retryable = true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		retryable = true
	}
	return &ExternalProviderError{
		Provider:  provider,
		Op:        op,
		Retryable: retryable,
		Err:       err,
	}
}
