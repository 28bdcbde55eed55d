package textgen

import (
	"context"
	"time"

	"github.com/crateguide/crateguide/internal/retry"
)

// ResilientRunner wraps a Runner with retry logic and a per-call timeout.
// Non-retryable errors (bad API key, malformed request) fail immediately.
type ResilientRunner struct {
	inner       Runner
	retryConfig retry.RetryConfig
	timeout     time.Duration
}

// NewResilientRunner wraps the given runner with the text-generation retry
// policy. A zero timeout disables the per-call deadline.
func NewResilientRunner(inner Runner, timeout time.Duration) *ResilientRunner {
	return &ResilientRunner{
		inner:       inner,
		retryConfig: retry.TextGenRetryConfig(),
		timeout:     timeout,
	}
}

// Run implements Runner.
func (r *ResilientRunner) Run(ctx context.Context, req Request) (string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	var response string
	var permanentErr error
	result := retry.RetryWithBackoffAndReason(ctx, r.retryConfig, func() (error, string) {
		text, err := r.inner.Run(ctx, req)
		if err != nil {
			if retry.IsRetryableError(err) {
				return err, err.Error()
			}
			// Returning nil stops the retry loop; the permanent error is
			// surfaced below.
			permanentErr = err
			return nil, "non_retryable"
		}
		response = text
		return nil, "success"
	})

	if permanentErr != nil {
		return "", permanentErr
	}
	if !result.Success {
		return "", result.LastError
	}
	return response, nil
}
