package llm

import (
	"context"
	"errors"

	"github.com/portops/triage-cli/internal/resilience"
)

// WithRetry wraps c so transient completion failures (timeouts, rate
// limits, server-side errors) are retried with backoff before the
// caller sees them. Configuration errors, client errors, and malformed
// responses surface on the first attempt.
func WithRetry(c Client, cfg resilience.RetryConfig) Client {
	cfg.ShouldRetry = retryable
	return &retrying{inner: c, cfg: cfg}
}

type retrying struct {
	inner Client
	cfg   resilience.RetryConfig
}

func (r *retrying) Complete(ctx context.Context, req Request) (string, error) {
	cfg := r.cfg
	if cfg.OnRetry == nil {
		cfg.OnRetry = resilience.RetryLogger(r.inner.Provider(), req.Operation)
	}
	return resilience.DoVal(ctx, cfg, func(ctx context.Context) (string, error) {
		return r.inner.Complete(ctx, req)
	})
}

func (r *retrying) Configured() bool { return r.inner.Configured() }

func (r *retrying) Provider() string { return r.inner.Provider() }

// retryable maps classified completion failures onto the retry
// decision. Transport errors and throttling or 5xx statuses retry;
// every other Kind is permanent.
func retryable(err error) bool {
	var cerr *Error
	if !errors.As(err, &cerr) {
		return resilience.IsTransient(err)
	}
	switch cerr.Kind {
	case KindTransport:
		return true
	case KindAPI:
		return resilience.IsTransientHTTPStatus(cerr.Status)
	default:
		return false
	}
}
