package modtl

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"
)

// RetryPolicy holds configuration for retry behavior. It is immutable once
// built and may be shared between workers.
type RetryPolicy struct {
	MaxRetries int           // Maximum number of retries after the first call
	BaseDelay  time.Duration // Delay before the first retry
	MaxDelay   time.Duration // Upper bound for any single delay
}

// DefaultRetryPolicy returns sensible defaults for provider calls.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 5,
		BaseDelay:  1 * time.Second,
		MaxDelay:   30 * time.Second,
	}
}

// RetryDecision is the outcome of Evaluate.
type RetryDecision struct {
	ShouldRetry bool
	Delay       time.Duration
	UsedHint    bool
}

// Evaluate decides whether a failed call should be retried and after what
// delay. previousAttempts is the number of retries already made. Rules are
// applied in order:
//
//  1. previousAttempts >= MaxRetries: stop.
//  2. fatal errors: stop.
//  3. HTTP errors with a status other than 408, 429 or 5xx: stop.
//  4. a server hint: wait min(hint, MaxDelay).
//  5. otherwise: wait min(BaseDelay * 2^previousAttempts, MaxDelay).
//
// Evaluate never blocks.
func Evaluate(err error, policy RetryPolicy, previousAttempts int) RetryDecision {
	if err == nil || previousAttempts >= policy.MaxRetries {
		return RetryDecision{}
	}

	pe := Classify(err)
	switch pe.Class {
	case ClassFatal:
		return RetryDecision{}
	case ClassHTTP:
		if !RetryableStatus(pe.StatusCode) {
			return RetryDecision{}
		}
	}

	if pe.Hint != nil {
		return RetryDecision{ShouldRetry: true, Delay: min(pe.Hint.Delay, policy.MaxDelay), UsedHint: true}
	}
	return RetryDecision{ShouldRetry: true, Delay: backoff(policy, previousAttempts)}
}

// RetryableStatus reports whether an HTTP status is worth retrying.
func RetryableStatus(code int) bool {
	return code == 408 || code == 429 || (code >= 500 && code <= 599)
}

// backoff computes BaseDelay * 2^n capped at MaxDelay without overflowing.
func backoff(policy RetryPolicy, n int) time.Duration {
	d := policy.BaseDelay
	for i := 0; i < n && d < policy.MaxDelay; i++ {
		if d > policy.MaxDelay/2 {
			return policy.MaxDelay
		}
		d *= 2
	}
	return min(d, policy.MaxDelay)
}

// IsRetryable reports whether err could be retried under a policy with
// retries left.
func IsRetryable(err error) bool {
	return Evaluate(err, RetryPolicy{MaxRetries: 1, MaxDelay: time.Second}, 0).ShouldRetry
}

func isNetError(err error) bool {
	var ne net.Error
	return errors.As(err, &ne)
}

// RetryFunc is a function that can be retried.
type RetryFunc[T any] func() (T, error)

// RetryObserver is notified about every retry decision.
type RetryObserver func(attempt int, err error, d RetryDecision)

// WithRetry calls fn until it succeeds or Evaluate says stop. Waiting is
// interrupted as soon as ctx is done. When the policy gives up on a
// retryable error the result is a *RetryFailedError wrapping the last error;
// non-retryable errors are returned unchanged.
func WithRetry[T any](ctx context.Context, policy RetryPolicy, fn RetryFunc[T], observers ...RetryObserver) (T, error) {
	var zero T

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}

		d := Evaluate(err, policy, attempt)
		for _, o := range observers {
			o(attempt, err, d)
		}
		if !d.ShouldRetry {
			if attempt >= policy.MaxRetries && IsRetryable(err) {
				return zero, &RetryFailedError{Attempts: attempt + 1, Cause: err}
			}
			return zero, err
		}

		if err := sleepContext(ctx, d.Delay); err != nil {
			return zero, err
		}
	}
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RetryableProvider wraps an AIProvider with retry logic.
type RetryableProvider struct {
	provider AIProvider
	policy   RetryPolicy
	limiter  *RateLimiter
	metrics  *Metrics
	logger   *slog.Logger
}

// RetryOption configures a RetryableProvider.
type RetryOption func(*RetryableProvider)

// WithRetryLimiter makes server-hinted delays pause the shared limiter, so
// every worker using it backs off together.
func WithRetryLimiter(l *RateLimiter) RetryOption {
	return func(p *RetryableProvider) {
		p.limiter = l
	}
}

// WithRetryMetrics records retry decisions.
func WithRetryMetrics(m *Metrics) RetryOption {
	return func(p *RetryableProvider) {
		p.metrics = m
	}
}

// WithRetryLogger sets the logger for retry notices.
func WithRetryLogger(l *slog.Logger) RetryOption {
	return func(p *RetryableProvider) {
		p.logger = l
	}
}

// NewRetryableProvider creates a new provider with retry logic.
func NewRetryableProvider(provider AIProvider, policy RetryPolicy, opts ...RetryOption) *RetryableProvider {
	p := &RetryableProvider{
		provider: provider,
		policy:   policy,
		logger:   discardLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Translate implements AIProvider with retry logic.
func (p *RetryableProvider) Translate(ctx context.Context, req TranslateRequest) ([]string, error) {
	return WithRetry(ctx, p.policy, func() ([]string, error) {
		return p.provider.Translate(ctx, req)
	}, p.observe)
}

// Policy returns the retry policy.
func (p *RetryableProvider) Policy() RetryPolicy {
	return p.policy
}

func (p *RetryableProvider) observe(attempt int, err error, d RetryDecision) {
	p.metrics.observeRetry(d)
	if !d.ShouldRetry {
		return
	}
	if d.UsedHint && p.limiter != nil {
		p.limiter.Pause(d.Delay)
	}
	p.logger.Warn("provider call failed, retrying",
		"attempt", attempt+1,
		"delay", d.Delay,
		"used_hint", d.UsedHint,
		"error", err,
	)
}
