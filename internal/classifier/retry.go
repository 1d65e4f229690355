package classifier

import (
	"context"
	"log/slog"
	"time"

	"tariffbench/internal/domain"
	"tariffbench/internal/port"
)

// RetryPolicy bounds how often a classification is reattempted on transient
// failures. Malformed responses and rate limits are never blind-retried; the
// fallback layer handles rate limits via circuits.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultRetryPolicy retries twice after the first attempt, with 1s then 2s
// between attempts.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second}
}

// RetryingClassifier wraps a Classifier with a RetryPolicy. It implements
// port.Classifier.
type RetryingClassifier struct {
	inner  port.Classifier
	policy RetryPolicy
	logger *slog.Logger
}

func NewRetryingClassifier(inner port.Classifier, policy RetryPolicy, logger *slog.Logger) *RetryingClassifier {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RetryingClassifier{inner: inner, policy: policy, logger: logger}
}

func (r *RetryingClassifier) Classify(ctx context.Context, input port.ClassifyInput) (*domain.Classification, error) {
	var lastErr error
	delay := r.policy.BaseDelay

	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		out, err := r.inner.Classify(ctx, input)
		if err == nil {
			return out, nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return nil, err
		}
		if attempt == r.policy.MaxAttempts {
			break
		}

		r.logger.Warn("classification attempt failed, retrying",
			"attempt", attempt,
			"max_attempts", r.policy.MaxAttempts,
			"delay", delay.String(),
			"error", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	return nil, lastErr
}
