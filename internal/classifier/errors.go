package classifier

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"tariffbench/internal/domain"
)

// RateLimitError indicates a classifier provider returned HTTP 429.
type RateLimitError struct {
	Err        error
	RetryAfter time.Duration
	Provider   string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s rate limited (retry after %s): %v", e.Provider, e.RetryAfter, e.Err)
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// NewRateLimitError creates a RateLimitError. If retryAfterSecs is 0, defaults to 60s.
func NewRateLimitError(provider string, err error, retryAfterSecs int) *RateLimitError {
	if retryAfterSecs <= 0 {
		retryAfterSecs = 60
	}
	return &RateLimitError{
		Err:        err,
		RetryAfter: time.Duration(retryAfterSecs) * time.Second,
		Provider:   provider,
	}
}

// ParseRetryAfterHeader parses a Retry-After header value into seconds.
// Returns 0 if the value is empty or not a valid integer.
func ParseRetryAfterHeader(val string) int {
	if val == "" {
		return 0
	}
	secs, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	return secs
}

// MalformedResponseError indicates the model's reply failed schema validation
// or carried a code that is not an HTS code. It is never retried: the same
// prompt would yield the same malformed shape.
type MalformedResponseError struct {
	Provider string
	Reason   string
	Raw      string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s returned a malformed classification: %s", e.Provider, e.Reason)
}

func (e *MalformedResponseError) Unwrap() error {
	return domain.ErrMalformedResponse
}

// IsRetryable reports whether a classification error is worth another
// attempt. Malformed responses and cancellations are terminal; rate limits
// are handled by the provider fallback's circuits, not by blind retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var malformed *MalformedResponseError
	if errors.As(err, &malformed) {
		return false
	}
	var rateLimited *RateLimitError
	return !errors.As(err, &rateLimited)
}
