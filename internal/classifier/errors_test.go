package classifier_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"tariffbench/internal/classifier"
)

func TestNewRateLimitError(t *testing.T) {
	base := errors.New("429 too many requests")

	e := classifier.NewRateLimitError("openai", base, 30)
	assert.Equal(t, 30*time.Second, e.RetryAfter)
	assert.Equal(t, "openai", e.Provider)
	assert.ErrorIs(t, e, base)

	// Zero and negative retry-after default to 60s.
	assert.Equal(t, 60*time.Second, classifier.NewRateLimitError("openai", base, 0).RetryAfter)
	assert.Equal(t, 60*time.Second, classifier.NewRateLimitError("openai", base, -5).RetryAfter)
}

func TestParseRetryAfterHeader(t *testing.T) {
	assert.Equal(t, 120, classifier.ParseRetryAfterHeader("120"))
	assert.Equal(t, 0, classifier.ParseRetryAfterHeader(""))
	assert.Equal(t, 0, classifier.ParseRetryAfterHeader("Wed, 21 Oct 2026 07:28:00 GMT"))
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, classifier.IsRetryable(nil))
	assert.False(t, classifier.IsRetryable(context.Canceled))
	assert.False(t, classifier.IsRetryable(&classifier.MalformedResponseError{Provider: "openai", Reason: "bad json"}))
	assert.False(t, classifier.IsRetryable(classifier.NewRateLimitError("openai", errors.New("429"), 10)))
	assert.True(t, classifier.IsRetryable(errors.New("connection reset")))
}
