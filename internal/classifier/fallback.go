package classifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tariffbench/internal/domain"
	"tariffbench/internal/port"
)

// circuitState tracks rate-limit backoff for a single classifier.
type circuitState struct {
	mu      sync.RWMutex
	resetAt time.Time // zero value = closed (healthy)
}

func (c *circuitState) isOpenWithReset(now time.Time) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resetAt, !c.resetAt.IsZero() && now.Before(c.resetAt)
}

func (c *circuitState) open(resetAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetAt = resetAt
}

// FallbackClassifier tries classifiers in order, skipping those with open
// circuits. It implements port.Classifier.
type FallbackClassifier struct {
	classifiers []port.Classifier
	circuits    []*circuitState
	names       []string
	logger      *slog.Logger
}

// NewFallbackClassifier creates a FallbackClassifier from an ordered list of
// classifiers and their names.
func NewFallbackClassifier(classifiers []port.Classifier, names []string, logger *slog.Logger) *FallbackClassifier {
	circuits := make([]*circuitState, len(classifiers))
	for i := range circuits {
		circuits[i] = &circuitState{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackClassifier{
		classifiers: classifiers,
		circuits:    circuits,
		names:       names,
		logger:      logger,
	}
}

func (f *FallbackClassifier) Classify(ctx context.Context, input port.ClassifyInput) (*domain.Classification, error) {
	now := time.Now()
	var lastErr error
	allRateLimited := true
	var earliestReset time.Time

	for i, c := range f.classifiers {
		if resetAt, open := f.circuits[i].isOpenWithReset(now); open {
			f.logger.Debug("skipping classifier with open circuit",
				"provider", f.names[i],
				"reset_at", resetAt.Format(time.RFC3339))
			if earliestReset.IsZero() || resetAt.Before(earliestReset) {
				earliestReset = resetAt
			}
			continue
		}

		out, err := c.Classify(ctx, input)
		if err == nil {
			return out, nil
		}

		f.logger.Warn("classifier failed", "provider", f.names[i], "error", err)
		lastErr = err

		// A provider's own HTTP timeout also reports DeadlineExceeded; only
		// the caller's cancellation stops the chain.
		if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
			return nil, err
		}

		var rlErr *RateLimitError
		if errors.As(err, &rlErr) {
			resetAt := now.Add(rlErr.RetryAfter)
			f.circuits[i].open(resetAt)
			if earliestReset.IsZero() || resetAt.Before(earliestReset) {
				earliestReset = resetAt
			}
		} else {
			allRateLimited = false
		}
	}

	if lastErr == nil || allRateLimited {
		// Nothing available: every provider was skipped or rate limited.
		retryAfter := time.Until(earliestReset)
		if retryAfter < 0 {
			retryAfter = time.Second
		}
		return nil, NewRateLimitError("all", fmt.Errorf("all classifiers rate limited"), int(retryAfter.Seconds()))
	}

	return nil, fmt.Errorf("all classifiers failed: %w", lastErr)
}
