package embedding

import (
	"context"
	"time"

	"github.com/spigell/resume-forge/internal/utils"

	"go.uber.org/zap"
)

const maxRetryBackoff = 30 * time.Second

type retryProvider struct {
	inner    Provider
	attempts int
	backoff  time.Duration
	logger   *zap.Logger
}

// WithRetry wraps a provider with a bounded retry loop. The wrapped provider is
// asked up to attempts times in total, sleeping backoff between tries and
// doubling it each time. Cancellation of the context stops the loop.
func WithRetry(inner Provider, attempts int, backoff time.Duration, logger *zap.Logger) Provider {
	if attempts <= 1 {
		return inner
	}
	if backoff <= 0 {
		backoff = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &retryProvider{inner: inner, attempts: attempts, backoff: backoff, logger: logger}
}

func (r *retryProvider) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	backoff := r.backoff

	var lastErr error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		vectors, err := r.inner.Embed(ctx, texts)
		if err == nil {
			return vectors, nil
		}
		lastErr = err

		if attempt == r.attempts {
			break
		}

		r.logger.Warn("embedding attempt failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)

		if err := utils.WaitFor(ctx, backoff); err != nil {
			return nil, err
		}

		backoff *= 2
		if backoff > maxRetryBackoff {
			backoff = maxRetryBackoff
		}
	}

	return nil, lastErr
}

func (r *retryProvider) Dimension() int {
	return r.inner.Dimension()
}
