package embedding

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type flakyProvider struct {
	mu       sync.Mutex
	failures int
	calls    int
}

func (f *flakyProvider) Embed(_ context.Context, texts []string) ([][]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failures {
		return nil, NewProviderError("flaky", errors.New("temporary outage"))
	}
	out := make([][]float64, len(texts))
	for i := range texts {
		out[i] = []float64{1}
	}
	return out, nil
}

func (f *flakyProvider) Dimension() int { return 1 }

func TestWithRetryRecoversFromTransientFailure(t *testing.T) {
	t.Parallel()

	inner := &flakyProvider{failures: 2}
	provider := WithRetry(inner, 3, time.Millisecond, nil)

	vectors, err := provider.Embed(context.Background(), []string{"go"})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if len(vectors) != 1 {
		t.Fatalf("expected 1 vector, got %d", len(vectors))
	}
	if inner.calls != 3 {
		t.Fatalf("expected 3 calls, got %d", inner.calls)
	}
}

func TestWithRetryGivesUpAfterAttempts(t *testing.T) {
	t.Parallel()

	inner := &flakyProvider{failures: 10}
	provider := WithRetry(inner, 2, time.Millisecond, nil)

	_, err := provider.Embed(context.Background(), []string{"go"})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}

	var providerErr *ProviderError
	if !errors.As(err, &providerErr) {
		t.Fatalf("expected ProviderError, got %T", err)
	}
	if inner.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", inner.calls)
	}
}

func TestWithRetryStopsOnCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	inner := &flakyProvider{failures: 10}
	provider := WithRetry(inner, 3, time.Minute, nil)

	_, err := provider.Embed(ctx, []string{"go"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if inner.calls != 1 {
		t.Fatalf("expected a single call before cancellation, got %d", inner.calls)
	}
}

func TestWithRetrySingleAttemptReturnsInner(t *testing.T) {
	t.Parallel()

	inner := &flakyProvider{}
	if provider := WithRetry(inner, 1, time.Second, nil); provider != inner {
		t.Fatal("expected the inner provider back when attempts <= 1")
	}
}
