package embedding

import (
	"context"
	"fmt"
)

// Provider turns texts into embedding vectors. Implementations must return one
// vector per input text, in input order, all with the same dimension.
type Provider interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
	Dimension() int
}

// ProviderError wraps a failure reported by an embedding provider. Callers may
// retry at their own discretion; the core pipeline never retries on its own.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("embedding provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError wraps err with the provider name. A nil err returns nil.
func NewProviderError(provider string, err error) error {
	if err == nil {
		return nil
	}
	return &ProviderError{Provider: provider, Err: err}
}
