package embedding

import (
	"context"
	"sync"
)

// Mock is a deterministic in-process provider. It derives every vector from the
// text bytes alone, so the same input always embeds to the same output.
type Mock struct {
	dimension int

	mu    sync.Mutex
	calls int
	texts []string
}

// NewMock creates a mock provider with the given vector dimension.
func NewMock(dimension int) *Mock {
	if dimension <= 0 {
		dimension = 8
	}
	return &Mock{dimension: dimension}
}

func (m *Mock) Embed(_ context.Context, texts []string) ([][]float64, error) {
	m.mu.Lock()
	m.calls++
	m.texts = append(m.texts, texts...)
	m.mu.Unlock()

	results := make([][]float64, len(texts))
	for i, text := range texts {
		vector := make([]float64, m.dimension)
		if len(text) == 0 {
			results[i] = vector
			continue
		}
		for j := 0; j < m.dimension; j++ {
			vector[j] = float64(text[j%len(text)]) / 256.0
		}
		results[i] = vector
	}
	return results, nil
}

func (m *Mock) Dimension() int {
	return m.dimension
}

// Calls reports how many Embed invocations the mock has served.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// EmbeddedTexts returns every text passed to Embed, in arrival order.
func (m *Mock) EmbeddedTexts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.texts...)
}
