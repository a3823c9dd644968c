package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spigell/resume-forge/internal/embedding"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const defaultModel = string(openai.EmbeddingModelTextEmbedding3Small)

// Provider computes embeddings with the OpenAI API.
type Provider struct {
	client    openai.Client
	modelName string
	dimension int
}

// New creates a new Provider backed by the official OpenAI SDK.
func New(apiKey, model string, dimension int) (*Provider, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("openai api key is required")
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}

	return &Provider{
		client:    openai.NewClient(option.WithAPIKey(apiKey)),
		modelName: model,
		dimension: dimension,
	}, nil
}

// Embed requests one embedding per text from the OpenAI API.
func (p *Provider) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if p == nil {
		return nil, errors.New("openai provider is not initialized")
	}

	if len(texts) == 0 {
		return nil, nil
	}

	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(p.modelName),
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	}
	if p.dimension > 0 {
		params.Dimensions = openai.Int(int64(p.dimension))
	}

	resp, err := p.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, embedding.NewProviderError("openai", fmt.Errorf("create embeddings: %w", err))
	}

	out := make([][]float64, len(texts))
	for _, item := range resp.Data {
		idx := int(item.Index)
		if idx < 0 || idx >= len(out) {
			continue
		}
		out[idx] = item.Embedding
	}

	for i, vector := range out {
		if len(vector) == 0 {
			return nil, embedding.NewProviderError("openai", fmt.Errorf("missing embedding for input %d", i))
		}
	}

	return out, nil
}

// Dimension returns the configured dimension, falling back to the model default.
func (p *Provider) Dimension() int {
	if p == nil {
		return 0
	}
	if p.dimension > 0 {
		return p.dimension
	}
	switch p.modelName {
	case string(openai.EmbeddingModelTextEmbedding3Large):
		return 3072
	default:
		return 1536
	}
}

func (p *Provider) Model() string {
	if p == nil {
		return ""
	}
	return p.modelName
}
