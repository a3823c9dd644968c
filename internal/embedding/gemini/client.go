package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spigell/resume-forge/internal/embedding"

	"google.golang.org/genai"
)

const (
	defaultModel     = "gemini-embedding-001"
	defaultDimension = 768
)

// Provider computes embeddings with the Gemini API.
type Provider struct {
	client    *genai.Client
	modelName string
	dimension int
}

// New creates a new Provider configured for the Gemini API backend.
func New(ctx context.Context, apiKey, model string, dimension int) (*Provider, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}

	if dimension <= 0 {
		dimension = defaultDimension
	}

	return &Provider{client: client, modelName: model, dimension: dimension}, nil
}

// Embed requests one embedding per text from the Gemini API.
func (p *Provider) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if p == nil || p.client == nil {
		return nil, errors.New("gemini provider is not initialized")
	}

	if len(texts) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, 0, len(texts))
	for _, text := range texts {
		contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
	}

	cfg := &genai.EmbedContentConfig{}
	if p.dimension > 0 {
		dimension := int32(p.dimension)
		cfg.OutputDimensionality = &dimension
	}

	resp, err := p.client.Models.EmbedContent(ctx, p.modelName, contents, cfg)
	if err != nil {
		return nil, embedding.NewProviderError("gemini", fmt.Errorf("embed content: %w", err))
	}

	if resp == nil || len(resp.Embeddings) != len(texts) {
		got := 0
		if resp != nil {
			got = len(resp.Embeddings)
		}
		return nil, embedding.NewProviderError("gemini", fmt.Errorf("expected %d embeddings, got %d", len(texts), got))
	}

	out := make([][]float64, len(texts))
	for i, emb := range resp.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, embedding.NewProviderError("gemini", fmt.Errorf("empty embedding for input %d", i))
		}
		vector := make([]float64, len(emb.Values))
		for j, v := range emb.Values {
			vector[j] = float64(v)
		}
		out[i] = vector
	}

	return out, nil
}

func (p *Provider) Dimension() int {
	if p == nil {
		return 0
	}
	return p.dimension
}

func (p *Provider) Model() string {
	if p == nil {
		return ""
	}
	return p.modelName
}
