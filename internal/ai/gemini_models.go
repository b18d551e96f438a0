package ai

import (
	"context"
	"fmt"
)

// GeminiEmbedder binds a GeminiClient to a fixed embedding model and
// enforces the vector dimension the index expects.
type GeminiEmbedder struct {
	client *GeminiClient
	model  string
	dim    int
}

// NewGeminiEmbedder builds an Embedder for model. dim of 0 disables the
// dimension check.
func NewGeminiEmbedder(client *GeminiClient, model string, dim int) *GeminiEmbedder {
	return &GeminiEmbedder{client: client, model: model, dim: dim}
}

// EmbedText implements Embedder.
func (e *GeminiEmbedder) EmbedText(ctx context.Context, text, taskType string) ([]float32, error) {
	vec, err := e.client.EmbedText(ctx, e.model, text, taskType)
	if err != nil {
		return nil, err
	}
	if e.dim > 0 && len(vec) != e.dim {
		return nil, fmt.Errorf("ai: model %s returned %d dims, want %d", e.model, len(vec), e.dim)
	}
	return vec, nil
}

// GeminiGenerator binds a GeminiClient to a fixed generation model.
type GeminiGenerator struct {
	client *GeminiClient
	model  string
}

// NewGeminiGenerator builds a TextGenerator for model.
func NewGeminiGenerator(client *GeminiClient, model string) *GeminiGenerator {
	return &GeminiGenerator{client: client, model: model}
}

// GenerateText implements TextGenerator.
func (g *GeminiGenerator) GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return g.client.GenerateText(ctx, g.model, systemPrompt, userPrompt)
}
