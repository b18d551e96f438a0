// Package ai defines the embedding and text generation interfaces used by
// the retrieval pipeline, plus the Gemini implementations backing them.
package ai

import "context"

// Embedding task types understood by the Gemini embedContent endpoint.
// Document chunks and user queries are embedded asymmetrically.
const (
	TaskDocument = "retrieval_document"
	TaskQuery    = "retrieval_query"
)

// Embedder turns text into a fixed-dimension vector.
type Embedder interface {
	EmbedText(ctx context.Context, text, taskType string) ([]float32, error)
}

// TextGenerator produces a completion from a system prompt and user prompt.
type TextGenerator interface {
	GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}
