// Package rag assembles grounded prompts from retrieved document excerpts
// and bounded conversation history, and builds document analysis results.
package rag

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"github.com/pleader-ai/go-legal-backend/internal/ai"
	"github.com/pleader-ai/go-legal-backend/internal/search"
)

// Excerpt is a retrieved chunk with its similarity score and originating
// document filename, ready to be placed into a prompt.
type Excerpt struct {
	ChunkID    string
	DocumentID string
	Filename   string
	Content    string
	Score      float64
}

// ChunkInfo is the stored text of a chunk together with the filename of the
// document it was cut from.
type ChunkInfo struct {
	Content  string
	Filename string
}

// ChunkSource resolves chunk IDs to their stored text and provenance.
type ChunkSource interface {
	ChunkContent(ctx context.Context, chunkIDs []string) (map[string]ChunkInfo, error)
}

// RelevanceScorer rates one excerpt against a query. It is the same surface
// the reply generator exposes, so the chat model can double as the reranker.
type RelevanceScorer interface {
	GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Retriever embeds a query and ranks the caller's indexed chunks against it.
type Retriever struct {
	embedder ai.Embedder
	index    search.VectorIndex
	chunks   ChunkSource
	topK     int
	minScore float64
	reranker RelevanceScorer
}

// NewRetriever wires a retriever. topK and minScore come from configuration.
func NewRetriever(embedder ai.Embedder, index search.VectorIndex, chunks ChunkSource, topK int, minScore float64) *Retriever {
	return &Retriever{embedder: embedder, index: index, chunks: chunks, topK: topK, minScore: minScore}
}

// UseReranker enables a second, model-scored ranking pass over retrieved
// excerpts. A nil scorer leaves retrieval on cosine similarity alone.
func (r *Retriever) UseReranker(s RelevanceScorer) {
	r.reranker = s
}

// Retrieve returns the best-matching excerpts for query among userID's
// documents. Matches below the similarity floor are excluded rather than
// padded, so the result may be shorter than topK or empty.
func (r *Retriever) Retrieve(ctx context.Context, userID, query string) ([]Excerpt, error) {
	vec, err := r.embedder.EmbedText(ctx, query, ai.TaskQuery)
	if err != nil {
		return nil, fmt.Errorf("rag: embed query: %w", err)
	}

	matches, err := r.index.Query(vec, r.topK, search.Filter{UserID: userID, MinScore: r.minScore})
	if err != nil {
		return nil, fmt.Errorf("rag: query index: %w", err)
	}
	if len(matches) == 0 {
		return nil, nil
	}

	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.ChunkID
	}
	chunks, err := r.chunks.ChunkContent(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("rag: load chunks: %w", err)
	}

	out := make([]Excerpt, 0, len(matches))
	for _, m := range matches {
		info, ok := chunks[m.ChunkID]
		if !ok {
			// Chunk was deleted between ranking and load. Skip it.
			continue
		}
		out = append(out, Excerpt{
			ChunkID:    m.ChunkID,
			DocumentID: m.DocumentID,
			Filename:   info.Filename,
			Content:    info.Content,
			Score:      m.Score,
		})
	}

	if r.reranker != nil && len(out) > 1 {
		out = r.rerank(ctx, query, out)
	}
	return out, nil
}

const rerankPromptFmt = `On a scale of 0-10, rate how relevant this text is to the query.
Only respond with a number.

Query: %s

Text: %s

Relevance score (0-10):`

// rerankTextRunes caps how much of an excerpt the scorer sees.
const rerankTextRunes = 500

var rerankNumRE = regexp.MustCompile(`[0-9]+(?:\.[0-9]+)?`)

// rerank asks the scorer to rate each excerpt 0-10 and reorders by that
// rating. An excerpt whose rating cannot be obtained keeps a score derived
// from its cosine similarity, so a flaky scorer degrades to the original
// ranking instead of failing retrieval.
func (r *Retriever) rerank(ctx context.Context, query string, excerpts []Excerpt) []Excerpt {
	ratings := make([]float64, len(excerpts))
	for i, ex := range excerpts {
		ratings[i] = ex.Score * 10
		reply, err := r.reranker.GenerateText(ctx, "", fmt.Sprintf(rerankPromptFmt, query, truncateRunes(ex.Content, rerankTextRunes)))
		if err != nil {
			continue
		}
		raw := rerankNumRE.FindString(reply)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		ratings[i] = min(max(v, 0), 10)
	}

	order := make([]int, len(excerpts))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return ratings[order[a]] > ratings[order[b]] })

	ranked := make([]Excerpt, 0, len(excerpts))
	for _, i := range order {
		ranked = append(ranked, excerpts[i])
	}
	if r.topK > 0 && len(ranked) > r.topK {
		ranked = ranked[:r.topK]
	}
	return ranked
}
