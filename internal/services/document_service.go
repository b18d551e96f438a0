// Package services – DocumentService
//
// This file implements DocumentService, which owns the document analysis
// pipeline: extraction, analysis generation, chunking, embedding, indexing,
// and persistence. The analysis is the product; indexing is best-effort so a
// broken embedder degrades retrieval without losing the analysis itself.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/pleader-ai/go-legal-backend/internal/ai"
	"github.com/pleader-ai/go-legal-backend/internal/chunker"
	"github.com/pleader-ai/go-legal-backend/internal/domain"
	"github.com/pleader-ai/go-legal-backend/internal/extract"
	"github.com/pleader-ai/go-legal-backend/internal/rag"
	"github.com/pleader-ai/go-legal-backend/internal/repo"
	"github.com/pleader-ai/go-legal-backend/internal/search"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DocumentService runs the analysis pipeline and manages stored documents.
type DocumentService struct {
	DB        *gorm.DB
	Chunker   *chunker.Chunker
	Embedder  ai.Embedder
	Generator ReplyGenerator
	Analysis  *rag.AnalysisBuilder
	Index     search.VectorIndex

	// ModelName is recorded in every stored analysis.
	ModelName string

	locks *lockTable
}

// NewDocumentService wires a DocumentService with per-document serialization.
func NewDocumentService(db *gorm.DB, ch *chunker.Chunker, emb ai.Embedder, gen ReplyGenerator, ab *rag.AnalysisBuilder, ix search.VectorIndex, modelName string) *DocumentService {
	return &DocumentService{
		DB:        db,
		Chunker:   ch,
		Embedder:  emb,
		Generator: gen,
		Analysis:  ab,
		Index:     ix,
		ModelName: modelName,
		locks:     newLockTable(),
	}
}

// Analyze runs the full pipeline for an uploaded file: extract text, generate
// the analysis, chunk and embed the text, persist everything atomically, and
// feed the vector index. Generation failures persist nothing; indexing
// failures are recorded but do not fail the upload.
func (s *DocumentService) Analyze(ctx context.Context, userID, filename string, data []byte) (*domain.Document, error) {
	tr := otel.Tracer("services/DocumentService")
	ctx, span := tr.Start(ctx, "Analyze",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("document.filename", filename),
		),
	)
	defer span.End()

	kind, err := extract.Detect(filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFileType, err)
	}
	text, err := extract.Text(kind, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	prompt, err := s.Analysis.Prompt(text)
	if err != nil {
		if errors.Is(err, rag.ErrInsufficientText) {
			return nil, ErrInsufficientText
		}
		return nil, err
	}

	// Generate before any write.
	generated, err := s.Generator.GenerateText(ctx, prompt.System, prompt.User)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	result := s.Analysis.Result(text, generated, s.ModelName, time.Now())
	analysisJSON, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}

	// Chunk and embed. Embedding is best-effort: on failure the document is
	// stored un-indexed and retrieval simply will not see it.
	chunks := s.embedChunks(ctx, span, text)

	doc, rows, err := repo.CreateDocument(ctx, s.DB, userID, filename, string(kind), text, analysisJSON, chunks)
	if err != nil {
		return nil, err
	}

	// Indexing holds the per-document lock so a racing Delete cannot
	// interleave and leave evicted chunks back in the index.
	release := s.locks.acquire(doc.ID)
	s.indexChunks(span, rows)
	release()

	span.SetAttributes(
		attribute.String("document.id", doc.ID),
		attribute.Int("document.chunks", len(rows)),
	)
	return doc, nil
}

// embedChunks splits text and embeds every chunk. On any embedding failure it
// returns nil so the caller persists the document without chunks.
func (s *DocumentService) embedChunks(ctx context.Context, span trace.Span, text string) []repo.ChunkInput {
	pieces := s.Chunker.Split(text)
	out := make([]repo.ChunkInput, 0, len(pieces))
	for _, ch := range pieces {
		vec, err := s.Embedder.EmbedText(ctx, ch.Content, ai.TaskDocument)
		if err != nil {
			span.RecordError(fmt.Errorf("%w: chunk %d: %v", ErrEmbeddingFailed, ch.Seq, err))
			return nil
		}
		out = append(out, repo.ChunkInput{Seq: ch.Seq, Content: ch.Content, Vector: vec})
	}
	return out
}

// indexChunks loads persisted chunk rows into the vector index.
func (s *DocumentService) indexChunks(span trace.Span, rows []domain.DocumentChunk) {
	for _, r := range rows {
		vec, err := repo.UnmarshalVector(r.Embedding)
		if err != nil {
			span.RecordError(err)
			continue
		}
		if err := s.Index.Add(search.Entry{
			ChunkID:    r.ID,
			DocumentID: r.DocumentID,
			UserID:     r.UserID,
			Vector:     vec,
		}); err != nil {
			span.RecordError(err)
		}
	}
}

// Get fetches a document, enforcing ownership.
func (s *DocumentService) Get(ctx context.Context, userID, documentID string) (*domain.Document, error) {
	doc, err := repo.GetDocument(ctx, s.DB, documentID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}
	return doc, nil
}

// List returns the user's analyzed documents, most recent first.
func (s *DocumentService) List(ctx context.Context, userID string) ([]domain.Document, error) {
	return repo.ListDocuments(ctx, s.DB, userID)
}

// Delete removes a document with its chunks and evicts it from the vector
// index. Delete and re-analysis of the same document are serialized.
func (s *DocumentService) Delete(ctx context.Context, userID, documentID string) error {
	release := s.locks.acquire(documentID)
	defer release()

	err := repo.DeleteDocument(ctx, s.DB, documentID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrDocumentNotFound
	}
	if err != nil {
		return err
	}
	s.Index.RemoveDocument(documentID)
	return nil
}

// WarmIndex rebuilds the vector index from persisted chunk embeddings. Rows
// without a stored vector are skipped. Called once at startup.
func (s *DocumentService) WarmIndex(ctx context.Context) (int, error) {
	loaded := 0
	err := repo.ListAllChunks(ctx, s.DB, 500, func(c domain.DocumentChunk) error {
		vec, err := repo.UnmarshalVector(c.Embedding)
		if err != nil || len(vec) == 0 {
			return nil
		}
		if err := s.Index.Add(search.Entry{
			ChunkID:    c.ID,
			DocumentID: c.DocumentID,
			UserID:     c.UserID,
			Vector:     vec,
		}); err != nil {
			return nil
		}
		loaded++
		return nil
	})
	return loaded, err
}
