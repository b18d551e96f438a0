// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for analyzed
// documents and their chunks, including vector (de)serialization so the
// in-memory index can be rebuilt at startup without re-embedding.
package repo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/pleader-ai/go-legal-backend/internal/domain"
)

// ChunkInput is one chunk ready for persistence: its position, text, and
// embedding vector.
type ChunkInput struct {
	Seq     int
	Content string
	Vector  []float32
}

// CreateDocument inserts a document plus all of its chunks atomically.
// Chunk embeddings are stored as JSON arrays alongside the chunk text.
func CreateDocument(ctx context.Context, db *gorm.DB, userID, filename, fileKind, text string, analysis []byte, chunks []ChunkInput) (*domain.Document, []domain.DocumentChunk, error) {
	doc := &domain.Document{
		ID:        uuid.NewString(),
		UserID:    userID,
		Filename:  filename,
		FileKind:  fileKind,
		Text:      text,
		Analysis:  datatypes.JSON(analysis),
		CreatedAt: time.Now().UTC(),
	}
	rows := make([]domain.DocumentChunk, len(chunks))
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(doc).Error; err != nil {
			return err
		}
		for i, ch := range chunks {
			vec, err := MarshalVector(ch.Vector)
			if err != nil {
				return err
			}
			rows[i] = domain.DocumentChunk{
				ID:         uuid.NewString(),
				DocumentID: doc.ID,
				UserID:     userID,
				Seq:        ch.Seq,
				Content:    ch.Content,
				Embedding:  vec,
				CreatedAt:  doc.CreatedAt,
			}
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return nil, nil, err
	}
	return doc, rows, nil
}

// ListDocuments returns a user's documents, most recent first. The extracted
// text column is deliberately not selected; listings only need metadata.
func ListDocuments(ctx context.Context, db *gorm.DB, userID string) ([]domain.Document, error) {
	var out []domain.Document
	err := db.WithContext(ctx).
		Select("id", "user_id", "filename", "file_kind", "analysis", "created_at").
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// GetDocument fetches a document by ID and owner, or ErrNotFound.
func GetDocument(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Document, error) {
	var d domain.Document
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&d).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// DeleteDocument removes a document owned by userID together with its
// chunks, in one transaction. Returns ErrNotFound when the document does
// not exist or belongs to another user.
func DeleteDocument(ctx context.Context, db *gorm.DB, id, userID string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&domain.Document{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("document_id = ?", id).Delete(&domain.DocumentChunk{}).Error
	})
}

// ChunkText is a chunk's stored content together with the filename of the
// document it belongs to.
type ChunkText struct {
	ID       string
	Content  string
	Filename string
}

// ChunkContent resolves chunk IDs to their stored text and the originating
// document filename. Chunks of soft-deleted documents are not returned.
func ChunkContent(ctx context.Context, db *gorm.DB, ids []string) (map[string]ChunkText, error) {
	if len(ids) == 0 {
		return map[string]ChunkText{}, nil
	}
	var rows []ChunkText
	err := db.WithContext(ctx).
		Model(&domain.DocumentChunk{}).
		Select("document_chunks.id", "document_chunks.content", "documents.filename").
		Joins("JOIN documents ON documents.id = document_chunks.document_id AND documents.deleted_at IS NULL").
		Where("document_chunks.id IN ?", ids).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]ChunkText, len(rows))
	for _, r := range rows {
		out[r.ID] = r
	}
	return out, nil
}

// ListAllChunks streams every stored chunk in batches, for rebuilding the
// vector index at startup. fn is called once per chunk; returning an error
// aborts the walk.
func ListAllChunks(ctx context.Context, db *gorm.DB, batch int, fn func(domain.DocumentChunk) error) error {
	if batch <= 0 {
		batch = 500
	}
	var rows []domain.DocumentChunk
	res := db.WithContext(ctx).FindInBatches(&rows, batch, func(tx *gorm.DB, _ int) error {
		for _, r := range rows {
			if err := fn(r); err != nil {
				return err
			}
		}
		return nil
	})
	return res.Error
}

// MarshalVector encodes an embedding as a JSON array.
func MarshalVector(vec []float32) (datatypes.JSON, error) {
	b, err := json.Marshal(vec)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

// UnmarshalVector decodes a stored embedding.
func UnmarshalVector(data datatypes.JSON) ([]float32, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var vec []float32
	if err := json.Unmarshal(data, &vec); err != nil {
		return nil, err
	}
	return vec, nil
}
