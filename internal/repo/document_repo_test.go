package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/pleader-ai/go-legal-backend/internal/domain"
)

func TestCreateDocument_WithChunks(t *testing.T) {
	db := newTestDB(t, &domain.Document{}, &domain.DocumentChunk{})
	ctx := context.Background()

	chunks := []ChunkInput{
		{Seq: 0, Content: "first chunk", Vector: []float32{0.1, 0.2}},
		{Seq: 1, Content: "second chunk", Vector: []float32{0.3, 0.4}},
	}
	doc, rows, err := CreateDocument(ctx, db, "u1", "lease.pdf", "pdf", "full text", []byte(`{"full_analysis":"ok"}`), chunks)
	if err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}
	if doc.ID == "" || len(rows) != 2 {
		t.Fatalf("unexpected result: doc=%+v rows=%d", doc, len(rows))
	}
	for i, r := range rows {
		if r.DocumentID != doc.ID || r.UserID != "u1" || r.Seq != i {
			t.Fatalf("chunk %d fields wrong: %+v", i, r)
		}
		vec, err := UnmarshalVector(r.Embedding)
		if err != nil || len(vec) != 2 {
			t.Fatalf("chunk %d embedding round-trip failed: %v %v", i, vec, err)
		}
	}

	got, err := GetDocument(ctx, db, doc.ID, "u1")
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if got.Text != "full text" || got.Filename != "lease.pdf" {
		t.Fatalf("round-trip document wrong: %+v", got)
	}
}

func TestCreateDocument_NoChunks(t *testing.T) {
	db := newTestDB(t, &domain.Document{}, &domain.DocumentChunk{})
	doc, rows, err := CreateDocument(context.Background(), db, "u1", "note.txt", "txt", "tiny", nil, nil)
	if err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}
	if doc.ID == "" || len(rows) != 0 {
		t.Fatalf("unexpected result: %+v, %d rows", doc, len(rows))
	}
}

func TestListDocuments_OmitsTextAndScopesOwner(t *testing.T) {
	db := newTestDB(t, &domain.Document{}, &domain.DocumentChunk{})
	ctx := context.Background()
	_, _, _ = CreateDocument(ctx, db, "u1", "a.txt", "txt", "secret text", nil, nil)
	_, _, _ = CreateDocument(ctx, db, "u2", "b.txt", "txt", "other", nil, nil)

	out, err := ListDocuments(ctx, db, "u1")
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if len(out) != 1 || out[0].Filename != "a.txt" {
		t.Fatalf("unexpected listing: %+v", out)
	}
	if out[0].Text != "" {
		t.Fatal("extracted text leaked into listing")
	}
}

func TestDeleteDocument_RemovesChunks(t *testing.T) {
	db := newTestDB(t, &domain.Document{}, &domain.DocumentChunk{})
	ctx := context.Background()
	doc, _, _ := CreateDocument(ctx, db, "u1", "a.txt", "txt", "text", nil, []ChunkInput{
		{Seq: 0, Content: "c", Vector: []float32{1}},
	})

	if err := DeleteDocument(ctx, db, doc.ID, "u1"); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	if _, err := GetDocument(ctx, db, doc.ID, "u1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("document still readable: %v", err)
	}
	var n int64
	if err := db.Model(&domain.DocumentChunk{}).Where("document_id = ?", doc.ID).Count(&n).Error; err != nil {
		t.Fatalf("count chunks: %v", err)
	}
	if n != 0 {
		t.Fatalf("%d chunks left after delete", n)
	}
}

func TestDeleteDocument_WrongOwner(t *testing.T) {
	db := newTestDB(t, &domain.Document{}, &domain.DocumentChunk{})
	ctx := context.Background()
	doc, _, _ := CreateDocument(ctx, db, "u1", "a.txt", "txt", "text", nil, nil)

	if err := DeleteDocument(ctx, db, doc.ID, "u2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := GetDocument(ctx, db, doc.ID, "u1"); err != nil {
		t.Fatalf("document should survive wrong-owner delete: %v", err)
	}
}

func TestChunkContent(t *testing.T) {
	db := newTestDB(t, &domain.Document{}, &domain.DocumentChunk{})
	ctx := context.Background()
	_, rows, _ := CreateDocument(ctx, db, "u1", "a.txt", "txt", "text", nil, []ChunkInput{
		{Seq: 0, Content: "alpha", Vector: []float32{1}},
		{Seq: 1, Content: "beta", Vector: []float32{1}},
	})

	got, err := ChunkContent(ctx, db, []string{rows[0].ID, "missing"})
	if err != nil {
		t.Fatalf("ChunkContent: %v", err)
	}
	if len(got) != 1 || got[rows[0].ID].Content != "alpha" {
		t.Fatalf("unexpected contents: %v", got)
	}
	if got[rows[0].ID].Filename != "a.txt" {
		t.Fatalf("chunk missing document filename: %+v", got[rows[0].ID])
	}

	empty, err := ChunkContent(ctx, db, nil)
	if err != nil || len(empty) != 0 {
		t.Fatalf("ChunkContent(nil) = (%v, %v)", empty, err)
	}
}

func TestChunkContent_ExcludesDeletedDocuments(t *testing.T) {
	db := newTestDB(t, &domain.Document{}, &domain.DocumentChunk{})
	ctx := context.Background()
	doc, rows, _ := CreateDocument(ctx, db, "u1", "a.txt", "txt", "text", nil, []ChunkInput{
		{Seq: 0, Content: "alpha", Vector: []float32{1}},
	})
	if err := db.Delete(&domain.Document{}, "id = ?", doc.ID).Error; err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	got, err := ChunkContent(ctx, db, []string{rows[0].ID})
	if err != nil {
		t.Fatalf("ChunkContent: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("chunks of a deleted document resolved: %v", got)
	}
}

func TestListAllChunks(t *testing.T) {
	db := newTestDB(t, &domain.Document{}, &domain.DocumentChunk{})
	ctx := context.Background()
	_, _, _ = CreateDocument(ctx, db, "u1", "a.txt", "txt", "text", nil, []ChunkInput{
		{Seq: 0, Content: "one", Vector: []float32{0.1}},
		{Seq: 1, Content: "two", Vector: []float32{0.2}},
		{Seq: 2, Content: "three", Vector: []float32{0.3}},
	})

	var seen int
	err := ListAllChunks(ctx, db, 2, func(c domain.DocumentChunk) error {
		if c.Content == "" || len(c.Embedding) == 0 {
			t.Fatalf("incomplete chunk streamed: %+v", c)
		}
		seen++
		return nil
	})
	if err != nil {
		t.Fatalf("ListAllChunks: %v", err)
	}
	if seen != 3 {
		t.Fatalf("streamed %d chunks, want 3", seen)
	}
}
