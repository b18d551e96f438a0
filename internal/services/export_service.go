// Package services – ExportService
//
// This file implements ExportService, which renders a user's chat
// transcripts and stored document analyses into downloadable files.
// Ownership is enforced the same way as every other read path: a chat or
// document belonging to another user is indistinguishable from a missing one.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/pleader-ai/go-legal-backend/internal/export"
	"github.com/pleader-ai/go-legal-backend/internal/rag"
	"github.com/pleader-ai/go-legal-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ExportService renders chats and analyses for download.
type ExportService struct {
	DB *gorm.DB
}

// NewExportService wires an ExportService.
func NewExportService(db *gorm.DB) *ExportService {
	return &ExportService{DB: db}
}

// Chat renders the full transcript of a chat the user owns. It returns the
// file bytes and a download filename.
func (s *ExportService) Chat(ctx context.Context, userID, chatID string, f export.Format) ([]byte, string, error) {
	tr := otel.Tracer("services/ExportService")
	ctx, span := tr.Start(ctx, "ExportChat",
		trace.WithAttributes(
			attribute.String("chat.id", chatID),
			attribute.String("export.format", string(f)),
		),
	)
	defer span.End()

	chat, err := repo.GetChat(ctx, s.DB, chatID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrChatNotFound
		}
		return nil, "", err
	}
	msgs, err := repo.ListMessages(ctx, s.DB, chatID, 0)
	if err != nil {
		return nil, "", err
	}

	out := export.Chat{
		Title:    chat.Title,
		Exported: time.Now().UTC(),
		Messages: make([]export.ChatMessage, len(msgs)),
	}
	for i, m := range msgs {
		out.Messages[i] = export.ChatMessage{Role: m.Role, Content: m.Content, SentAt: m.CreatedAt}
	}

	data, err := export.RenderChat(f, out)
	if err != nil {
		return nil, "", err
	}
	return data, fmt.Sprintf("chat-%s.%s", chat.ID, f), nil
}

// Document renders the stored analysis of a document the user owns.
func (s *ExportService) Document(ctx context.Context, userID, documentID string, f export.Format) ([]byte, string, error) {
	tr := otel.Tracer("services/ExportService")
	ctx, span := tr.Start(ctx, "ExportDocument",
		trace.WithAttributes(
			attribute.String("document.id", documentID),
			attribute.String("export.format", string(f)),
		),
	)
	defer span.End()

	doc, err := repo.GetDocument(ctx, s.DB, documentID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrDocumentNotFound
		}
		return nil, "", err
	}

	out := export.Analysis{Filename: doc.Filename, Analyzed: doc.CreatedAt}
	var stored rag.AnalysisResult
	if err := json.Unmarshal(doc.Analysis, &stored); err == nil {
		out.Text = stored.FullAnalysis
		if !stored.GeneratedAt.IsZero() {
			out.Analyzed = stored.GeneratedAt
		}
	}

	data, err := export.RenderAnalysis(f, out)
	if err != nil {
		return nil, "", err
	}
	return data, fmt.Sprintf("analysis-%s.%s", doc.ID, f), nil
}
