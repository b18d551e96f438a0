// Package services – MessageService
//
// This file implements MessageService, the application-level component that
// owns the lifecycle of chat messages and assistant replies. It validates
// inputs, checks chat ownership, retrieves grounding excerpts from the
// caller's document index, generates a reply, and persists the
// user/assistant message pair atomically. Generation happens before any
// write: a failed or cancelled completion leaves the transcript untouched.
//
// Optional enhancement: it also auto-generates a chat title from the first
// user prompt when the chat still has a default/empty title.
//
// Observability: all public methods are OpenTelemetry-instrumented; spans
// include chat/user identifiers and pagination parameters where applicable.

package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/pleader-ai/go-legal-backend/internal/domain"
	"github.com/pleader-ai/go-legal-backend/internal/rag"
	"github.com/pleader-ai/go-legal-backend/internal/repo"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	roleUser      = "user"
	roleAssistant = "assistant"

	// default titles we consider placeholders eligible for auto-generation
	defaultTitleNew      = "New chat"
	defaultTitleUntitled = "Untitled"
)

// ExcerptRetriever is the retrieval surface MessageService depends on.
type ExcerptRetriever interface {
	Retrieve(ctx context.Context, userID, query string) ([]rag.Excerpt, error)
}

// ReplyGenerator produces a completion from an assembled prompt.
type ReplyGenerator interface {
	GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// MessageService coordinates grounded answer generation and transcript
// persistence.
type MessageService struct {
	DB        *gorm.DB
	Retriever ExcerptRetriever
	Prompts   *rag.PromptBuilder
	Generator ReplyGenerator

	// HistoryTurns bounds how many prior messages feed the prompt window.
	HistoryTurns int

	// Optional guards
	MaxPromptRunes int
	MaxReplyRunes  int

	// Title generation config
	TitleLocale language.Tag
	TitleMaxLen int

	locks *lockTable
}

// NewMessageService wires a MessageService with per-chat write serialization.
func NewMessageService(db *gorm.DB, retriever ExcerptRetriever, prompts *rag.PromptBuilder, gen ReplyGenerator, historyTurns int) *MessageService {
	return &MessageService{
		DB:           db,
		Retriever:    retriever,
		Prompts:      prompts,
		Generator:    gen,
		HistoryTurns: historyTurns,
		locks:        newLockTable(),
	}
}

// Answer validates prompt, verifies chat ownership, retrieves grounding
// excerpts, generates a reply, and persists both user and assistant messages
// atomically. Concurrent sends to the same chat are serialized so the
// transcript stays strictly alternating. It may auto-generate a chat title.
func (s *MessageService) Answer(ctx context.Context, userID, chatID, prompt string) (*domain.Message, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "Answer",
		trace.WithAttributes(
			attribute.String("chat.id", chatID),
			attribute.String("user.id", userID),
		),
	)
	defer span.End()

	// Normalize & validate prompt
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}
	if s.MaxPromptRunes > 0 && utf8.RuneCountInString(prompt) > s.MaxPromptRunes {
		return nil, ErrTooLong
	}

	// Ensure the chat exists and belongs to the user
	chat, err := repo.GetChat(ctx, s.DB, chatID, userID)
	if err != nil {
		return nil, ErrChatNotFound
	}

	release := s.locks.acquire(chatID)
	defer release()

	// Retrieval is soft-fail: a broken index or embedder must not block the
	// conversation, only un-ground it.
	var excerpts []rag.Excerpt
	if s.Retriever != nil {
		excerpts, err = s.Retriever.Retrieve(ctx, userID, prompt)
		if err != nil {
			span.RecordError(err)
			excerpts = nil
		}
	}

	history, err := s.historyWindow(ctx, chatID)
	if err != nil {
		return nil, err
	}

	// Generate before touching the transcript. Failure persists nothing.
	p := s.Prompts.Build(excerpts, history, prompt)
	reply, err := s.Generator.GenerateText(ctx, p.System, p.User)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	reply = strings.TrimSpace(reply)
	if s.MaxReplyRunes > 0 && utf8.RuneCountInString(reply) > s.MaxReplyRunes {
		reply = string([]rune(reply)[:s.MaxReplyRunes])
	}

	var score *float64
	if len(excerpts) > 0 {
		v := excerpts[0].Score
		score = &v
	}

	// Persist user + assistant (and maybe update title) in one transaction
	var assistantMsg *domain.Message
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		userMsg, err := repo.CreateMessage(ctx, tx, chatID, roleUser, prompt, nil)
		if err != nil {
			return err
		}
		m, err := repo.CreateMessage(ctx, tx, chatID, roleAssistant, reply, score)
		if err != nil {
			return err
		}
		assistantMsg = m

		// Auto-title if placeholder
		if s.shouldAutoTitle(chat.Title) {
			if gen := s.generateTitleFromPrompt(prompt); gen != "" {
				gen = s.clipTitle(gen)
				if uerr := tx.Model(&domain.Chat{}).Where("id = ?", chatID).Update("title", gen).Error; uerr == nil {
					chat.Title = gen
				}
			}
		}
		return repo.TouchChat(ctx, tx, chatID, userMsg.CreatedAt)
	})
	if err != nil {
		return nil, err
	}

	return assistantMsg, nil
}

// ListPage returns paginated messages for a chat the user owns.
func (s *MessageService) ListPage(ctx context.Context, userID, chatID string, page, pageSize int) ([]domain.Message, int64, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("chat.id", chatID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	// Scoped by owner so one user cannot page through another's transcript.
	if _, err := repo.GetChat(ctx, s.DB, chatID, userID); err != nil {
		return nil, 0, ErrChatNotFound
	}

	total, err := repo.CountMessages(ctx, s.DB, chatID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Message{}, 0, nil
	}

	items, err := repo.ListMessagesPage(ctx, s.DB, chatID, offset, pageSize)
	return items, total, err
}

// historyWindow loads the most recent transcript turns, oldest first.
func (s *MessageService) historyWindow(ctx context.Context, chatID string) ([]rag.Turn, error) {
	if s.HistoryTurns <= 0 {
		return nil, nil
	}
	msgs, err := repo.LastMessages(ctx, s.DB, chatID, s.HistoryTurns)
	if err != nil {
		return nil, err
	}
	turns := make([]rag.Turn, len(msgs))
	for i, m := range msgs {
		turns[i] = rag.Turn{Role: m.Role, Content: m.Content}
	}
	return turns, nil
}

// shouldAutoTitle reports whether the current title is a placeholder.
func (s *MessageService) shouldAutoTitle(current string) bool {
	t := strings.TrimSpace(strings.ToLower(current))
	return t == "" || t == strings.ToLower(defaultTitleNew) || t == strings.ToLower(defaultTitleUntitled)
}

// generateTitleFromPrompt derives a concise title from the prompt.
func (s *MessageService) generateTitleFromPrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return ""
	}
	toks := titleWordRE.FindAllString(strings.ToLower(prompt), -1)
	if len(toks) == 0 {
		return ""
	}

	titleCaser := cases.Title(s.TitleLocaleOrDefault())
	out := make([]string, 0, 8)

	for _, w := range toks {
		if _, skip := titleStopWords[w]; skip {
			continue
		}
		out = append(out, titleCaser.String(w))
		if len(out) >= 8 {
			break
		}
	}
	if len(out) == 0 {
		return ""
	}
	return strings.Join(out, " ")
}

// clipTitle truncates a generated title to the configured maximum rune length.
func (s *MessageService) clipTitle(title string) string {
	max := s.TitleMaxLen
	if max <= 0 {
		max = 60
	}
	if utf8.RuneCountInString(title) > max {
		return string([]rune(title)[:max])
	}
	return title
}

// TitleLocaleOrDefault returns the configured locale for casing or English if unset.
func (s *MessageService) TitleLocaleOrDefault() language.Tag {
	if s.TitleLocale == language.Und {
		return language.English
	}
	return s.TitleLocale
}

// --- Title generation helpers ---

// Extract Unicode letters with optional trailing numbers (e.g., "ipc420").
var titleWordRE = regexp.MustCompile(`[\p{L}]+[\p{N}]*`)

// Minimal English stop-words set for compact titles.
var titleStopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "of": {}, "to": {}, "in": {},
	"is": {}, "are": {}, "for": {}, "on": {}, "with": {}, "by": {}, "from": {},
	"at": {}, "as": {}, "that": {}, "this": {}, "it": {}, "be": {}, "was": {}, "were": {},
}
