// Message endpoints: POST /chats/{id}/messages appends a user turn and
// returns the generated assistant reply; GET /chats/{id}/messages pages
// through the transcript with ETag support.
//
// Retries with the same Idempotency-Key replay the recorded assistant
// message (marked with an Idempotency-Replayed header) instead of invoking
// generation again.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pleader-ai/go-legal-backend/internal/domain"
	"github.com/pleader-ai/go-legal-backend/internal/http/middleware"
	"github.com/pleader-ai/go-legal-backend/internal/repo"
	"github.com/pleader-ai/go-legal-backend/internal/services"
)

// PostMessageRequest carries the user prompt. The handler normalizes line
// endings and blank-line runs before the service sees it.
type PostMessageRequest struct {
	Content string `json:"content" binding:"required,min=1"`
}

// PostMessageResponse wraps the assistant reply produced for the request.
type PostMessageResponse struct {
	Message *domain.Message `json:"message"`
}

// ListMessagesResponse is a transcript page with pagination metadata.
type ListMessagesResponse struct {
	Messages   []domain.Message `json:"messages"`
	Pagination Pagination       `json:"pagination"`
}

var blankRunRE = regexp.MustCompile(`\n{3,}`)

// sanitizeContent converts CRLF/CR to LF, collapses runs of three or more
// newlines down to a paragraph break, and trims surrounding whitespace.
func sanitizeContent(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = blankRunRE.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// discoverMaxPromptRunes reports the prompt-length cap configured on the
// concrete service, or a conservative fallback when the service is opaque.
func discoverMaxPromptRunes(msgSvc MessageService) int {
	if ms, ok := msgSvc.(*services.MessageService); ok && ms.MaxPromptRunes > 0 {
		return ms.MaxPromptRunes
	}
	return 4000
}

// msgServiceDB exposes the concrete service's gorm handle for ETag stats and
// idempotency records. Stub services in tests return nil and skip both.
func msgServiceDB(msgSvc MessageService) *gorm.DB {
	if ms, ok := msgSvc.(*services.MessageService); ok {
		return ms.DB
	}
	return nil
}

// idemKeyFrom prefers a key already validated and stashed by the idempotency
// middleware, then falls back to the raw header.
func idemKeyFrom(c *gin.Context) string {
	if k, ok := middleware.GetIdempotencyKey(c); ok {
		return k
	}
	return strings.TrimSpace(c.GetHeader(middleware.HeaderIdempotencyKey))
}

// PostMessage appends a user message and returns the grounded assistant reply.
func (h *Handlers) PostMessage(c *gin.Context) {
	ctx := c.Request.Context()
	chatID := c.Param("id")
	if _, err := uuid.Parse(chatID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "chat id must be a UUID")
		return
	}

	var req PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		return
	}

	content := sanitizeContent(req.Content)
	maxRunes := discoverMaxPromptRunes(h.msgSvc)
	switch {
	case maxRunes > 0 && utf8.RuneCountInString(content) > maxRunes:
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, fmt.Sprintf("content too long: max %d runes", maxRunes))
		return
	case content == "":
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		return
	}

	user := userID(c)
	key := idemKeyFrom(c)

	if key != "" {
		if prev := h.replayedMessage(ctx, user, chatID, key); prev != nil {
			c.Header("Idempotency-Replayed", "true")
			ok(c, http.StatusOK, PostMessageResponse{Message: prev})
			return
		}
	}

	msg, err := h.msgSvc.Answer(ctx, user, chatID, content)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrChatNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "chat not found")
		case errors.Is(err, services.ErrTooLong):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, fmt.Sprintf("content too long: max %d runes", maxRunes))
		case errors.Is(err, services.ErrEmptyPrompt):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		case errors.Is(err, services.ErrGenerationFailed):
			fail(c, http.StatusBadGateway, ErrCodeUpstream, "answer generation failed")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeAnswerFailed, err.Error())
		}
		return
	}

	// Record the outcome for future replays. Best effort; the reply is
	// already committed.
	if key != "" {
		if db := msgServiceDB(h.msgSvc); db != nil {
			_, _ = repo.CreateIdempotency(ctx, db, repo.IdempotencyRecord{
				UserID:    user,
				ChatID:    chatID,
				Key:       key,
				MessageID: msg.ID,
				Status:    http.StatusOK,
				Grounded:  msg.Score != nil,
				TTL:       24 * time.Hour,
			})
		}
	}

	ok(c, http.StatusOK, PostMessageResponse{Message: msg})
}

// replayedMessage loads the assistant message recorded for a prior request
// with the same (user, chat, key), or nil when there is none.
func (h *Handlers) replayedMessage(ctx context.Context, user, chatID, key string) *domain.Message {
	db := msgServiceDB(h.msgSvc)
	if db == nil {
		return nil
	}
	rec, err := repo.GetIdempotency(ctx, db, user, chatID, key, time.Now().UTC())
	if err != nil || rec == nil {
		return nil
	}
	prev, err := repo.GetMessage(ctx, db, rec.MessageID)
	if err != nil {
		return nil
	}
	return prev
}

// ListMessages returns one transcript page for the chat.
func (h *Handlers) ListMessages(c *gin.Context) {
	ctx := c.Request.Context()
	chatID := c.Param("id")
	if _, err := uuid.Parse(chatID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "chat id must be a UUID")
		return
	}

	user := userID(c)

	// ETag stats are owner-scoped; a chat the caller does not own is a 404
	// before any transcript data is touched.
	if db := msgServiceDB(h.msgSvc); db != nil {
		if _, err := repo.GetChat(ctx, db, chatID, user); err != nil {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "chat not found")
			return
		}
		if count, maxTS, err := repo.MessagesStats(ctx, db, chatID); err == nil {
			if writeETag(c, weakETag("messages", chatID, count, maxTS)) {
				return
			}
		}
	}

	page, pageSize := clampPagination(c)
	items, total, err := h.msgSvc.ListPage(ctx, user, chatID, page, pageSize)
	if err != nil {
		if errors.Is(err, services.ErrChatNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "chat not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	ok(c, http.StatusOK, ListMessagesResponse{
		Messages:   items,
		Pagination: paginated(page, pageSize, total),
	})
}
