// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file stores the outcome of keyed message sends so
// client retries replay the recorded assistant answer, with the same
// grounded/ungrounded provenance, instead of generating a new one.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pleader-ai/go-legal-backend/internal/domain"
)

// ErrDuplicate indicates that an idempotency record already exists for the
// given (user_id, chat_id, key) tuple.
var ErrDuplicate = errors.New("duplicate")

// IdempotencyRecord is the outcome to persist for one keyed send: which
// assistant message it produced, the response status, and whether the answer
// was grounded in retrieved document excerpts.
type IdempotencyRecord struct {
	UserID    string
	ChatID    string
	Key       string
	MessageID string
	Status    int
	Grounded  bool
	TTL       time.Duration
}

// GetIdempotency returns a non-expired record or ErrNotFound.
func GetIdempotency(ctx context.Context, db *gorm.DB, userID, chatID, key string, now time.Time) (*domain.Idempotency, error) {
	if strings.TrimSpace(chatID) == "" {
		return nil, ErrNotFound
	}
	var rec domain.Idempotency
	err := db.WithContext(ctx).
		Where("user_id = ? AND chat_id = ? AND key = ? AND expires_at > ?", userID, chatID, key, now).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &rec, err
}

// CreateIdempotency persists in's outcome. A concurrent send that already
// recorded the same (user, chat, key) surfaces as ErrDuplicate, and the
// caller replays the earlier record instead.
func CreateIdempotency(ctx context.Context, db *gorm.DB, in IdempotencyRecord) (*domain.Idempotency, error) {
	now := time.Now().UTC()
	rec := &domain.Idempotency{
		ID:        uuid.NewString(),
		UserID:    in.UserID,
		ChatID:    in.ChatID,
		Key:       in.Key,
		MessageID: in.MessageID,
		Status:    in.Status,
		Grounded:  in.Grounded,
		CreatedAt: now,
		ExpiresAt: now.Add(in.TTL),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
		low := strings.ToLower(err.Error())
		if errors.Is(err, gorm.ErrDuplicatedKey) ||
			strings.Contains(low, "unique constraint failed") ||
			strings.Contains(low, "constraint failed: unique") {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return rec, nil
}
