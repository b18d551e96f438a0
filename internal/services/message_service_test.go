package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pleader-ai/go-legal-backend/internal/domain"
	"github.com/pleader-ai/go-legal-backend/internal/rag"
	"github.com/pleader-ai/go-legal-backend/internal/repo"
)

// ---------- test helpers ----------

func newSvcDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

type fakeRetriever struct {
	excerpts []rag.Excerpt
	err      error
	calls    int
}

func (f *fakeRetriever) Retrieve(ctx context.Context, userID, query string) ([]rag.Excerpt, error) {
	f.calls++
	return f.excerpts, f.err
}

type fakeGenerator struct {
	reply      string
	err        error
	calls      int
	lastSystem string
	lastUser   string
}

func (f *fakeGenerator) GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	f.calls++
	f.lastSystem = systemPrompt
	f.lastUser = userPrompt
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func newMsgService(db *gorm.DB, r ExcerptRetriever, g ReplyGenerator) *MessageService {
	return NewMessageService(db, r, rag.NewPromptBuilder(5, 3), g, 5)
}

func seedChat(t *testing.T, db *gorm.DB, userID string) *domain.Chat {
	t.Helper()
	chat, err := repo.CreateChat(context.Background(), db, userID, "New chat")
	if err != nil {
		t.Fatalf("seed chat: %v", err)
	}
	return chat
}

// ---------- Answer() ----------

func TestAnswer_EmptyPrompt(t *testing.T) {
	db := newSvcDB(t, &domain.Chat{}, &domain.Message{})
	s := newMsgService(db, &fakeRetriever{}, &fakeGenerator{reply: "x"})
	if _, err := s.Answer(context.Background(), "u1", "c1", "   "); !errors.Is(err, ErrEmptyPrompt) {
		t.Fatalf("expected ErrEmptyPrompt, got %v", err)
	}
}

func TestAnswer_TooLong(t *testing.T) {
	db := newSvcDB(t, &domain.Chat{}, &domain.Message{})
	s := newMsgService(db, &fakeRetriever{}, &fakeGenerator{reply: "x"})
	s.MaxPromptRunes = 10
	if _, err := s.Answer(context.Background(), "u1", "c1", strings.Repeat("a", 11)); !errors.Is(err, ErrTooLong) {
		t.Fatalf("expected ErrTooLong, got %v", err)
	}
}

func TestAnswer_ChatNotFound(t *testing.T) {
	db := newSvcDB(t, &domain.Chat{}, &domain.Message{})
	s := newMsgService(db, &fakeRetriever{}, &fakeGenerator{reply: "x"})
	if _, err := s.Answer(context.Background(), "u1", "missing", "hi"); !errors.Is(err, ErrChatNotFound) {
		t.Fatalf("expected ErrChatNotFound, got %v", err)
	}
}

func TestAnswer_WrongOwner(t *testing.T) {
	db := newSvcDB(t, &domain.Chat{}, &domain.Message{})
	chat := seedChat(t, db, "u1")
	s := newMsgService(db, &fakeRetriever{}, &fakeGenerator{reply: "x"})
	if _, err := s.Answer(context.Background(), "u2", chat.ID, "hi"); !errors.Is(err, ErrChatNotFound) {
		t.Fatalf("expected ErrChatNotFound for wrong owner, got %v", err)
	}
}

func TestAnswer_PersistsPairAndScore(t *testing.T) {
	db := newSvcDB(t, &domain.Chat{}, &domain.Message{})
	chat := seedChat(t, db, "u1")
	r := &fakeRetriever{excerpts: []rag.Excerpt{
		{ChunkID: "c1", DocumentID: "d1", Content: "Clause 7 says notice is 30 days.", Score: 0.91},
	}}
	g := &fakeGenerator{reply: "The notice period is 30 days."}
	s := newMsgService(db, r, g)

	msg, err := s.Answer(context.Background(), "u1", chat.ID, "What is the notice period?")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if msg.Role != roleAssistant || msg.Content != "The notice period is 30 days." {
		t.Fatalf("unexpected assistant message: %+v", msg)
	}
	if msg.Score == nil || *msg.Score != 0.91 {
		t.Fatalf("top retrieval score not persisted: %v", msg.Score)
	}

	all, err := repo.ListMessages(context.Background(), db, chat.ID, 0)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(all) != 2 || all[0].Role != roleUser || all[1].Role != roleAssistant {
		t.Fatalf("transcript pair wrong: %+v", all)
	}

	// The excerpt made it into the generation input.
	if !strings.Contains(g.lastSystem, "Clause 7 says notice is 30 days.") {
		t.Fatalf("excerpt missing from prompt:\n%s", g.lastSystem)
	}
}

func TestAnswer_GenerationFailure_PersistsNothing(t *testing.T) {
	db := newSvcDB(t, &domain.Chat{}, &domain.Message{})
	chat := seedChat(t, db, "u1")
	g := &fakeGenerator{err: errors.New("upstream 500")}
	s := newMsgService(db, &fakeRetriever{}, g)

	if _, err := s.Answer(context.Background(), "u1", chat.ID, "hi"); !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}

	n, err := repo.CountMessages(context.Background(), db, chat.ID)
	if err != nil {
		t.Fatalf("CountMessages: %v", err)
	}
	if n != 0 {
		t.Fatalf("transcript modified after failed generation: %d messages", n)
	}
}

func TestAnswer_RetrievalFailureIsSoft(t *testing.T) {
	db := newSvcDB(t, &domain.Chat{}, &domain.Message{})
	chat := seedChat(t, db, "u1")
	r := &fakeRetriever{err: errors.New("index offline")}
	g := &fakeGenerator{reply: "General legal guidance."}
	s := newMsgService(db, r, g)

	msg, err := s.Answer(context.Background(), "u1", chat.ID, "hi")
	if err != nil {
		t.Fatalf("Answer should survive retrieval failure: %v", err)
	}
	if msg.Score != nil {
		t.Fatalf("ungrounded reply should carry no score: %v", *msg.Score)
	}
	if strings.Contains(g.lastSystem, "Context from the user's documents") {
		t.Fatal("prompt should have no excerpt section after retrieval failure")
	}
}

func TestAnswer_AutoTitlesPlaceholderChat(t *testing.T) {
	db := newSvcDB(t, &domain.Chat{}, &domain.Message{})
	chat := seedChat(t, db, "u1")
	s := newMsgService(db, &fakeRetriever{}, &fakeGenerator{reply: "ok"})

	if _, err := s.Answer(context.Background(), "u1", chat.ID, "what is the stamp duty on a lease"); err != nil {
		t.Fatalf("Answer: %v", err)
	}
	got, err := repo.GetChat(context.Background(), db, chat.ID, "u1")
	if err != nil {
		t.Fatalf("GetChat: %v", err)
	}
	if got.Title == "New chat" || got.Title == "" {
		t.Fatalf("placeholder title not replaced: %q", got.Title)
	}
	if !strings.Contains(got.Title, "Stamp") {
		t.Fatalf("title not derived from prompt: %q", got.Title)
	}
}

func TestAnswer_KeepsExistingTitle(t *testing.T) {
	db := newSvcDB(t, &domain.Chat{}, &domain.Message{})
	chat, _ := repo.CreateChat(context.Background(), db, "u1", "Lease review")
	s := newMsgService(db, &fakeRetriever{}, &fakeGenerator{reply: "ok"})

	if _, err := s.Answer(context.Background(), "u1", chat.ID, "something else entirely"); err != nil {
		t.Fatalf("Answer: %v", err)
	}
	got, _ := repo.GetChat(context.Background(), db, chat.ID, "u1")
	if got.Title != "Lease review" {
		t.Fatalf("existing title overwritten: %q", got.Title)
	}
}

func TestAnswer_HistoryWindowFeedsPrompt(t *testing.T) {
	db := newSvcDB(t, &domain.Chat{}, &domain.Message{})
	chat := seedChat(t, db, "u1")
	g := &fakeGenerator{reply: "ok"}
	s := newMsgService(db, &fakeRetriever{}, g)

	for i := 0; i < 4; i++ {
		if _, err := s.Answer(context.Background(), "u1", chat.ID, fmt.Sprintf("question %d", i)); err != nil {
			t.Fatalf("Answer %d: %v", i, err)
		}
	}

	// 6 prior messages exist; the window keeps the last 5 and the oldest
	// turn (question 0's user message) has aged out.
	if !strings.Contains(g.lastUser, "Previous conversation") {
		t.Fatalf("history section missing:\n%s", g.lastUser)
	}
	if strings.Contains(g.lastUser, "user: question 0\n") {
		t.Fatalf("aged-out turn still present:\n%s", g.lastUser)
	}
	if !strings.Contains(g.lastUser, "question 2") {
		t.Fatalf("recent turn missing:\n%s", g.lastUser)
	}
}

// ---------- ListPage() ----------

func TestListPage_ChatNotFound(t *testing.T) {
	db := newSvcDB(t, &domain.Chat{}, &domain.Message{})
	s := newMsgService(db, &fakeRetriever{}, &fakeGenerator{reply: "x"})
	if _, _, err := s.ListPage(context.Background(), "u1", "missing", 1, 10); !errors.Is(err, ErrChatNotFound) {
		t.Fatalf("expected ErrChatNotFound, got %v", err)
	}
}

func TestListPage_WrongOwner(t *testing.T) {
	db := newSvcDB(t, &domain.Chat{}, &domain.Message{})
	chat := seedChat(t, db, "u1")
	s := newMsgService(db, &fakeRetriever{}, &fakeGenerator{reply: "ok"})

	if _, err := s.Answer(context.Background(), "u1", chat.ID, "what does clause 4 mean?"); err != nil {
		t.Fatalf("Answer: %v", err)
	}

	// Another user must not be able to read the transcript.
	items, total, err := s.ListPage(context.Background(), "u2", chat.ID, 1, 10)
	if !errors.Is(err, ErrChatNotFound) {
		t.Fatalf("expected ErrChatNotFound, got %v (items=%d total=%d)", err, len(items), total)
	}
}

func TestListPage_DefaultsAndTotals(t *testing.T) {
	db := newSvcDB(t, &domain.Chat{}, &domain.Message{})
	chat := seedChat(t, db, "u1")
	s := newMsgService(db, &fakeRetriever{}, &fakeGenerator{reply: "ok"})

	for i := 0; i < 3; i++ {
		if _, err := s.Answer(context.Background(), "u1", chat.ID, fmt.Sprintf("q%d", i)); err != nil {
			t.Fatalf("Answer: %v", err)
		}
	}

	items, total, err := s.ListPage(context.Background(), "u1", chat.ID, 0, 0)
	if err != nil {
		t.Fatalf("ListPage: %v", err)
	}
	if total != 6 || len(items) != 6 {
		t.Fatalf("got total=%d len=%d, want 6/6", total, len(items))
	}
}
