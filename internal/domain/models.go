// Package domain defines the persistence models for chats, messages, and
// analyzed documents. These types are mapped with GORM and form the core
// data layer of the legal-assistant backend.
package domain

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Chat represents a conversation owned by a user. Each chat has a title
// (auto-generated from the first prompt when not provided) and contains the
// ordered transcript of user and assistant messages.
type Chat struct {
	ID        string         `json:"id"        gorm:"type:char(36);primaryKey"`
	UserID    string         `json:"user_id"   gorm:"type:varchar(64);not null;index:idx_user_chats"`
	Title     string         `json:"title"     gorm:"type:varchar(255);not null;default:'New chat'"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"         gorm:"index"`
}

// TableName returns the database table name for Chat.
func (Chat) TableName() string { return "chats" }

// Message is a single conversation turn within a chat, authored either by
// the "user" or the "assistant". The transcript is append-only: messages are
// never updated after creation. Assistant messages may carry the top
// retrieval similarity score that grounded the reply.
type Message struct {
	ID        string         `json:"id"        gorm:"type:char(36);primaryKey"`
	ChatID    string         `json:"chat_id"   gorm:"type:char(36);not null;index:idx_chat_msgs,priority:1"`
	Role      string         `json:"role"      gorm:"type:varchar(16);not null;check:role IN ('user','assistant')"`
	Content   string         `json:"content"   gorm:"type:text;not null"`
	Score     *float64       `json:"score,omitempty"` // only for grounded assistant messages
	CreatedAt time.Time      `json:"created_at" gorm:"index:idx_chat_msgs,priority:2"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"         gorm:"index"`

	// Chat is the parent conversation. Messages are cascade-deleted
	// if their chat is removed.
	Chat Chat `json:"-" gorm:"foreignKey:ChatID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }

// Document is an analyzed legal document. The extracted text is owned by the
// row and immutable once created; a document is only ever deleted outright,
// cascading to its chunks (both the rows and the vector index entries).
//
// Analysis holds the structured result produced at upload time: a bounded
// display excerpt, the full generated analysis, and the source text length.
type Document struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	UserID    string         `json:"user_id"    gorm:"type:varchar(64);not null;index:idx_user_docs"`
	Filename  string         `json:"filename"   gorm:"type:varchar(512);not null"`
	FileKind  string         `json:"file_kind"  gorm:"type:varchar(16);not null"`
	Text      string         `json:"-"          gorm:"type:text;not null"`
	Analysis  datatypes.JSON `json:"analysis"   gorm:"type:json"`
	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`
}

// TableName returns the database table name for Document.
func (Document) TableName() string { return "documents" }

// DocumentChunk is a bounded, overlapping passage of a document's extracted
// text: the unit of embedding and retrieval. Seq is the zero-based position
// of the chunk within its document; values are contiguous and strictly
// increasing. UserID is denormalized from the parent document so retrieval
// can filter by owner without a join.
//
// Embedding stores the chunk's vector as a JSON array so the in-memory index
// can be rebuilt at startup without re-embedding.
type DocumentChunk struct {
	ID         string         `json:"id"          gorm:"type:char(36);primaryKey"`
	DocumentID string         `json:"document_id" gorm:"type:char(36);not null;index:idx_doc_chunks,priority:1"`
	UserID     string         `json:"user_id"     gorm:"type:varchar(64);not null;index"`
	Seq        int            `json:"seq"         gorm:"not null;index:idx_doc_chunks,priority:2"`
	Content    string         `json:"content"     gorm:"type:text;not null"`
	Embedding  datatypes.JSON `json:"-"           gorm:"type:json"`
	CreatedAt  time.Time      `json:"created_at"`

	// Document is the parent. Chunks are cascade-deleted with their document.
	Document Document `json:"-" gorm:"foreignKey:DocumentID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for DocumentChunk.
func (DocumentChunk) TableName() string { return "document_chunks" }
