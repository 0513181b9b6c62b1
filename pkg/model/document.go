package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

type DocumentID string

// NewDocumentID derives a DocumentID from title and body so that storing
// the same content twice yields the same ID.
func NewDocumentID(title, body string) DocumentID {
	h := sha256.Sum256([]byte(title + body))
	return DocumentID(hex.EncodeToString(h[:]))
}

// Document is a stored document in the retrieval corpus.
type Document struct {
	ID          DocumentID        `json:"id"`
	Title       string            `json:"title"`
	Body        string            `json:"body"`
	URL         string            `json:"url,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	StoredAt    time.Time         `json:"stored_at"`
	AccessCount int               `json:"access_count"`

	// Score is recomputed per query during recall and never persisted.
	Score float64 `json:"score,omitempty" firestore:"-"`
}

// MemoryItem is a key-value fact remembered by the agent.
type MemoryItem struct {
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	Category    string    `json:"category"`
	StoredAt    time.Time `json:"stored_at"`
	AccessCount int       `json:"access_count"`
}

type ConversationID string

// NewConversationID generates a new unique ConversationID
func NewConversationID() ConversationID {
	return ConversationID(uuid.New().String())
}

// ConversationEntry is one completed query/answer exchange.
type ConversationEntry struct {
	ID         ConversationID `json:"id"`
	Query      string         `json:"query"`
	Answer     string         `json:"answer"`
	Strategy   Strategy       `json:"strategy"`
	Confidence float64        `json:"confidence"`
	CreatedAt  time.Time      `json:"created_at"`
}

// MaxConversationHistory bounds the persisted conversation history.
const MaxConversationHistory = 50
