package repository

import (
	"context"

	"github.com/m-mizutani/kotae/pkg/model"
)

// Repository defines the interface for knowledge persistence: the
// document corpus, agent memory and conversation history.
type Repository interface {
	// LoadDocuments returns the full document corpus
	LoadDocuments(ctx context.Context) ([]*model.Document, error)

	// PutDocument saves a document. The ID is derived from content, so
	// storing the same document twice overwrites in place. Returns the
	// total document count after the write.
	PutDocument(ctx context.Context, doc *model.Document) (int, error)

	// GetDocuments retrieves documents by ID and increments their access
	// counters. Unknown IDs are skipped.
	GetDocuments(ctx context.Context, ids []model.DocumentID) ([]*model.Document, error)

	// LoadMemory returns all memory items
	LoadMemory(ctx context.Context) ([]*model.MemoryItem, error)

	// PutMemoryItem saves a memory item, replacing any item with the
	// same key.
	PutMemoryItem(ctx context.Context, item *model.MemoryItem) error

	// GetMemory retrieves memory items matching key or category and
	// increments their access counters. Empty key and category return
	// everything.
	GetMemory(ctx context.Context, key, category string) ([]*model.MemoryItem, error)

	// LoadConversations returns the conversation history, oldest first
	LoadConversations(ctx context.Context) ([]*model.ConversationEntry, error)

	// PutConversations replaces the stored conversation history
	PutConversations(ctx context.Context, entries []*model.ConversationEntry) error
}

func matchMemory(item *model.MemoryItem, key, category string) bool {
	if key != "" && item.Key != key {
		return false
	}
	if category != "" && item.Category != category {
		return false
	}
	return true
}
