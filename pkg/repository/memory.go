package repository

import (
	"context"
	"sync"

	"github.com/m-mizutani/kotae/pkg/model"
)

// memoryRepo implements Repository in process memory. Used for tests and
// ephemeral runs where nothing should persist.
type memoryRepo struct {
	mu            sync.Mutex
	documents     []*model.Document
	memory        []*model.MemoryItem
	conversations []*model.ConversationEntry
}

// NewMemory creates an empty in-process repository.
func NewMemory() *memoryRepo {
	return &memoryRepo{}
}

func (r *memoryRepo) LoadDocuments(ctx context.Context) ([]*model.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*model.Document, len(r.documents))
	copy(out, r.documents)
	return out, nil
}

func (r *memoryRepo) PutDocument(ctx context.Context, doc *model.Document) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, d := range r.documents {
		if d.ID == doc.ID {
			r.documents[i] = doc
			return len(r.documents), nil
		}
	}
	r.documents = append(r.documents, doc)
	return len(r.documents), nil
}

func (r *memoryRepo) GetDocuments(ctx context.Context, ids []model.DocumentID) ([]*model.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	byID := make(map[model.DocumentID]*model.Document, len(r.documents))
	for _, d := range r.documents {
		byID[d.ID] = d
	}

	var found []*model.Document
	for _, id := range ids {
		if d, ok := byID[id]; ok {
			d.AccessCount++
			found = append(found, d)
		}
	}
	return found, nil
}

func (r *memoryRepo) LoadMemory(ctx context.Context) ([]*model.MemoryItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*model.MemoryItem, len(r.memory))
	copy(out, r.memory)
	return out, nil
}

func (r *memoryRepo) PutMemoryItem(ctx context.Context, item *model.MemoryItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, m := range r.memory {
		if m.Key == item.Key {
			r.memory[i] = item
			return nil
		}
	}
	r.memory = append(r.memory, item)
	return nil
}

func (r *memoryRepo) GetMemory(ctx context.Context, key, category string) ([]*model.MemoryItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var found []*model.MemoryItem
	for _, m := range r.memory {
		if matchMemory(m, key, category) {
			m.AccessCount++
			found = append(found, m)
		}
	}
	return found, nil
}

func (r *memoryRepo) LoadConversations(ctx context.Context) ([]*model.ConversationEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*model.ConversationEntry, len(r.conversations))
	copy(out, r.conversations)
	return out, nil
}

func (r *memoryRepo) PutConversations(ctx context.Context, entries []*model.ConversationEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.conversations = make([]*model.ConversationEntry, len(entries))
	copy(r.conversations, entries)
	return nil
}
