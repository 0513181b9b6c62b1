package repository

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kotae/pkg/model"
	"github.com/m-mizutani/kotae/pkg/utils/logging"
)

// localRepo implements Repository with JSON files under a directory.
// Every operation reloads from disk first, so multiple processes sharing
// a directory see each other's writes. A missing or corrupt file is
// treated as an empty store rather than an error.
type localRepo struct {
	dir string
	mu  sync.Mutex
}

// NewLocal creates a file-backed repository rooted at dir.
func NewLocal(dir string) (*localRepo, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, goerr.Wrap(err, "failed to create repository directory", goerr.V("dir", dir))
	}
	return &localRepo{dir: dir}, nil
}

const (
	documentsFile     = "documents.json"
	memoryFile        = "memory.json"
	conversationsFile = "conversations.json"
)

func loadFile[T any](ctx context.Context, path string) []T {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.From(ctx).Warn("failed to read store file, treating as empty", "path", path, "error", err)
		}
		return nil
	}

	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		logging.From(ctx).Warn("failed to parse store file, treating as empty", "path", path, "error", err)
		return nil
	}
	return items
}

func saveFile[T any](path string, items []T) error {
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return goerr.Wrap(err, "failed to marshal store file", goerr.V("path", path))
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return goerr.Wrap(err, "failed to write store file", goerr.V("path", path))
	}
	return nil
}

func (r *localRepo) path(name string) string {
	return filepath.Join(r.dir, name)
}

func (r *localRepo) LoadDocuments(ctx context.Context) ([]*model.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return loadFile[*model.Document](ctx, r.path(documentsFile)), nil
}

func (r *localRepo) PutDocument(ctx context.Context, doc *model.Document) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	docs := loadFile[*model.Document](ctx, r.path(documentsFile))
	replaced := false
	for i, d := range docs {
		if d.ID == doc.ID {
			docs[i] = doc
			replaced = true
			break
		}
	}
	if !replaced {
		docs = append(docs, doc)
	}

	if err := saveFile(r.path(documentsFile), docs); err != nil {
		return 0, err
	}
	return len(docs), nil
}

func (r *localRepo) GetDocuments(ctx context.Context, ids []model.DocumentID) ([]*model.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	docs := loadFile[*model.Document](ctx, r.path(documentsFile))
	byID := make(map[model.DocumentID]*model.Document, len(docs))
	for _, d := range docs {
		byID[d.ID] = d
	}

	var found []*model.Document
	for _, id := range ids {
		if d, ok := byID[id]; ok {
			d.AccessCount++
			found = append(found, d)
		}
	}

	if len(found) > 0 {
		if err := saveFile(r.path(documentsFile), docs); err != nil {
			return nil, err
		}
	}
	return found, nil
}

func (r *localRepo) LoadMemory(ctx context.Context) ([]*model.MemoryItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return loadFile[*model.MemoryItem](ctx, r.path(memoryFile)), nil
}

func (r *localRepo) PutMemoryItem(ctx context.Context, item *model.MemoryItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	items := loadFile[*model.MemoryItem](ctx, r.path(memoryFile))
	replaced := false
	for i, m := range items {
		if m.Key == item.Key {
			items[i] = item
			replaced = true
			break
		}
	}
	if !replaced {
		items = append(items, item)
	}

	return saveFile(r.path(memoryFile), items)
}

func (r *localRepo) GetMemory(ctx context.Context, key, category string) ([]*model.MemoryItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	items := loadFile[*model.MemoryItem](ctx, r.path(memoryFile))
	var found []*model.MemoryItem
	for _, m := range items {
		if matchMemory(m, key, category) {
			m.AccessCount++
			found = append(found, m)
		}
	}

	if len(found) > 0 {
		if err := saveFile(r.path(memoryFile), items); err != nil {
			return nil, err
		}
	}
	return found, nil
}

func (r *localRepo) LoadConversations(ctx context.Context) ([]*model.ConversationEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return loadFile[*model.ConversationEntry](ctx, r.path(conversationsFile)), nil
}

func (r *localRepo) PutConversations(ctx context.Context, entries []*model.ConversationEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return saveFile(r.path(conversationsFile), entries)
}
