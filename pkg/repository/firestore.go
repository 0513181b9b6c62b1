package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kotae/pkg/model"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	collectionDocuments     = "documents"
	collectionMemories      = "memories"
	collectionConversations = "conversations"

	// conversationHistoryDoc holds the whole history as one document so
	// PutConversations replaces it atomically.
	conversationHistoryDoc = "history"
)

// Firestore implements Repository using Cloud Firestore. Document IDs
// double as Firestore document names, so content-hash idempotency carries
// over to the remote store.
type Firestore struct {
	client *firestore.Client
}

// NewFirestore creates a Firestore-backed repository.
func NewFirestore(ctx context.Context, projectID, databaseID string) (*Firestore, error) {
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("project", projectID), goerr.V("database", databaseID))
	}

	return &Firestore{client: client}, nil
}

// Close releases the underlying client.
func (r *Firestore) Close() error {
	return r.client.Close()
}

func (r *Firestore) LoadDocuments(ctx context.Context) ([]*model.Document, error) {
	snaps, err := r.client.Collection(collectionDocuments).Documents(ctx).GetAll()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load documents")
	}

	docs := make([]*model.Document, 0, len(snaps))
	for _, snap := range snaps {
		var doc model.Document
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to decode document", goerr.V("id", snap.Ref.ID))
		}
		docs = append(docs, &doc)
	}
	return docs, nil
}

func (r *Firestore) PutDocument(ctx context.Context, doc *model.Document) (int, error) {
	ref := r.client.Collection(collectionDocuments).Doc(string(doc.ID))
	if _, err := ref.Set(ctx, doc); err != nil {
		return 0, goerr.Wrap(err, "failed to put document", goerr.V("id", doc.ID))
	}

	snaps, err := r.client.Collection(collectionDocuments).Documents(ctx).GetAll()
	if err != nil {
		return 0, goerr.Wrap(err, "failed to count documents")
	}
	return len(snaps), nil
}

func (r *Firestore) GetDocuments(ctx context.Context, ids []model.DocumentID) ([]*model.Document, error) {
	var found []*model.Document
	for _, id := range ids {
		ref := r.client.Collection(collectionDocuments).Doc(string(id))
		snap, err := ref.Get(ctx)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				continue
			}
			return nil, goerr.Wrap(err, "failed to get document", goerr.V("id", id))
		}

		var doc model.Document
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to decode document", goerr.V("id", id))
		}
		doc.AccessCount++

		if _, err := ref.Update(ctx, []firestore.Update{
			{Path: "AccessCount", Value: firestore.Increment(1)},
		}); err != nil {
			return nil, goerr.Wrap(err, "failed to update access count", goerr.V("id", id))
		}

		found = append(found, &doc)
	}
	return found, nil
}

func (r *Firestore) LoadMemory(ctx context.Context) ([]*model.MemoryItem, error) {
	snaps, err := r.client.Collection(collectionMemories).Documents(ctx).GetAll()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load memory")
	}

	items := make([]*model.MemoryItem, 0, len(snaps))
	for _, snap := range snaps {
		var item model.MemoryItem
		if err := snap.DataTo(&item); err != nil {
			return nil, goerr.Wrap(err, "failed to decode memory item", goerr.V("key", snap.Ref.ID))
		}
		items = append(items, &item)
	}
	return items, nil
}

func (r *Firestore) PutMemoryItem(ctx context.Context, item *model.MemoryItem) error {
	ref := r.client.Collection(collectionMemories).Doc(item.Key)
	if _, err := ref.Set(ctx, item); err != nil {
		return goerr.Wrap(err, "failed to put memory item", goerr.V("key", item.Key))
	}
	return nil
}

func (r *Firestore) GetMemory(ctx context.Context, key, category string) ([]*model.MemoryItem, error) {
	items, err := r.LoadMemory(ctx)
	if err != nil {
		return nil, err
	}

	var found []*model.MemoryItem
	for _, item := range items {
		if !matchMemory(item, key, category) {
			continue
		}
		item.AccessCount++

		ref := r.client.Collection(collectionMemories).Doc(item.Key)
		if _, err := ref.Update(ctx, []firestore.Update{
			{Path: "AccessCount", Value: firestore.Increment(1)},
		}); err != nil {
			return nil, goerr.Wrap(err, "failed to update access count", goerr.V("key", item.Key))
		}

		found = append(found, item)
	}
	return found, nil
}

type conversationHistory struct {
	Entries []*model.ConversationEntry `firestore:"entries"`
}

func (r *Firestore) LoadConversations(ctx context.Context) ([]*model.ConversationEntry, error) {
	snap, err := r.client.Collection(collectionConversations).Doc(conversationHistoryDoc).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to load conversations")
	}

	var history conversationHistory
	if err := snap.DataTo(&history); err != nil {
		return nil, goerr.Wrap(err, "failed to decode conversations")
	}
	return history.Entries, nil
}

func (r *Firestore) PutConversations(ctx context.Context, entries []*model.ConversationEntry) error {
	ref := r.client.Collection(collectionConversations).Doc(conversationHistoryDoc)
	if _, err := ref.Set(ctx, &conversationHistory{Entries: entries}); err != nil {
		return goerr.Wrap(err, "failed to put conversations")
	}
	return nil
}
