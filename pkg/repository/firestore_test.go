package repository_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/kotae/pkg/model"
	"github.com/m-mizutani/kotae/pkg/repository"
)

func setupFirestore(t *testing.T) *repository.Firestore {
	projectID := os.Getenv("TEST_FIRESTORE_PROJECT_ID")
	databaseID := os.Getenv("TEST_FIRESTORE_DATABASE_ID")

	if projectID == "" || databaseID == "" {
		t.Skip("TEST_FIRESTORE_PROJECT_ID and TEST_FIRESTORE_DATABASE_ID must be set to run Firestore tests")
	}

	repo, err := repository.NewFirestore(context.Background(), projectID, databaseID)
	gt.NoError(t, err)
	t.Cleanup(func() {
		gt.NoError(t, repo.Close())
	})

	return repo
}

func TestFirestorePutDocument(t *testing.T) {
	repo := setupFirestore(t)
	ctx := context.Background()

	doc := &model.Document{
		ID:       model.NewDocumentID("Firestore Test Doc", "Body for firestore test."),
		Title:    "Firestore Test Doc",
		Body:     "Body for firestore test.",
		StoredAt: time.Now(),
	}

	count, err := repo.PutDocument(ctx, doc)
	gt.NoError(t, err)
	gt.Number(t, count).Greater(0)

	// Idempotent: same content hash must not grow the corpus
	again, err := repo.PutDocument(ctx, doc)
	gt.NoError(t, err)
	gt.V(t, again).Equal(count)
}

func TestFirestoreGetDocuments(t *testing.T) {
	repo := setupFirestore(t)
	ctx := context.Background()

	doc := &model.Document{
		ID:       model.NewDocumentID("Firestore Get Doc", "Access counter test body."),
		Title:    "Firestore Get Doc",
		Body:     "Access counter test body.",
		StoredAt: time.Now(),
	}
	_, err := repo.PutDocument(ctx, doc)
	gt.NoError(t, err)

	retrieved, err := repo.GetDocuments(ctx, []model.DocumentID{doc.ID})
	gt.NoError(t, err)
	gt.A(t, retrieved).Length(1)
	gt.Equal(t, retrieved[0].Title, doc.Title)
	gt.Number(t, retrieved[0].AccessCount).Greater(0)
}

func TestFirestoreGetDocumentsNotFound(t *testing.T) {
	repo := setupFirestore(t)
	ctx := context.Background()

	retrieved, err := repo.GetDocuments(ctx, []model.DocumentID{"non-existent-document"})
	gt.NoError(t, err)
	gt.A(t, retrieved).Length(0)
}

func TestFirestoreMemory(t *testing.T) {
	repo := setupFirestore(t)
	ctx := context.Background()

	item := &model.MemoryItem{
		Key:      "firestore_test_key",
		Value:    "firestore test value",
		Category: "test",
		StoredAt: time.Now(),
	}
	gt.NoError(t, repo.PutMemoryItem(ctx, item))

	found, err := repo.GetMemory(ctx, "firestore_test_key", "")
	gt.NoError(t, err)
	gt.A(t, found).Length(1)
	gt.Equal(t, found[0].Value, item.Value)
}

func TestFirestoreConversations(t *testing.T) {
	repo := setupFirestore(t)
	ctx := context.Background()

	entries := []*model.ConversationEntry{
		{
			ID:         model.NewConversationID(),
			Query:      "firestore conversation test",
			Answer:     "stored and reloaded",
			Strategy:   model.StrategyGeminiKnowledge,
			Confidence: 75,
			CreatedAt:  time.Now(),
		},
	}

	gt.NoError(t, repo.PutConversations(ctx, entries))

	loaded, err := repo.LoadConversations(ctx)
	gt.NoError(t, err)
	gt.A(t, loaded).Length(1)
	gt.Equal(t, loaded[0].Query, entries[0].Query)
}
