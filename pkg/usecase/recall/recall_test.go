package recall_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/kotae/pkg/model"
	"github.com/m-mizutani/kotae/pkg/repository"
	"github.com/m-mizutani/kotae/pkg/usecase/recall"
)

func perception(query string, keywords []string, liveData bool) *model.PerceptionResult {
	return &model.PerceptionResult{
		Query:            query,
		Intent:           "test intent",
		QueryType:        model.QueryTypeFactual,
		Keywords:         keywords,
		RequiresLiveData: liveData,
		Confidence:       90,
		Profile:          model.DefaultProfile(),
	}
}

func TestExecuteWithRelevantDocuments(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()

	doc := &model.Document{
		Title:    "Introduction to Quantum Computing",
		Body:     "quantum quantum quantum quantum quantum computing computing computing",
		URL:      "https://example.com/quantum",
		StoredAt: time.Now(),
	}
	doc.ID = model.NewDocumentID(doc.Title, doc.Body)
	_, err := repo.PutDocument(ctx, doc)
	gt.NoError(t, err)

	r := recall.New(repo)
	result := r.Execute(ctx, perception("What is quantum computing?", []string{"quantum", "computing"}, false), nil)

	gt.True(t, result.HasSufficientContext)
	gt.Equal(t, result.SuggestedStrategy, model.StrategyRAG)
	gt.A(t, result.Documents).Length(1)
	gt.Number(t, result.Documents[0].Score).Greater(10.0)

	// 50 base + 30 sufficiency + 10 profile
	gt.V(t, result.Confidence).Equal(90.0)
	gt.S(t, result.ContextSummary).Contains("1 relevant documents available")
}

func TestExecuteEmptyStore(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()

	r := recall.New(repo)
	result := r.Execute(ctx, perception("How does photosynthesis work?", []string{"photosynthesis"}, false), nil)

	gt.V(t, result.HasSufficientContext).Equal(false)
	gt.Equal(t, result.SuggestedStrategy, model.StrategyGeminiKnowledge)
	gt.A(t, result.Documents).Length(0)
	gt.S(t, result.ContextSummary).Contains("No relevant documents")

	// 50 base + 10 profile
	gt.V(t, result.Confidence).Equal(60.0)
}

func TestExecuteLiveDataWins(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()

	doc := &model.Document{
		Title: "AI regulations overview",
		Body:  "regulations regulations regulations regulations ai ai ai",
	}
	doc.ID = model.NewDocumentID(doc.Title, doc.Body)
	_, err := repo.PutDocument(ctx, doc)
	gt.NoError(t, err)

	r := recall.New(repo)
	result := r.Execute(ctx, perception("latest AI regulations", []string{"regulations", "ai"}, true), nil)

	// Live data beats retrieval even when documents match
	gt.True(t, result.HasSufficientContext)
	gt.Equal(t, result.SuggestedStrategy, model.StrategyLiveSearch)
}

func TestExecuteCarriesPerceptionFields(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()

	p := perception("some query", []string{"some", "query"}, false)
	p.RequiresDeepReasoning = true

	r := recall.New(repo)
	result := r.Execute(ctx, p, nil)

	gt.Equal(t, result.Query, p.Query)
	gt.Equal(t, result.Intent, p.Intent)
	gt.Equal(t, result.QueryType, p.QueryType)
	gt.Equal(t, result.Keywords, p.Keywords)
	gt.True(t, result.RequiresDeepReasoning)
	gt.V(t, result.Profile).Equal(p.Profile)
}

func TestExecuteConversationBonus(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()

	history := []*model.ConversationEntry{
		{
			ID:     model.NewConversationID(),
			Query:  "tell me about kubernetes clusters",
			Answer: "kubernetes orchestrates containers across clusters",
		},
	}
	gt.NoError(t, repo.PutConversations(ctx, history))

	r := recall.New(repo)
	result := r.Execute(ctx, perception("kubernetes scaling", []string{"kubernetes"}, false), nil)

	gt.A(t, result.Conversations).Length(1)

	// 50 base + 10 conversations + 10 profile
	gt.V(t, result.Confidence).Equal(70.0)
}

func TestExecuteMemoryFilter(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()

	gt.NoError(t, repo.PutMemoryItem(ctx, &model.MemoryItem{
		Key:      "favorite database",
		Value:    "postgres is preferred for relational workloads",
		Category: "preferences",
	}))
	gt.NoError(t, repo.PutMemoryItem(ctx, &model.MemoryItem{
		Key:      "unrelated fact",
		Value:    "the office plant needs watering",
		Category: "general",
	}))

	r := recall.New(repo)
	result := r.Execute(ctx, perception("which database do I like", []string{"postgres", "database"}, false), nil)

	gt.A(t, result.Memories).Length(1)
	gt.Equal(t, result.Memories[0].Key, "favorite database")
}

func TestExecuteReasoningTrace(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()

	r := recall.New(repo)
	result := r.Execute(ctx, perception("anything", []string{"anything"}, false), nil)

	trace := strings.Join(result.Reasoning, "\n")
	for _, tag := range []string{
		"[DATA_LOAD]", "[DOCUMENT_FILTER]", "[MEMORY_FILTER]",
		"[CONVERSATION_FILTER]", "[CONTEXT_CHECK]", "[CONTEXT_SUMMARY]",
		"[METHOD_SUGGESTION]", "[CONFIDENCE_CALC]",
	} {
		gt.S(t, trace).Contains(tag)
	}
}
