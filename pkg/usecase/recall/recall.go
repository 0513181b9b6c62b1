// Package recall implements the second pipeline stage: gathering every
// piece of stored context relevant to the analyzed query and suggesting
// an answer strategy. It is fully deterministic and never calls a model.
package recall

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/kotae/pkg/model"
	"github.com/m-mizutani/kotae/pkg/repository"
	"github.com/m-mizutani/kotae/pkg/service/rank"
	"github.com/m-mizutani/kotae/pkg/utils/logging"
)

const (
	baseConfidence    = 50.0
	sufficiencyBonus  = 30.0
	conversationBonus = 10.0
	profileBonus      = 10.0
	maxConfidence     = 95.0
)

// Recaller gathers context from the document, memory and conversation
// stores.
type Recaller struct {
	repo repository.Repository
}

func New(repo repository.Repository) *Recaller {
	return &Recaller{repo: repo}
}

// Execute loads the stores, filters them by relevance to the perception
// keywords and derives the suggested strategy. Store errors degrade to
// an empty store for that call; Execute itself never returns an error.
func (r *Recaller) Execute(ctx context.Context, perception *model.PerceptionResult, history []*model.ConversationEntry) *model.RecallResult {
	logger := logging.From(ctx)
	var reasoning []string

	if perception.Profile != nil {
		reasoning = append(reasoning, "[PREFERENCE_LOAD] Loaded user preferences for personalization")
	}

	documents, err := r.repo.LoadDocuments(ctx)
	if err != nil {
		logger.Warn("failed to load documents, treating store as empty", "error", err)
		documents = nil
	}
	reasoning = append(reasoning, fmt.Sprintf("[DATA_LOAD] Loaded %d documents from storage", len(documents)))

	memories, err := r.repo.LoadMemory(ctx)
	if err != nil {
		logger.Warn("failed to load memory, treating store as empty", "error", err)
		memories = nil
	}
	reasoning = append(reasoning, fmt.Sprintf("[DATA_LOAD] Loaded %d memory items", len(memories)))

	if history == nil {
		history, err = r.repo.LoadConversations(ctx)
		if err != nil {
			logger.Warn("failed to load conversations, treating store as empty", "error", err)
			history = nil
		}
	}
	reasoning = append(reasoning, fmt.Sprintf("[DATA_LOAD] Loaded %d previous conversations", len(history)))

	relevantDocs := rank.Documents(documents, perception.Keywords, 0)
	reasoning = append(reasoning, fmt.Sprintf("[DOCUMENT_FILTER] Found %d relevant documents (threshold: >%.1f)",
		len(relevantDocs), rank.DocumentThreshold))

	relevantMemories := rank.Memories(memories, perception.Keywords)
	reasoning = append(reasoning, fmt.Sprintf("[MEMORY_FILTER] Found %d relevant memories", len(relevantMemories)))

	relevantConversations := rank.Conversations(history, perception.Keywords)
	reasoning = append(reasoning, fmt.Sprintf("[CONVERSATION_FILTER] Found %d relevant past conversations", len(relevantConversations)))

	hasSufficientContext := len(relevantDocs) > 0
	reasoning = append(reasoning, fmt.Sprintf("[CONTEXT_CHECK] Sufficient context: %t", hasSufficientContext))

	summary := buildSummary(relevantDocs, relevantMemories, relevantConversations, perception.Profile)
	reasoning = append(reasoning, "[CONTEXT_SUMMARY] "+summary)

	strategy := model.SelectStrategy(perception.RequiresLiveData, hasSufficientContext)
	switch strategy {
	case model.StrategyLiveSearch:
		reasoning = append(reasoning, "[METHOD_SUGGESTION] Live/current data required → LIVE_SEARCH")
	case model.StrategyRAG:
		reasoning = append(reasoning, "[METHOD_SUGGESTION] Sufficient documents found → RAG")
	default:
		reasoning = append(reasoning, "[METHOD_SUGGESTION] No relevant documents → GEMINI_KNOWLEDGE")
	}

	confidence := baseConfidence
	if hasSufficientContext {
		confidence += sufficiencyBonus
	}
	if len(relevantConversations) > 0 {
		confidence += conversationBonus
	}
	if perception.Profile != nil {
		confidence += profileBonus
	}
	if confidence > maxConfidence {
		confidence = maxConfidence
	}
	reasoning = append(reasoning, fmt.Sprintf("[CONFIDENCE_CALC] Final confidence: %.0f%%", confidence))

	logger.Debug("recall complete",
		"documents", len(relevantDocs),
		"memories", len(relevantMemories),
		"conversations", len(relevantConversations),
		"strategy", strategy)

	return &model.RecallResult{
		Query:                 perception.Query,
		Intent:                perception.Intent,
		QueryType:             perception.QueryType,
		Keywords:              perception.Keywords,
		RequiresLiveData:      perception.RequiresLiveData,
		RequiresDeepReasoning: perception.RequiresDeepReasoning,
		Profile:               perception.Profile,
		Documents:             relevantDocs,
		Memories:              relevantMemories,
		Conversations:         relevantConversations,
		ContextSummary:        summary,
		HasSufficientContext:  hasSufficientContext,
		SuggestedStrategy:     strategy,
		Reasoning:             reasoning,
		Confidence:            confidence,
	}
}

func buildSummary(docs []*model.Document, memories []*model.MemoryItem, conversations []*model.ConversationEntry, profile *model.Profile) string {
	var parts []string

	if len(docs) > 0 {
		parts = append(parts, fmt.Sprintf("%d relevant documents available", len(docs)))
	} else {
		parts = append(parts, "No relevant documents in storage")
	}

	if len(conversations) > 0 {
		parts = append(parts, fmt.Sprintf("%d related past conversations", len(conversations)))
	}

	if len(memories) > 0 {
		parts = append(parts, fmt.Sprintf("%d agent memories", len(memories)))
	}

	if profile != nil {
		parts = append(parts, fmt.Sprintf("User preferences: %s level, %s style",
			profile.ExpertiseLevel, profile.ResponseStyle))
	}

	return strings.Join(parts, "; ")
}
