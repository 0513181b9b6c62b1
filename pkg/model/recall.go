package model

import (
	"github.com/m-mizutani/goerr/v2"
)

var ErrInvalidStrategy = goerr.New("invalid strategy")

// Strategy is the answer-production method chosen for a query.
type Strategy string

const (
	StrategyRAG             Strategy = "RAG"
	StrategyLiveSearch      Strategy = "LIVE_SEARCH"
	StrategyGeminiKnowledge Strategy = "GEMINI_KNOWLEDGE"

	// StrategyError marks a total pipeline failure in the final response.
	StrategyError Strategy = "ERROR"
)

// Validate checks if the strategy is valid
func (s Strategy) Validate() error {
	switch s {
	case StrategyRAG, StrategyLiveSearch, StrategyGeminiKnowledge:
		return nil
	default:
		return goerr.Wrap(ErrInvalidStrategy, "unknown strategy", goerr.V("strategy", s))
	}
}

// SelectStrategy derives the strategy from the live-data flag and context
// sufficiency. The precedence is fixed: live data beats retrieval, and
// retrieval beats model knowledge.
func SelectStrategy(requiresLiveData, hasSufficientContext bool) Strategy {
	switch {
	case requiresLiveData:
		return StrategyLiveSearch
	case hasSufficientContext:
		return StrategyRAG
	default:
		return StrategyGeminiKnowledge
	}
}

// RecallResult is the output of the recall stage: the perception fields
// carried forward plus everything retrieved from the stores.
type RecallResult struct {
	Query                 string    `json:"query"`
	Intent                string    `json:"intent"`
	QueryType             QueryType `json:"query_type"`
	Keywords              []string  `json:"keywords"`
	RequiresLiveData      bool      `json:"requires_live_data"`
	RequiresDeepReasoning bool      `json:"requires_deep_reasoning"`
	Profile               *Profile  `json:"profile,omitempty"`

	Documents     []*Document          `json:"documents"`
	Memories      []*MemoryItem        `json:"memories"`
	Conversations []*ConversationEntry `json:"conversations"`

	ContextSummary       string   `json:"context_summary"`
	HasSufficientContext bool     `json:"has_sufficient_context"`
	SuggestedStrategy    Strategy `json:"suggested_strategy"`
	Reasoning            []string `json:"reasoning"`
	Confidence           float64  `json:"confidence"`
}
