// Package pipeline orchestrates the four stages of query processing:
// perception, recall, decision and action, with a bounded decide/act
// loop and conversation persistence.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kotae/pkg/adapter"
	"github.com/m-mizutani/kotae/pkg/model"
	"github.com/m-mizutani/kotae/pkg/repository"
	"github.com/m-mizutani/kotae/pkg/tool"
	"github.com/m-mizutani/kotae/pkg/usecase/act"
	"github.com/m-mizutani/kotae/pkg/usecase/decide"
	"github.com/m-mizutani/kotae/pkg/usecase/perceive"
	"github.com/m-mizutani/kotae/pkg/usecase/recall"
	"github.com/m-mizutani/kotae/pkg/utils/logging"
)

// MaxIterations bounds the decide/act loop per query.
const MaxIterations = 3

type perceiver interface {
	Execute(ctx context.Context, query string, history []*model.ConversationEntry, profile *model.Profile) *model.PerceptionResult
}

type recaller interface {
	Execute(ctx context.Context, perception *model.PerceptionResult, history []*model.ConversationEntry) *model.RecallResult
}

type decider interface {
	Execute(ctx context.Context, recalled *model.RecallResult, previous []*model.ToolExecutionRecord) *model.DecisionResult
}

type actor interface {
	Execute(ctx context.Context, decision *model.DecisionResult, recalled *model.RecallResult) *model.FinalAnswer
}

// Pipeline wires the four stages together over shared infrastructure.
type Pipeline struct {
	perceiver perceiver
	recaller  recaller
	decider   decider
	actor     actor

	repo    repository.Repository
	archive adapter.Storage
}

type Option func(*Pipeline)

// WithArchive stores every answered response in the given archive under
// responses/<conversation-id>.json.
func WithArchive(archive adapter.Storage) Option {
	return func(p *Pipeline) {
		p.archive = archive
	}
}

func New(gemini adapter.Gemini, repo repository.Repository, registry *tool.Registry, opts ...Option) *Pipeline {
	p := &Pipeline{
		perceiver: perceive.New(gemini),
		recaller:  recall.New(repo),
		decider:   decide.New(gemini, registry),
		actor:     act.New(gemini, registry),
		repo:      repo,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Execute processes one query through the full pipeline and returns the
// final response with the per-stage reasoning trace. Stage failures
// degrade inside the stages; Execute only fails on invariant violations.
func (p *Pipeline) Execute(ctx context.Context, query string, profile *model.Profile) (*model.Response, error) {
	if query == "" {
		return nil, goerr.New("query is required")
	}

	logger := logging.From(ctx)
	logger.Info("processing query", "query", query)

	history, err := p.repo.LoadConversations(ctx)
	if err != nil {
		logger.Warn("failed to load conversation history", "error", err)
		history = nil
	}

	flow := make(map[string][]string)

	perception := p.perceiver.Execute(ctx, query, history, profile)
	flow["perception"] = perception.Reasoning

	recalled := p.recaller.Execute(ctx, perception, history)
	flow["recall"] = recalled.Reasoning

	var previous []*model.ToolExecutionRecord
	var answer *model.FinalAnswer

	for i := 1; i <= MaxIterations; i++ {
		decision := p.decider.Execute(ctx, recalled, previous)
		flow[fmt.Sprintf("decision_%d", i)] = decision.Reasoning

		answer = p.actor.Execute(ctx, decision, recalled)
		flow[fmt.Sprintf("action_%d", i)] = answer.Reasoning

		previous = append(previous, answer.Records...)

		if !answer.NeedsAnotherDecision {
			break
		}
		logger.Debug("action requested another decision", "iteration", i)
	}

	entry := &model.ConversationEntry{
		ID:         model.NewConversationID(),
		Query:      query,
		Answer:     answer.Answer,
		Strategy:   answer.Strategy,
		Confidence: answer.Confidence,
		CreatedAt:  time.Now(),
	}
	if err := p.saveConversation(ctx, history, entry); err != nil {
		logger.Warn("failed to persist conversation", "error", err)
	}

	response := &model.Response{
		Query:          query,
		Answer:         answer.Answer,
		Confidence:     answer.Confidence,
		Sources:        answer.Sources,
		Strategy:       answer.Strategy,
		ReasoningFlow:  flow,
		ProfileApplied: profile != nil,
	}

	if p.archive != nil {
		if err := p.archiveResponse(ctx, entry.ID, response); err != nil {
			logger.Warn("failed to archive response", "error", err)
		}
	}

	logger.Info("query processed",
		"strategy", response.Strategy,
		"confidence", response.Confidence)

	return response, nil
}

// saveConversation appends the entry and trims the history to the most
// recent entries before writing it back.
func (p *Pipeline) saveConversation(ctx context.Context, history []*model.ConversationEntry, entry *model.ConversationEntry) error {
	updated := append(history, entry)
	if len(updated) > model.MaxConversationHistory {
		updated = updated[len(updated)-model.MaxConversationHistory:]
	}
	return p.repo.PutConversations(ctx, updated)
}

func (p *Pipeline) archiveResponse(ctx context.Context, id model.ConversationID, response *model.Response) error {
	w, err := p.archive.Put(ctx, "responses/"+string(id)+".json")
	if err != nil {
		return goerr.Wrap(err, "failed to open archive writer")
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		_ = w.Close()
		return goerr.Wrap(err, "failed to encode response")
	}
	return w.Close()
}
