package pipeline

import (
	"context"

	"github.com/m-mizutani/kotae/pkg/model"
)

// DeciderFunc and ActorFunc let tests script the decide/act loop.
type DeciderFunc func(ctx context.Context, recalled *model.RecallResult, previous []*model.ToolExecutionRecord) *model.DecisionResult

func (f DeciderFunc) Execute(ctx context.Context, recalled *model.RecallResult, previous []*model.ToolExecutionRecord) *model.DecisionResult {
	return f(ctx, recalled, previous)
}

type ActorFunc func(ctx context.Context, decision *model.DecisionResult, recalled *model.RecallResult) *model.FinalAnswer

func (f ActorFunc) Execute(ctx context.Context, decision *model.DecisionResult, recalled *model.RecallResult) *model.FinalAnswer {
	return f(ctx, decision, recalled)
}

// SetLoopStagesForTest replaces the decide and act stages.
func (p *Pipeline) SetLoopStagesForTest(d DeciderFunc, a ActorFunc) {
	p.decider = d
	p.actor = a
}
