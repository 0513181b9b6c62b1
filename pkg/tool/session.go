package tool

import (
	"context"
	"fmt"
	"sort"

	"github.com/m-mizutani/kotae/pkg/model"
	"github.com/m-mizutani/kotae/pkg/utils/logging"
)

// Session executes one planned batch of tool calls. A fresh session is
// created per action so execution records never leak across iterations.
type Session struct {
	registry *Registry
	records  []*model.ToolExecutionRecord
}

// NewSession creates a session bound to a registry.
func NewSession(registry *Registry) *Session {
	return &Session{registry: registry}
}

// Run executes the plan items in priority order (priority 1 first, ties
// keep plan order) and records every outcome. A failing tool does not
// stop the remaining items.
func (s *Session) Run(ctx context.Context, plan []*model.ToolPlanItem) []*model.ToolExecutionRecord {
	ordered := make([]*model.ToolPlanItem, len(plan))
	copy(ordered, plan)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority < ordered[j].Priority
	})

	logger := logging.From(ctx)
	for _, item := range ordered {
		logger.Debug("executing tool", "tool", item.Tool, "priority", item.Priority)

		result, err := s.registry.Execute(ctx, item.Tool, item.Args)
		record := &model.ToolExecutionRecord{
			Tool:   item.Tool,
			Result: result,
		}

		if err != nil {
			record.Success = false
			record.Error = err.Error()
			record.Summary = fmt.Sprintf("%s failed: %v", item.Tool, err)
			logger.Warn("tool execution failed", "tool", item.Tool, "error", err)
		} else {
			record.Success = true
			record.Summary = fmt.Sprintf("%s completed", item.Tool)
		}

		s.records = append(s.records, record)
	}

	return s.records
}

// Records returns all execution records accumulated by this session.
func (s *Session) Records() []*model.ToolExecutionRecord {
	return s.records
}
