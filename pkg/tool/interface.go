package tool

import (
	"context"

	"github.com/m-mizutani/kotae/pkg/model"
)

// Tool represents an operation the decision stage can plan and the
// action stage can execute
type Tool interface {
	// Descriptor returns the tool description shown to the decision
	// prompt: name, parameters and usage guidance
	Descriptor() model.ToolDescriptor

	// Execute runs the tool with the given arguments and returns a
	// JSON-serializable result
	Execute(ctx context.Context, args map[string]any) (any, error)
}
