package tool

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kotae/pkg/model"
)

var errToolNotFound = goerr.New("tool not found")

// Registry manages the available tools. Registration order is preserved
// so descriptor listings are stable across runs.
type Registry struct {
	tools    map[string]Tool
	allTools []Tool
}

// New creates a new tool registry with the given tools
func New(tools ...Tool) *Registry {
	r := &Registry{
		tools:    make(map[string]Tool),
		allTools: tools,
	}

	for _, t := range tools {
		r.tools[t.Descriptor().Name] = t
	}

	return r
}

// Register adds more tools to the registry. A tool with a duplicate name
// replaces the earlier one.
func (r *Registry) Register(tools ...Tool) {
	for _, t := range tools {
		name := t.Descriptor().Name
		if _, ok := r.tools[name]; !ok {
			r.allTools = append(r.allTools, t)
		} else {
			for i, existing := range r.allTools {
				if existing.Descriptor().Name == name {
					r.allTools[i] = t
					break
				}
			}
		}
		r.tools[name] = t
	}
}

// Descriptors returns all tool descriptors in registration order
func (r *Registry) Descriptors() []model.ToolDescriptor {
	descs := make([]model.ToolDescriptor, 0, len(r.allTools))
	for _, t := range r.allTools {
		descs = append(descs, t.Descriptor())
	}
	return descs
}

// Execute runs the named tool with the given arguments
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (any, error) {
	t, ok := r.tools[name]
	if !ok {
		return nil, goerr.Wrap(errToolNotFound, "unknown tool", goerr.V("name", name))
	}

	return t.Execute(ctx, args)
}
