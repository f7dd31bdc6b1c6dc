package backend

import (
	"context"
	"fmt"

	"github.com/jonwraymond/toolfoundation/model"
)

// Aggregator exposes the tools of every enabled backend under IDs of the
// form "backend:tool".
type Aggregator struct {
	registry *Registry
}

// NewAggregator creates a new tool aggregator.
func NewAggregator(registry *Registry) *Aggregator {
	return &Aggregator{registry: registry}
}

// ListAllTools returns tools from all enabled backends.
func (a *Aggregator) ListAllTools(ctx context.Context) ([]model.Tool, error) {
	var all []model.Tool
	for _, b := range a.registry.ListEnabled() {
		tools, err := b.ListTools(ctx)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", b.Name(), err)
		}
		for i := range tools {
			if tools[i].Namespace == "" {
				tools[i].Namespace = b.Name()
			}
			all = append(all, tools[i])
		}
	}
	return all, nil
}

// Lookup returns the definition of the tool with the given ID.
func (a *Aggregator) Lookup(ctx context.Context, toolID string) (model.Tool, error) {
	b, name, err := a.resolve(toolID)
	if err != nil {
		return model.Tool{}, err
	}
	tools, err := b.ListTools(ctx)
	if err != nil {
		return model.Tool{}, err
	}
	for _, t := range tools {
		if t.Name == name {
			if t.Namespace == "" {
				t.Namespace = b.Name()
			}
			return t, nil
		}
	}
	return model.Tool{}, fmt.Errorf("%w: %s", ErrToolNotFound, toolID)
}

// Execute invokes a tool through the backend registry.
func (a *Aggregator) Execute(ctx context.Context, toolID string, args map[string]any) (any, error) {
	b, name, err := a.resolve(toolID)
	if err != nil {
		return nil, err
	}
	return b.Execute(ctx, name, args)
}

func (a *Aggregator) resolve(toolID string) (Backend, string, error) {
	backendName, tool, err := ParseToolID(toolID)
	if err != nil {
		return nil, "", err
	}
	if backendName == "" {
		return nil, "", fmt.Errorf("%w: %q has no backend", ErrInvalidToolID, toolID)
	}
	b, ok := a.registry.Get(backendName)
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", ErrBackendNotFound, backendName)
	}
	if !b.Enabled() {
		return nil, "", fmt.Errorf("%w: %s", ErrBackendDisabled, backendName)
	}
	return b, tool, nil
}

// ParseToolID splits a tool ID into backend and tool name.
func ParseToolID(id string) (backendName, tool string, err error) {
	backendName, tool, err = model.ParseToolID(id)
	if err != nil {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidToolID, id)
	}
	return backendName, tool, nil
}

// FormatToolID builds a tool ID from backend and tool name.
func FormatToolID(backendName, tool string) string {
	if backendName == "" {
		return tool
	}
	return backendName + ":" + tool
}
