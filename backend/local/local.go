// Package local provides a Backend whose tools are in-process Go handlers.
// The cell kernel registers run_cell, reset and cells here.
package local

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/jonwraymond/toolfoundation/model"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/cellexec/backend"
)

// HandlerFunc is the function signature for tool handlers.
type HandlerFunc func(ctx context.Context, args map[string]any) (any, error)

// ToolDef defines a local tool with its handler.
type ToolDef struct {
	Name        string
	Title       string
	Description string
	// InputSchema defaults to {"type": "object"}.
	InputSchema map[string]any
	Annotations *mcp.ToolAnnotations
	Tags        []string
	Handler     HandlerFunc
}

// Backend implements backend.Backend for local tool handlers.
type Backend struct {
	name     string
	mu       sync.RWMutex
	enabled  bool
	handlers map[string]ToolDef
}

// New creates a new local backend.
func New(name string) *Backend {
	return &Backend{
		name:     name,
		enabled:  true,
		handlers: make(map[string]ToolDef),
	}
}

// Kind returns the backend kind.
func (b *Backend) Kind() string {
	return "local"
}

// Name returns the backend instance name.
func (b *Backend) Name() string {
	return b.name
}

// Enabled returns whether the backend is enabled.
func (b *Backend) Enabled() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.enabled
}

// SetEnabled enables or disables the backend.
func (b *Backend) SetEnabled(enabled bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.enabled = enabled
}

// RegisterHandler registers or replaces a tool handler.
func (b *Backend) RegisterHandler(name string, def ToolDef) error {
	if name == "" {
		return errors.New("local: tool name is required")
	}
	if def.Handler == nil {
		return fmt.Errorf("local: tool %s has no handler", name)
	}
	def.Name = name
	if def.InputSchema == nil {
		def.InputSchema = map[string]any{"type": "object"}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = def
	return nil
}

// Tool returns the definition of a registered tool.
func (b *Backend) Tool(name string) (model.Tool, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	def, ok := b.handlers[name]
	if !ok {
		return model.Tool{}, false
	}
	return b.toModel(def), true
}

// ListTools returns the registered tools ordered by name.
func (b *Backend) ListTools(_ context.Context) ([]model.Tool, error) {
	b.mu.RLock()
	out := make([]model.Tool, 0, len(b.handlers))
	for _, def := range b.handlers {
		out = append(out, b.toModel(def))
	}
	b.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (b *Backend) toModel(def ToolDef) model.Tool {
	return model.Tool{
		Tool: mcp.Tool{
			Name:        def.Name,
			Title:       def.Title,
			Description: def.Description,
			InputSchema: def.InputSchema,
			Annotations: def.Annotations,
		},
		Namespace: b.name,
		Tags:      model.NormalizeTags(def.Tags),
	}
}

// Execute invokes a tool handler.
func (b *Backend) Execute(ctx context.Context, tool string, args map[string]any) (any, error) {
	b.mu.RLock()
	enabled := b.enabled
	def, ok := b.handlers[tool]
	b.mu.RUnlock()

	if !enabled {
		return nil, backend.ErrBackendDisabled
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", backend.ErrToolNotFound, tool)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return def.Handler(ctx, args)
}

// Start is a no-op for local backends.
func (b *Backend) Start(_ context.Context) error {
	return nil
}

// Stop is a no-op for local backends.
func (b *Backend) Stop() error {
	return nil
}
