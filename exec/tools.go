package exec

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/jonwraymond/tooldiscovery/tooldoc"
	"github.com/jonwraymond/toolfoundation/model"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/cellexec/backend"
	"github.com/jonwraymond/cellexec/backend/local"
)

// Kernel tool names.
const (
	ToolRunCell = "run_cell"
	ToolReset   = "reset"
	ToolCells   = "cells"
)

var argsAPI = sonic.Config{UseNumber: true}.Froze()

type kernelTool struct {
	def local.ToolDef
	doc tooldoc.DocEntry
}

func (e *Exec) kernelTools() []kernelTool {
	return []kernelTool{
		{
			def: local.ToolDef{
				Name:        ToolRunCell,
				Title:       "Run cell",
				Description: "Execute a notebook cell against the namespaces of its predecessor cells",
				InputSchema: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"cellId":         map[string]any{"type": "string"},
						"predecessorIds": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
						"code":           map[string]any{"type": "string"},
						"capturedIn":     map[string]any{"type": "object"},
						"capturedOut":    map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					},
					"required": []any{"cellId", "code"},
				},
				Tags:    []string{"cell", "execute", "notebook", "starlark"},
				Handler: e.runCellTool,
			},
			doc: tooldoc.DocEntry{
				Summary: "Runs a Starlark cell and returns its output and projected bindings",
				Notes:   "An empty predecessorIds list starts a new lineage and discards stored namespaces",
				Examples: []tooldoc.ToolExample{
					{Title: "Root cell", Args: map[string]any{"cellId": "c1", "code": "x = 1", "capturedOut": []any{"x"}}},
					{Title: "Follow-up cell", Args: map[string]any{"cellId": "c2", "predecessorIds": []any{"c1"}, "code": "y = x + 1"}},
				},
			},
		},
		{
			def: local.ToolDef{
				Name:        ToolReset,
				Description: "Discard every stored cell namespace",
				InputSchema: map[string]any{"type": "object"},
				Annotations: &mcp.ToolAnnotations{DestructiveHint: boolPtr(true)},
				Tags:        []string{"cell", "reset", "namespace"},
				Handler:     e.resetTool,
			},
			doc: tooldoc.DocEntry{Summary: "Clears the namespace store"},
		},
		{
			def: local.ToolDef{
				Name:        ToolCells,
				Description: "List the cells whose namespaces are stored",
				InputSchema: map[string]any{"type": "object"},
				Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
				Tags:        []string{"cell", "list", "namespace"},
				Handler:     e.cellsTool,
			},
			doc: tooldoc.DocEntry{Summary: "Lists stored cell IDs"},
		},
	}
}

func (e *Exec) registerTools() error {
	for _, kt := range e.kernelTools() {
		if err := e.tools.RegisterHandler(kt.def.Name, kt.def); err != nil {
			return err
		}
		tool, _ := e.tools.Tool(kt.def.Name)
		if err := e.index.RegisterTool(tool, model.NewLocalBackend(kt.def.Name)); err != nil {
			return fmt.Errorf("register tool %s: %w", kt.def.Name, err)
		}
		if store, ok := e.docs.(*tooldoc.InMemoryStore); ok {
			id := backend.FormatToolID(tool.Namespace, tool.Name)
			if err := store.RegisterDoc(id, kt.doc); err != nil {
				return fmt.Errorf("register doc %s: %w", id, err)
			}
		}
	}
	return nil
}

func (e *Exec) runCellTool(ctx context.Context, args map[string]any) (any, error) {
	var req Request
	raw, err := argsAPI.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if err := argsAPI.Unmarshal(raw, &req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	// Cell faults travel in Response.Error, not as tool failures.
	resp, _ := e.RunCell(ctx, req)
	return resp, nil
}

func (e *Exec) resetTool(ctx context.Context, _ map[string]any) (any, error) {
	n := e.store.Len()
	if err := e.Reset(ctx); err != nil {
		return nil, err
	}
	return map[string]any{"cleared": n}, nil
}

func (e *Exec) cellsTool(_ context.Context, _ map[string]any) (any, error) {
	return map[string]any{"cells": e.Cells()}, nil
}

// Backend returns the local backend serving the kernel tools.
func (e *Exec) Backend() *local.Backend {
	return e.tools
}

// RunTool executes a kernel tool by ID and returns the result.
func (e *Exec) RunTool(ctx context.Context, toolID string, args map[string]any) (Result, error) {
	start := time.Now()
	ns, name, err := backend.ParseToolID(toolID)
	if err == nil && ns != e.tools.Name() {
		err = fmt.Errorf("%w: %s", ErrUnknownTool, toolID)
	}
	var value any
	if err == nil {
		value, err = e.tools.Execute(ctx, name, args)
	}
	res := Result{Value: value, ToolID: toolID, Duration: time.Since(start), Error: err}
	return res, err
}

// SearchTools finds kernel tools matching a query.
func (e *Exec) SearchTools(ctx context.Context, query string, limit int) ([]ToolSummary, error) {
	_ = ctx
	return e.index.Search(query, limit)
}

// GetToolDoc retrieves tool documentation at the specified detail level.
func (e *Exec) GetToolDoc(ctx context.Context, toolID string, level tooldoc.DetailLevel) (tooldoc.ToolDoc, error) {
	_ = ctx
	return e.docs.DescribeTool(toolID, level)
}

func boolPtr(b bool) *bool { return &b }
