package server

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/cellexec/backend"
	"github.com/jonwraymond/cellexec/exec"
)

// NewMCPServer returns an MCP server exposing every tool of agg under its
// plain tool name.
func NewMCPServer(ctx context.Context, agg *backend.Aggregator, impl *mcp.Implementation) (*mcp.Server, error) {
	tools, err := agg.ListAllTools(ctx)
	if err != nil {
		return nil, err
	}

	srv := mcp.NewServer(impl, nil)
	seen := make(map[string]string, len(tools))
	for _, t := range tools {
		id := backend.FormatToolID(t.Namespace, t.Name)
		if prev, dup := seen[t.Name]; dup {
			return nil, fmt.Errorf("mcp: tool name %q used by %s and %s", t.Name, prev, id)
		}
		seen[t.Name] = id

		tool := t.Tool
		srv.AddTool(&tool, callTool(agg, id))
	}
	return srv, nil
}

func callTool(agg *backend.Aggregator, id string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args map[string]any
		if raw := req.Params.Arguments; len(raw) > 0 {
			if err := jsonAPI.Unmarshal(raw, &args); err != nil {
				return toolError(fmt.Errorf("decode arguments: %w", err)), nil
			}
		}

		out, err := agg.Execute(ctx, id, args)
		if err != nil {
			return toolError(err), nil
		}
		text, err := jsonAPI.MarshalToString(out)
		if err != nil {
			return toolError(fmt.Errorf("encode result: %w", err)), nil
		}

		res := &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
		if resp, ok := out.(exec.Response); ok && !resp.OK() {
			res.IsError = true
		}
		return res, nil
	}
}

func toolError(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
		IsError: true,
	}
}

// ServeStdio runs the MCP server over standard input and output until ctx
// ends or the client disconnects.
func (s *Server) ServeStdio(ctx context.Context) error {
	if s.mcp == nil {
		return fmt.Errorf("%w: MCP is disabled", ErrInvalidOptions)
	}
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}
