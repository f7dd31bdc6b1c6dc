package backend

import (
	"context"
	"errors"

	"github.com/jonwraymond/toolfoundation/model"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// stubBackend implements Backend for testing.
type stubBackend struct {
	name    string
	enabled bool
	tools   []string
	stopErr error
	stopped int
}

func (s *stubBackend) Kind() string  { return "stub" }
func (s *stubBackend) Name() string  { return s.name }
func (s *stubBackend) Enabled() bool { return s.enabled }

func (s *stubBackend) ListTools(_ context.Context) ([]model.Tool, error) {
	out := make([]model.Tool, 0, len(s.tools))
	for _, name := range s.tools {
		out = append(out, model.Tool{Tool: mcp.Tool{Name: name, InputSchema: map[string]any{"type": "object"}}})
	}
	return out, nil
}

func (s *stubBackend) Execute(ctx context.Context, tool string, args map[string]any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, name := range s.tools {
		if name == tool {
			return map[string]any{"backend": s.name, "tool": tool, "args": len(args)}, nil
		}
	}
	return nil, ErrToolNotFound
}

func (s *stubBackend) Start(_ context.Context) error { return nil }

func (s *stubBackend) Stop() error {
	s.stopped++
	return s.stopErr
}

var errStop = errors.New("stop failed")
