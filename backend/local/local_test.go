package local

import (
	"context"
	"errors"
	"testing"

	"github.com/jonwraymond/cellexec/backend"
)

func echo(_ context.Context, args map[string]any) (any, error) {
	return args, nil
}

func TestLocalBackend_Interface(t *testing.T) {
	t.Helper()
	var _ backend.Backend = (*Backend)(nil)
}

func TestLocalBackend_KindAndName(t *testing.T) {
	b := New("kernel")
	if b.Kind() != "local" || b.Name() != "kernel" {
		t.Errorf("Kind/Name = %q/%q", b.Kind(), b.Name())
	}
}

func TestLocalBackend_RegisterHandler(t *testing.T) {
	b := New("kernel")
	if err := b.RegisterHandler("zeta", ToolDef{Handler: echo, Tags: []string{"Cell"}}); err != nil {
		t.Fatalf("RegisterHandler() error = %v", err)
	}
	if err := b.RegisterHandler("alpha", ToolDef{Description: "first", Handler: echo}); err != nil {
		t.Fatalf("RegisterHandler() error = %v", err)
	}

	tools, err := b.ListTools(context.Background())
	if err != nil {
		t.Fatalf("ListTools() error = %v", err)
	}
	if len(tools) != 2 || tools[0].Name != "alpha" || tools[1].Name != "zeta" {
		t.Fatalf("ListTools() = %+v, want alpha then zeta", tools)
	}
	if tools[0].Namespace != "kernel" {
		t.Errorf("Namespace = %q, want kernel", tools[0].Namespace)
	}
	schema, ok := tools[0].InputSchema.(map[string]any)
	if !ok || schema["type"] != "object" {
		t.Errorf("default InputSchema = %v", tools[0].InputSchema)
	}

	if _, ok := b.Tool("zeta"); !ok {
		t.Error("Tool(zeta) not found")
	}
	if _, ok := b.Tool("omega"); ok {
		t.Error("Tool(omega) found but never registered")
	}
}

func TestLocalBackend_RegisterHandlerRejects(t *testing.T) {
	b := New("kernel")
	if err := b.RegisterHandler("", ToolDef{Handler: echo}); err == nil {
		t.Error("blank name should be rejected")
	}
	if err := b.RegisterHandler("nohandler", ToolDef{}); err == nil {
		t.Error("missing handler should be rejected")
	}
}

func TestLocalBackend_Execute(t *testing.T) {
	b := New("kernel")
	_ = b.RegisterHandler("echo", ToolDef{Handler: echo})
	ctx := context.Background()

	got, err := b.Execute(ctx, "echo", map[string]any{"cellId": "c1"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got.(map[string]any)["cellId"] != "c1" {
		t.Errorf("Execute() = %v", got)
	}

	if _, err := b.Execute(ctx, "missing", nil); !errors.Is(err, backend.ErrToolNotFound) {
		t.Errorf("Execute(missing) error = %v, want ErrToolNotFound", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := b.Execute(cancelled, "echo", nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Execute(cancelled) error = %v, want context.Canceled", err)
	}

	b.SetEnabled(false)
	if _, err := b.Execute(ctx, "echo", nil); !errors.Is(err, backend.ErrBackendDisabled) {
		t.Errorf("Execute(disabled) error = %v, want ErrBackendDisabled", err)
	}
}
