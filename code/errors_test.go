package code

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.starlark.net/starlark"
)

func TestSentinels_SurviveWrapping(t *testing.T) {
	for _, sentinel := range []error{ErrCodeExecution, ErrConfiguration, ErrLimitExceeded, ErrUnsupportedValue} {
		t.Run(sentinel.Error(), func(t *testing.T) {
			if err := fmt.Errorf("cell c1: %w", sentinel); !errors.Is(err, sentinel) {
				t.Errorf("errors.Is(%v, %v) = false", err, sentinel)
			}
		})
	}
}

func TestCodeError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  CodeError
		want string
	}{
		{"positioned", CodeError{Message: "got '=', want primary expression", Line: 10, Column: 5}, "got '=', want primary expression (line 10, col 5)"},
		{"line only", CodeError{Message: "undefined: missing", Line: 3}, "undefined: missing (line 3, col 0)"},
		{"unpositioned", CodeError{Message: "panic: boom"}, "panic: boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCodeError_MatchesOnlyExecutionSentinel(t *testing.T) {
	err := &CodeError{Message: "division by zero", Line: 1}
	if !errors.Is(err, ErrCodeExecution) {
		t.Error("CodeError should match ErrCodeExecution")
	}
	for _, other := range []error{ErrConfiguration, ErrLimitExceeded, ErrUnsupportedValue} {
		if errors.Is(err, other) {
			t.Errorf("CodeError should not match %v", other)
		}
	}
}

func TestCodeError_WrapsInterpreterError(t *testing.T) {
	engine, err := NewStarlarkEngine(Config{})
	if err != nil {
		t.Fatalf("NewStarlarkEngine() error = %v", err)
	}
	_, err = engine.Evaluate(context.Background(), EvalParams{
		CellID: "c1",
		Code:   "x = 1\ny = x // 0",
	})

	var ce *CodeError
	if !errors.As(err, &ce) {
		t.Fatalf("error = %v, want *CodeError", err)
	}
	var evalErr *starlark.EvalError
	if !errors.As(err, &evalErr) {
		t.Errorf("Unwrap chain lacks *starlark.EvalError: %v", ce.Err)
	}
	if ce.Line != 2 {
		t.Errorf("Line = %d, want 2", ce.Line)
	}
	if !containsStr(ce.Traceback, "Traceback") {
		t.Errorf("Traceback = %q, want interpreter backtrace", ce.Traceback)
	}
}
