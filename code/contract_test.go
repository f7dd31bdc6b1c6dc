package code

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"go.starlark.net/starlark"

	"github.com/jonwraymond/cellexec/namespace"
)

func TestEngineContract_FailureReturnsNoNamespace(t *testing.T) {
	e := newTestEngine(t, Config{})
	res, err := e.Evaluate(context.Background(), EvalParams{
		Code:      "x = 1\ny = 1 // 0",
		Namespace: namespace.New(),
	})
	if !errors.Is(err, ErrCodeExecution) {
		t.Fatalf("Evaluate error = %v, want ErrCodeExecution", err)
	}
	if res.Namespace != nil {
		t.Fatalf("partial namespace returned: %v", res.Namespace)
	}
}

func TestEngineContract_DeadlineWrapsLimit(t *testing.T) {
	e := newTestEngine(t, Config{})
	_, err := e.Evaluate(context.Background(), EvalParams{
		Code:      "sleep(5)",
		Namespace: namespace.New(),
		Timeout:   10 * time.Millisecond,
	})
	if !errors.Is(err, ErrLimitExceeded) {
		t.Fatalf("Evaluate error = %v, want ErrLimitExceeded", err)
	}
}

func TestEngineContract_NilWritersDiscard(t *testing.T) {
	e := newTestEngine(t, Config{})
	_, err := e.Evaluate(context.Background(), EvalParams{
		Code:      `print("dropped")`,
		Namespace: namespace.New(),
	})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
}

func TestEngineContract_ConcurrentEvaluations(t *testing.T) {
	e := newTestEngine(t, Config{})
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func(i int) {
			var out bytes.Buffer
			res, err := e.Evaluate(context.Background(), EvalParams{
				Code:      "y = x * 2\nprint(y)",
				Namespace: namespace.Namespace{"x": starlark.MakeInt(i)},
				Stdout:    &out,
			})
			if err == nil {
				if v, _ := res.Namespace["y"].(starlark.Int).Int64(); v != int64(i*2) {
					err = errors.New("evaluations interfered")
				}
			}
			errs <- err
		}(i)
	}
	for i := 0; i < 8; i++ {
		if err := <-errs; err != nil {
			t.Errorf("concurrent evaluation: %v", err)
		}
	}
}
