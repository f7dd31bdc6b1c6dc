package code

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"go.starlark.net/resolve"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/jonwraymond/cellexec/namespace"
	"github.com/jonwraymond/cellexec/task"
)

// Thread-local keys.
const (
	localTask = "cellexec.task"
	localCell = "cellexec.cell"
)

// StarlarkEngine is the Engine for Starlark cells.
type StarlarkEngine struct {
	cfg      Config
	opts     *syntax.FileOptions
	builtins starlark.StringDict
}

// NewStarlarkEngine creates a StarlarkEngine with the given configuration.
// Returns ErrConfiguration if the configuration is invalid.
func NewStarlarkEngine(cfg Config) (*StarlarkEngine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	e := &StarlarkEngine{
		cfg: cfg,
		opts: &syntax.FileOptions{
			Set:             true,
			While:           true,
			TopLevelControl: true,
			GlobalReassign:  true,
			Recursion:       !cfg.DisableRecursion,
		},
	}
	e.builtins = e.newBuiltins()
	return e, nil
}

// cellRuntime is the per-evaluation state shared by every task of a cell.
type cellRuntime struct {
	cellID string
	unit   string
	stdout io.Writer
	stderr io.Writer
	logger Logger

	maxSteps      uint64
	stepsExceeded atomic.Bool
}

// Evaluate runs params.Code as the root task of a fresh loop.
func (e *StarlarkEngine) Evaluate(ctx context.Context, params EvalParams) (EvalResult, error) {
	if params.Timeout == 0 {
		params.Timeout = e.cfg.DefaultTimeout
	}
	if params.UnitName == "" {
		params.UnitName = NewUnitName()
	}
	if params.Stdout == nil {
		params.Stdout = io.Discard
	}
	if params.Stderr == nil {
		params.Stderr = io.Discard
	}

	var cancel context.CancelFunc
	if params.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, params.Timeout)
		defer cancel()
	}

	start := time.Now()
	result := EvalResult{UnitName: params.UnitName}

	file, err := e.opts.Parse(params.UnitName, params.Code, 0)
	if err != nil {
		result.DurationMs = time.Since(start).Milliseconds()
		return result, e.fault(err, params.UnitName, params.Stderr)
	}

	rt := &cellRuntime{
		cellID:   params.CellID,
		unit:     params.UnitName,
		stdout:   params.Stdout,
		stderr:   params.Stderr,
		logger:   e.cfg.Logger,
		maxSteps: e.cfg.MaxExecutionSteps,
	}

	entry := params.Namespace
	before := entry.Thaw()

	predeclared := e.predeclared(rt)
	globals := make(starlark.StringDict, len(predeclared)+len(entry))
	for k, v := range predeclared {
		globals[k] = v
	}
	for k, v := range entry {
		globals[k] = v
	}

	loop := task.NewLoop(ctx, params.UnitName)
	_, err = loop.Run(func(root *task.Task) (any, error) {
		return nil, starlark.ExecREPLChunk(file, e.newThread(root, rt), globals)
	})
	for _, lost := range loop.Unobserved() {
		fmt.Fprintf(params.Stderr, "Task exception was never retrieved: %v\n", lost)
	}
	result.Tasks = loop.Len()
	result.DurationMs = time.Since(start).Milliseconds()

	if err != nil {
		return result, e.classify(ctx, err, params, rt)
	}

	exit := namespace.Namespace(globals)
	for k, v := range predeclared {
		if _, had := entry[k]; !had && exit[k] == v {
			delete(exit, k)
		}
	}
	result.Namespace = exit
	result.Added, result.Changed = diff(before, exit)

	e.cfg.Logger.Logf("unit %s: %d tasks in %dms", params.UnitName, result.Tasks, result.DurationMs)
	return result, nil
}

// newThread creates the interpreter thread that runs on t.
func (e *StarlarkEngine) newThread(t *task.Task, rt *cellRuntime) *starlark.Thread {
	th := &starlark.Thread{
		Name: t.Name(),
		Print: func(_ *starlark.Thread, msg string) {
			fmt.Fprintln(rt.stdout, msg)
		},
	}
	if rt.maxSteps > 0 {
		th.SetMaxExecutionSteps(rt.maxSteps)
		th.OnMaxSteps = func(th *starlark.Thread) {
			rt.stepsExceeded.Store(true)
			th.Cancel("too many steps")
		}
	}
	th.SetLocal(localTask, t)
	th.SetLocal(localCell, rt)
	t.SetInterrupt(th.Cancel)
	return th
}

// classify maps an evaluation error onto the package error taxonomy.
func (e *StarlarkEngine) classify(ctx context.Context, err error, params EvalParams, rt *cellRuntime) error {
	switch {
	case rt.stepsExceeded.Load():
		return fmt.Errorf("%w: max execution steps (%d) exceeded", ErrLimitExceeded, rt.maxSteps)
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: timeout after %v: %w", ErrLimitExceeded, params.Timeout, context.DeadlineExceeded)
	case ctx.Err() != nil:
		return ctx.Err()
	}
	return e.fault(err, params.UnitName, params.Stderr)
}

// fault converts an interpreter error into a CodeError positioned inside the
// unit and writes runtime backtraces to stderr.
func (e *StarlarkEngine) fault(err error, unit string, stderr io.Writer) *CodeError {
	ce := &CodeError{Message: err.Error(), Err: err}

	var synErr syntax.Error
	var resErrs resolve.ErrorList
	var evalErr *starlark.EvalError
	switch {
	case errors.As(err, &synErr):
		ce.Message = synErr.Msg
		ce.Line, ce.Column = int(synErr.Pos.Line), int(synErr.Pos.Col)
	case errors.As(err, &resErrs) && len(resErrs) > 0:
		ce.Message = resErrs[0].Msg
		ce.Line, ce.Column = int(resErrs[0].Pos.Line), int(resErrs[0].Pos.Col)
	case errors.As(err, &evalErr):
		ce.Message = evalErr.Msg
		ce.Traceback = evalErr.Backtrace()
		for i := len(evalErr.CallStack) - 1; i >= 0; i-- {
			pos := evalErr.CallStack[i].Pos
			if pos.Filename() == unit {
				ce.Line, ce.Column = int(pos.Line), int(pos.Col)
				break
			}
		}
		fmt.Fprintln(stderr, ce.Traceback)
	case errors.Is(err, task.ErrPanic):
		fmt.Fprintln(stderr, err)
	}
	e.cfg.Logger.Logf("unit %s: %v", unit, ce)
	return ce
}

// diff reports names added since entry and names whose value changed.
func diff(before, after namespace.Namespace) (added, changed []string) {
	for _, k := range after.Keys() {
		old, had := before[k]
		if !had {
			added = append(added, k)
			continue
		}
		if eq, err := starlark.Equal(old, after[k]); err != nil || !eq {
			changed = append(changed, k)
		}
	}
	return added, changed
}
