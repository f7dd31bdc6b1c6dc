package code

import (
	"fmt"
	"sort"
	"strings"
	"time"

	starjson "go.starlark.net/lib/json"
	starmath "go.starlark.net/lib/math"
	startime "go.starlark.net/lib/time"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	"github.com/jonwraymond/cellexec/task"
)

// newBuiltins returns the bindings shared by every evaluation.
func (e *StarlarkEngine) newBuiltins() starlark.StringDict {
	return starlark.StringDict{
		"spawn":  starlark.NewBuiltin("spawn", e.spawn),
		"wait":   starlark.NewBuiltin("wait", wait),
		"gather": starlark.NewBuiltin("gather", gather),
		"sleep":  starlark.NewBuiltin("sleep", sleep),
		"eprint": starlark.NewBuiltin("eprint", eprint),
		"json":   starjson.Module,
		"math":   starmath.Module,
		"time":   startime.Module,
		"struct": starlark.NewBuiltin("struct", starlarkstruct.Make),
	}
}

// predeclared returns the builtins plus the per-cell ctx handle.
func (e *StarlarkEngine) predeclared(rt *cellRuntime) starlark.StringDict {
	out := make(starlark.StringDict, len(e.builtins)+1)
	for k, v := range e.builtins {
		out[k] = v
	}
	out["ctx"] = starlarkstruct.FromStringDict(starlark.String("ctx"), starlark.StringDict{
		"cell_id": starlark.String(rt.cellID),
		"unit":    starlark.String(rt.unit),
		"info":    starlark.NewBuiltin("info", info),
	})
	return out
}

func currentTask(thread *starlark.Thread) (*task.Task, error) {
	t, ok := thread.Local(localTask).(*task.Task)
	if !ok {
		return nil, fmt.Errorf("not running inside a cell task")
	}
	return t, nil
}

func currentCell(thread *starlark.Thread) (*cellRuntime, error) {
	rt, ok := thread.Local(localCell).(*cellRuntime)
	if !ok {
		return nil, fmt.Errorf("not running inside a cell")
	}
	return rt, nil
}

// spawn(fn, *args, **kwargs) schedules fn as a new task and returns it.
func (e *StarlarkEngine) spawn(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(args) < 1 {
		return nil, fmt.Errorf("%s: missing callable argument", b.Name())
	}
	fn, ok := args[0].(starlark.Callable)
	if !ok {
		return nil, fmt.Errorf("%s: got %s, want callable", b.Name(), args[0].Type())
	}
	parent, err := currentTask(thread)
	if err != nil {
		return nil, err
	}
	rt, err := currentCell(thread)
	if err != nil {
		return nil, err
	}

	callArgs := append(starlark.Tuple(nil), args[1:]...)
	child := parent.Loop().Spawn(func(t *task.Task) (any, error) {
		return starlark.Call(e.newThread(t, rt), fn, callArgs, kwargs)
	})
	return &taskValue{t: child}, nil
}

// wait(task) suspends until task finishes and returns its result.
func wait(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var tv *taskValue
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &tv); err != nil {
		return nil, err
	}
	self, err := currentTask(thread)
	if err != nil {
		return nil, err
	}
	return awaitValue(self, tv)
}

// gather(*tasks) waits for every task in order and returns their results.
func gather(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(kwargs) > 0 {
		return nil, fmt.Errorf("%s: unexpected keyword arguments", b.Name())
	}
	self, err := currentTask(thread)
	if err != nil {
		return nil, err
	}
	results := make([]starlark.Value, len(args))
	for i, arg := range args {
		tv, ok := arg.(*taskValue)
		if !ok {
			return nil, fmt.Errorf("%s: argument %d is %s, want task", b.Name(), i+1, arg.Type())
		}
		v, err := awaitValue(self, tv)
		if err != nil {
			return nil, err
		}
		results[i] = v
	}
	return starlark.NewList(results), nil
}

func awaitValue(self *task.Task, tv *taskValue) (starlark.Value, error) {
	res, err := self.Await(tv.t)
	if err != nil {
		return nil, err
	}
	if v, ok := res.(starlark.Value); ok && v != nil {
		return v, nil
	}
	return starlark.None, nil
}

// sleep(seconds) suspends the calling task. sleep(0) lets other tasks run.
func sleep(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var secs starlark.Value
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &secs); err != nil {
		return nil, err
	}
	f, ok := starlark.AsFloat(secs)
	if !ok {
		return nil, fmt.Errorf("%s: got %s, want number", b.Name(), secs.Type())
	}
	if f < 0 {
		return nil, fmt.Errorf("%s: negative duration", b.Name())
	}
	self, err := currentTask(thread)
	if err != nil {
		return nil, err
	}
	if err := self.Sleep(time.Duration(f * float64(time.Second))); err != nil {
		return nil, err
	}
	return starlark.None, nil
}

// eprint(*args, sep=" ") writes to the cell's standard error.
func eprint(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	sep := " "
	if err := starlark.UnpackArgs(b.Name(), nil, kwargs, "sep?", &sep); err != nil {
		return nil, err
	}
	rt, err := currentCell(thread)
	if err != nil {
		return nil, err
	}
	parts := make([]string, len(args))
	for i, a := range args {
		if s, ok := starlark.AsString(a); ok {
			parts[i] = s
		} else {
			parts[i] = a.String()
		}
	}
	fmt.Fprintln(rt.stderr, strings.Join(parts, sep))
	return starlark.None, nil
}

// info(msg, **data) logs through the engine logger.
func info(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var msg string
	if err := starlark.UnpackPositionalArgs(b.Name(), args, nil, 1, &msg); err != nil {
		return nil, err
	}
	rt, err := currentCell(thread)
	if err != nil {
		return nil, err
	}

	fields := make([]string, 0, len(kwargs))
	for _, kv := range kwargs {
		fields = append(fields, fmt.Sprintf("%s=%s", kv[0].(starlark.String).GoString(), kv[1].String()))
	}
	sort.Strings(fields)
	if len(fields) == 0 {
		rt.logger.Logf("cell %s: %s", rt.cellID, msg)
	} else {
		rt.logger.Logf("cell %s: %s %s", rt.cellID, msg, strings.Join(fields, " "))
	}
	return starlark.None, nil
}
