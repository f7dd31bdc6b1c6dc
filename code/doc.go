// Package code evaluates cell bodies against a namespace.
//
// The package defines the pluggable [Engine] interface and [StarlarkEngine],
// which runs cells written in Starlark, a Python dialect with a Go
// interpreter.
//
// # Execution Unit
//
// Each evaluation gets a uniquely named unit ("__exec_<uuid>"). The cell body
// runs as the root task of a cooperative [task.Loop], so the body may suspend
// at explicit points while other tasks it spawned make progress:
//
//	t = spawn(fetch, "a")
//	sleep(0.1)
//	v = wait(t)
//	a, b = gather(spawn(f), spawn(g))
//
// Top-level bindings are module globals seeded from the entering namespace,
// so `x = x + 1` rebinds an inherited name. Bindings present when the body
// finishes form the exit namespace.
//
// # Builtins
//
// Besides the Starlark universe, cells see spawn, wait, gather, sleep,
// eprint, the modules json, math and time, the struct constructor, and ctx
// (fields cell_id and unit, method info for structured logging). Builtins a
// cell did not rebind are removed from the exit namespace.
//
// # Faults
//
// Syntax, resolution and runtime faults are returned as [*CodeError] carrying
// the line and column inside the cell; they match [ErrCodeExecution]. A
// deadline or step budget overrun returns [ErrLimitExceeded]. On any fault no
// namespace is returned.
//
// # Change Detection
//
// [EvalResult] reports Added (names absent on entry) and Changed (names whose
// value differs from a copy taken on entry, which also catches in-place
// mutation of inherited lists and dicts).
package code
