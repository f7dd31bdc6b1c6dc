// Package capture redirects the process-wide standard streams into memory for
// the duration of one cell evaluation.
//
// [Start] swaps os.Stdout and os.Stderr for pipe writers whose contents are
// drained into buffers. [Session.Close] restores the original files and
// returns what was written. Because the standard streams are process globals,
// at most one session may be open at a time; a second [Start] fails with
// [ErrBusy] instead of interleaving two cells' output.
//
// [Buffer] offers the same surface without touching the globals, for callers
// that only need the writers handed to the evaluator.
package capture
