package code

import "context"

// Engine evaluates a cell body against an entering namespace.
//
// The Engine should:
//   - Treat the code as one uniquely named unit that may suspend cooperatively
//   - Write the cell's standard output and error to the provided writers
//   - Return the exit namespace only when evaluation succeeded
//   - Wrap evaluation faults in CodeError with line/column info when available
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use, but a single
// call owns params.Namespace until it returns.
// - Context: must honor cancellation/deadlines; deadlines are reported as ErrLimitExceeded.
// - Errors: evaluation failures should return CodeError where possible; callers use errors.Is.
// - Ownership: the returned namespace is caller-owned; params.Namespace may be mutated.
type Engine interface {
	// Evaluate runs the code in params and returns the exit namespace with
	// the names it introduced or changed.
	Evaluate(ctx context.Context, params EvalParams) (EvalResult, error)
}
