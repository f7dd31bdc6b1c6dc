package exec

import "errors"

// Sentinel errors returned by Exec.
var (
	// ErrInvalidOptions indicates an Options value that cannot be used.
	ErrInvalidOptions = errors.New("exec: invalid options")

	// ErrInvalidRequest indicates a request that failed validation before
	// any evaluation took place.
	ErrInvalidRequest = errors.New("exec: invalid request")

	// ErrOutputNotBound indicates a requested output name with no binding
	// in the cell's exit namespace.
	ErrOutputNotBound = errors.New("exec: output not bound")

	// ErrUnknownTool is returned by RunTool for an unregistered tool ID.
	ErrUnknownTool = errors.New("exec: unknown tool")
)
