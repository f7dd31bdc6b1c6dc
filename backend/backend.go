package backend

import (
	"context"

	"github.com/jonwraymond/toolfoundation/model"
)

// Backend is a named source of tools. The cell kernel registers itself as
// a local backend; transports reach it through a Registry and Aggregator.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: Execute must honor cancellation/deadlines.
// - Errors: use ErrBackendDisabled/ErrToolNotFound where applicable.
// - ListTools: tools carry the backend name as their Namespace.
type Backend interface {
	// Kind returns the backend type (e.g., "local").
	Kind() string

	// Name returns the unique instance name for this backend.
	Name() string

	// Enabled returns whether this backend is currently enabled.
	Enabled() bool

	// ListTools returns all tools available from this backend.
	ListTools(ctx context.Context) ([]model.Tool, error)

	// Execute invokes a tool on this backend.
	Execute(ctx context.Context, tool string, args map[string]any) (any, error)

	// Start prepares the backend for use.
	Start(ctx context.Context) error

	// Stop releases the backend's resources.
	Stop() error
}
