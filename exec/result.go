package exec

import (
	"time"

	"github.com/jonwraymond/tooldiscovery/index"
)

// Request describes one cell execution.
type Request struct {
	// CellID names the cell. Its exit namespace is stored under this ID.
	// Required.
	CellID string `json:"cellId"`

	// PredecessorIDs lists the cells whose namespaces this cell inherits,
	// later entries winning on collision. Empty starts a new lineage and
	// discards every stored namespace.
	PredecessorIDs []string `json:"predecessorIds,omitempty"`

	// Code is the cell body.
	// Required.
	Code string `json:"code"`

	// CapturedIn binds values into the entering namespace. They win over
	// inherited bindings of the same name.
	CapturedIn map[string]any `json:"capturedIn,omitempty"`

	// CapturedOut names the exit bindings to return in the response.
	CapturedOut []string `json:"capturedOut,omitempty"`
}

// Response is the outcome of one cell execution.
//
// Error is empty exactly when the cell succeeded. On failure CapturedOut
// is empty and nothing was stored for the cell.
type Response struct {
	// Output is what the cell wrote to standard output.
	Output string `json:"output"`

	// Stderr is what the cell wrote to standard error.
	Stderr string `json:"stderr"`

	// Error describes the fault, if any.
	Error string `json:"error"`

	// CapturedOut maps each requested output name to its value.
	CapturedOut map[string]any `json:"capturedOut"`

	// Added and Changed report how the cell altered the namespace.
	Added   []string `json:"added,omitempty"`
	Changed []string `json:"changed,omitempty"`

	// DurationMs is the wall time of the whole request in milliseconds.
	DurationMs int64 `json:"durationMs"`
}

// OK returns true if the cell succeeded.
func (r Response) OK() bool {
	return r.Error == ""
}

// Result represents the outcome of a kernel tool call.
type Result struct {
	// Value is the return value from the tool.
	Value any

	// ToolID is the canonical ID of the executed tool.
	ToolID string

	// Duration is how long the tool took to execute.
	Duration time.Duration

	// Error is non-nil if the tool call failed.
	Error error
}

// OK returns true if the result has no error.
func (r Result) OK() bool {
	return r.Error == nil
}

// ToolSummary is an alias to index.Summary for search results.
type ToolSummary = index.Summary
