package code

import (
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/jonwraymond/cellexec/namespace"
)

// UnitPrefix starts every execution unit name.
const UnitPrefix = "__exec_"

// NewUnitName returns a fresh, process-unique execution unit name.
func NewUnitName() string {
	return UnitPrefix + uuid.NewString()
}

// EvalParams specifies one cell evaluation.
type EvalParams struct {
	// CellID identifies the cell; exposed to the cell as ctx.cell_id.
	CellID string `json:"cellId"`

	// UnitName names the execution unit. If empty, NewUnitName is used.
	UnitName string `json:"unitName,omitempty"`

	// Code is the cell body.
	Code string `json:"code"`

	// Namespace is the entering namespace. The engine takes ownership.
	Namespace namespace.Namespace `json:"-"`

	// Stdout and Stderr receive the cell's output. Nil discards it.
	Stdout io.Writer `json:"-"`
	Stderr io.Writer `json:"-"`

	// Timeout bounds the evaluation. If zero, the engine's default applies.
	Timeout time.Duration `json:"timeout"`
}

// EvalResult is the outcome of a successful evaluation.
type EvalResult struct {
	// Namespace is the exit namespace. Nil when evaluation failed.
	Namespace namespace.Namespace `json:"-"`

	// UnitName is the name the cell ran under.
	UnitName string `json:"unitName"`

	// Added lists names bound on exit but absent on entry, sorted.
	Added []string `json:"added,omitempty"`

	// Changed lists names present on entry whose value differs on exit, sorted.
	Changed []string `json:"changed,omitempty"`

	// Tasks is the number of tasks the evaluation ran, the body included.
	Tasks int `json:"tasks"`

	// DurationMs is the evaluation time in milliseconds.
	DurationMs int64 `json:"durationMs"`
}
