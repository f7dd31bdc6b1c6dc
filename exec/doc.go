// Package exec runs notebook cells.
//
// An [Exec] ties the pieces of the cell kernel together. For every request
// it:
//
//   - resolves the entering namespace from the predecessor cells
//     ([github.com/jonwraymond/cellexec/namespace]),
//   - overlays the injected values,
//   - evaluates the cell with its standard streams captured
//     ([github.com/jonwraymond/cellexec/code], [github.com/jonwraymond/cellexec/capture]),
//   - stores the exit namespace under the cell ID,
//   - projects the requested output bindings into plain Go values.
//
// # Basic Usage
//
//	executor, err := exec.New(exec.Options{})
//	if err != nil {
//	    return err
//	}
//
//	resp, _ := executor.RunCell(ctx, exec.Request{
//	    CellID:      "c1",
//	    Code:        "x = 1",
//	    CapturedOut: []string{"x"},
//	})
//	// resp.CapturedOut == map[string]any{"x": int64(1)}
//
//	resp, _ = executor.RunCell(ctx, exec.Request{
//	    CellID:         "c2",
//	    PredecessorIDs: []string{"c1"},
//	    Code:           "y = x + 1",
//	    CapturedOut:    []string{"y"},
//	})
//
// A request with no predecessors starts a new lineage. Once it succeeds,
// every previously stored namespace is discarded.
//
// # Failures
//
// Faults never escape as panics. They are reported in [Response.Error] and
// returned as the error. A failed cell leaves the store untouched and its
// CapturedOut is empty. Output printed before the fault is kept unless
// [Options.DiscardOutputOnFault] is set.
//
// # Kernel Tools
//
// The kernel is also published as the tools run_cell, reset and cells on a
// local backend ([Exec.Backend]), indexed for search ([Exec.SearchTools])
// and documented ([Exec.GetToolDoc]). The HTTP and MCP transports in
// [github.com/jonwraymond/cellexec/server] are built on these.
package exec
