// Package backend connects tool sources to the service transports.
//
// The cell kernel publishes run_cell, reset and cells as tools of a local
// backend (see [github.com/jonwraymond/cellexec/backend/local]). A [Registry]
// holds backends by name and an [Aggregator] addresses their tools by ID:
//
//	registry := backend.NewRegistry()
//	_ = registry.Register(executor.Backend())
//
//	agg := backend.NewAggregator(registry)
//	tools, _ := agg.ListAllTools(ctx)
//	result, _ := agg.Execute(ctx, "kernel:cells", nil)
//
// The HTTP tool listing and the MCP server are both built from the
// aggregator's tool list.
package backend
