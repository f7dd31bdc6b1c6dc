// Package server exposes the cell kernel over HTTP and MCP.
//
// Routes, relative to Options.BasePath:
//
//	POST /run          execute a cell (JSON exec.Request, JSON exec.Response)
//	GET  /             liveness check, empty 200
//	GET  /metrics      prometheus exposition (when a Gatherer is set)
//	GET  /tools        kernel tool listing and search (?q=&limit=)
//	GET  /tools/{id}   tool documentation (?detail=full)
//	     /mcp          MCP streamable HTTP endpoint (when enabled)
//
// A malformed /run body yields 422 with a {"detail": ...} object. Once a
// request is valid the status is 200 and cell faults are reported in the
// response's error field.
package server
