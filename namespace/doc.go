// Package namespace holds the binding tables that cells read and produce.
//
// A [Namespace] maps binding names to Starlark values. Three pieces build the
// namespace a cell is evaluated against:
//
//   - [Store]: the process-lifetime table of exit namespaces keyed by cell ID.
//   - [Resolver]: merges the stored namespaces of a cell's predecessors, in
//     caller order, later predecessors overriding earlier ones.
//   - [Merge]: overlays injected values on the resolved namespace.
//
// # Ownership
//
// Stored namespaces are frozen. [Store.Get] hands out a thawed deep copy of the
// container values (lists, dicts, sets, tuples), so a cell that mutates an
// inherited list never alters the predecessor's stored entry.
//
// # Lineage roots
//
// Resolving an empty predecessor list starts a new lineage. Resolution never
// writes; [Resolver.Commit] clears the store for a root cell when it stores the
// cell's exit namespace, so identifiers reused by an abandoned lineage cannot
// leak bindings into the new one, and a root cell that fails leaves the store
// as it was.
package namespace
