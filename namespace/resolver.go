package namespace

import (
	"fmt"
	"strings"
)

// Resolver reconstructs the namespace a cell enters from its predecessors.
type Resolver struct {
	store Store
}

// NewResolver creates a Resolver reading from store.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// Lineage is the result of resolving a predecessor list.
type Lineage struct {
	// Entry is the merged namespace of the predecessors.
	Entry Namespace

	// Root reports a new lineage: the predecessor list was empty.
	Root bool
}

// Resolve merges the stored namespaces of predecessors in order; on key
// collision the later predecessor wins. Resolve only reads the store.
//
// An empty list yields an empty Root lineage. A predecessor with no stored
// entry (or a blank ID) fails with ErrPredecessorNotReady; nothing is merged
// in that case.
func (r *Resolver) Resolve(predecessors []string) (Lineage, error) {
	if len(predecessors) == 0 {
		return Lineage{Entry: New(), Root: true}, nil
	}

	acc := New()
	for _, id := range predecessors {
		if strings.TrimSpace(id) == "" {
			return Lineage{}, fmt.Errorf("%w: blank predecessor id", ErrPredecessorNotReady)
		}
		ns, err := r.store.Get(id)
		if err != nil {
			return Lineage{}, fmt.Errorf("%w: %q: %w", ErrPredecessorNotReady, id, err)
		}
		for k, v := range ns {
			acc[k] = v
		}
	}
	return Lineage{Entry: acc}, nil
}

// Commit stores exit as the namespace of cell id. For a Root lineage the
// store is cleared first. Call it only once the cell has fully succeeded.
func (r *Resolver) Commit(id string, lin Lineage, exit Namespace) {
	if lin.Root {
		r.store.Clear()
	}
	r.store.Put(id, exit)
}

// Merge overlays injected on resolved and returns the result as a new
// namespace. Keys present in injected always win. Neither input is modified.
func Merge(resolved, injected Namespace) Namespace {
	out := make(Namespace, len(resolved)+len(injected))
	for k, v := range resolved {
		out[k] = v
	}
	for k, v := range injected {
		out[k] = v
	}
	return out
}
