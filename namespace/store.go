package namespace

import (
	"fmt"
	"sort"
	"sync"
)

// Store is the table of exit namespaces keyed by cell ID.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: Get returns ErrNotFound (wrapped with the ID) when no entry exists.
// - Ownership: Put takes ownership of ns and freezes it; Get returns a copy the
// caller owns exclusively.
type Store interface {
	// Get returns the namespace stored under id.
	Get(id string) (Namespace, error)

	// Put stores ns under id, replacing any previous entry.
	Put(id string, ns Namespace)

	// Clear evicts every entry.
	Clear()

	// Len returns the number of stored entries.
	Len() int

	// IDs returns the stored cell IDs, sorted.
	IDs() []string
}

// InMemoryStore is a process-lifetime Store backed by a map.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Namespace
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entries: make(map[string]Namespace)}
}

// Get returns a thawed copy of the namespace stored under id.
func (s *InMemoryStore) Get(id string) (Namespace, error) {
	s.mu.RLock()
	ns, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return ns.Thaw(), nil
}

// Put stores a frozen copy of ns under id. A nil ns is stored as empty.
func (s *InMemoryStore) Put(id string, ns Namespace) {
	entry := ns.Clone()
	entry.Freeze()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[id] = entry
}

// Clear evicts every entry.
func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]Namespace)
}

// Len returns the number of stored entries.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// IDs returns the stored cell IDs, sorted.
func (s *InMemoryStore) IDs() []string {
	s.mu.RLock()
	out := make([]string, 0, len(s.entries))
	for id := range s.entries {
		out = append(out, id)
	}
	s.mu.RUnlock()
	sort.Strings(out)
	return out
}
