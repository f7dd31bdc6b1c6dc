package namespace

import (
	"errors"
	"testing"

	"go.starlark.net/starlark"
)

func TestResolver_EmptyListStartsNewLineage(t *testing.T) {
	s := NewInMemoryStore()
	s.Put("old", Namespace{"x": starlark.MakeInt(1)})
	r := NewResolver(s)

	lin, err := r.Resolve(nil)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !lin.Root {
		t.Error("Root = false, want true for an empty predecessor list")
	}
	if len(lin.Entry) != 0 {
		t.Errorf("root namespace = %v, want empty", lin.Entry)
	}
	if s.Len() != 1 {
		t.Fatalf("Resolve wrote to the store, Len() = %d", s.Len())
	}

	r.Commit("new", lin, Namespace{"y": starlark.MakeInt(2)})
	if got := s.IDs(); len(got) != 1 || got[0] != "new" {
		t.Errorf("IDs() after root commit = %v, want [new]", got)
	}
}

func TestResolver_CommitKeepsLineage(t *testing.T) {
	s := NewInMemoryStore()
	s.Put("a", Namespace{"x": starlark.MakeInt(1)})
	r := NewResolver(s)

	lin, err := r.Resolve([]string{"a"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if lin.Root {
		t.Error("Root = true for a non-empty predecessor list")
	}
	r.Commit("b", lin, lin.Entry)
	if got := s.IDs(); len(got) != 2 {
		t.Errorf("IDs() = %v, want [a b]", got)
	}
}

func TestResolver_LaterPredecessorWins(t *testing.T) {
	s := NewInMemoryStore()
	s.Put("a", Namespace{"x": starlark.MakeInt(1), "onlyA": starlark.True})
	s.Put("b", Namespace{"x": starlark.MakeInt(2), "onlyB": starlark.True})

	tests := []struct {
		name  string
		preds []string
		wantX int
	}{
		{name: "a then b", preds: []string{"a", "b"}, wantX: 2},
		{name: "b then a", preds: []string{"b", "a"}, wantX: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lin, err := NewResolver(s).Resolve(tt.preds)
			if err != nil {
				t.Fatalf("Resolve failed: %v", err)
			}
			ns := lin.Entry
			if !valueEqual(ns["x"], starlark.MakeInt(tt.wantX)) {
				t.Errorf("x = %v, want %d", ns["x"], tt.wantX)
			}
			if ns["onlyA"] == nil || ns["onlyB"] == nil {
				t.Error("union of predecessor bindings missing a key")
			}
		})
	}
	if s.Len() != 2 {
		t.Error("non-empty predecessor list must not clear the store")
	}
}

func TestResolver_MissingPredecessor(t *testing.T) {
	s := NewInMemoryStore()
	s.Put("a", New())

	_, err := NewResolver(s).Resolve([]string{"a", "ghost"})
	if !errors.Is(err, ErrPredecessorNotReady) {
		t.Fatalf("error = %v, want ErrPredecessorNotReady", err)
	}
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want it to wrap ErrNotFound", err)
	}
}

func TestResolver_BlankPredecessor(t *testing.T) {
	_, err := NewResolver(NewInMemoryStore()).Resolve([]string{"  "})
	if !errors.Is(err, ErrPredecessorNotReady) {
		t.Fatalf("error = %v, want ErrPredecessorNotReady", err)
	}
}

func TestResolver_ResultIsMutable(t *testing.T) {
	s := NewInMemoryStore()
	s.Put("a", Namespace{"l": starlark.NewList(nil)})

	lin, err := NewResolver(s).Resolve([]string{"a"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if err := lin.Entry["l"].(*starlark.List).Append(starlark.None); err != nil {
		t.Errorf("resolved list is frozen: %v", err)
	}
}
