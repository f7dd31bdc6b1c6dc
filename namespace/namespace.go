package namespace

import (
	"sort"

	"go.starlark.net/starlark"
)

// Namespace maps binding names to values. Keys are unique; iteration order
// carries no meaning.
type Namespace map[string]starlark.Value

// New returns an empty namespace.
func New() Namespace {
	return make(Namespace)
}

// Clone returns a shallow copy of ns. Values are shared with ns.
func (ns Namespace) Clone() Namespace {
	out := make(Namespace, len(ns))
	for k, v := range ns {
		out[k] = v
	}
	return out
}

// Keys returns the binding names sorted for deterministic output.
func (ns Namespace) Keys() []string {
	keys := make([]string, 0, len(ns))
	for k := range ns {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Freeze makes every value in ns immutable.
func (ns Namespace) Freeze() {
	for _, v := range ns {
		if v != nil {
			v.Freeze()
		}
	}
}

// Thaw returns a deep copy of ns in which every list, dict, set and tuple is
// rebuilt, so the copy is mutable and shares no container with ns. Other
// values (strings, numbers, functions, structs) are immutable or opaque and
// are shared.
func (ns Namespace) Thaw() Namespace {
	seen := make(map[starlark.Value]starlark.Value)
	out := make(Namespace, len(ns))
	for k, v := range ns {
		out[k] = thaw(v, seen)
	}
	return out
}

// thaw copies container values recursively. seen maps already copied
// pointer-typed containers to their copies so cyclic values terminate.
func thaw(v starlark.Value, seen map[starlark.Value]starlark.Value) starlark.Value {
	switch x := v.(type) {
	case *starlark.List:
		if c, ok := seen[x]; ok {
			return c
		}
		cp := starlark.NewList(make([]starlark.Value, 0, x.Len()))
		seen[x] = cp
		for i := 0; i < x.Len(); i++ {
			_ = cp.Append(thaw(x.Index(i), seen))
		}
		return cp
	case *starlark.Dict:
		if c, ok := seen[x]; ok {
			return c
		}
		cp := starlark.NewDict(x.Len())
		seen[x] = cp
		for _, item := range x.Items() {
			_ = cp.SetKey(item[0], thaw(item[1], seen))
		}
		return cp
	case *starlark.Set:
		if c, ok := seen[x]; ok {
			return c
		}
		cp := starlark.NewSet(x.Len())
		seen[x] = cp
		iter := x.Iterate()
		defer iter.Done()
		var elem starlark.Value
		for iter.Next(&elem) {
			_ = cp.Insert(elem)
		}
		return cp
	case starlark.Tuple:
		cp := make(starlark.Tuple, len(x))
		for i, elem := range x {
			cp[i] = thaw(elem, seen)
		}
		return cp
	default:
		return v
	}
}
