package exec

import (
	"fmt"
	"strings"

	"go.starlark.net/starlark"
	"golang.org/x/text/unicode/norm"

	"github.com/jonwraymond/cellexec/code"
	"github.com/jonwraymond/cellexec/namespace"
)

// Project returns the values bound to names in ns, keyed by the requested
// name with surrounding space removed.
//
// Blank names are skipped. A name with no exact binding is retried in NFKC
// form. A name that is still unbound fails the whole projection with
// ErrOutputNotBound; a value that cannot leave the interpreter fails it with
// code.ErrUnsupportedValue. On failure the returned map is empty.
func Project(ns namespace.Namespace, names []string) (map[string]any, error) {
	out := make(map[string]any, len(names))
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		v, ok := lookup(ns, name)
		if !ok {
			return map[string]any{}, fmt.Errorf("%w: %q", ErrOutputNotBound, name)
		}
		val, err := code.FromStarlark(v)
		if err != nil {
			return map[string]any{}, fmt.Errorf("output %q: %w", name, err)
		}
		out[name] = val
	}
	return out, nil
}

func lookup(ns namespace.Namespace, name string) (starlark.Value, bool) {
	if v, ok := ns[name]; ok {
		return v, true
	}
	if alt := norm.NFKC.String(name); alt != name {
		v, ok := ns[alt]
		return v, ok
	}
	return nil, false
}
