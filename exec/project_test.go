package exec

import (
	"errors"
	"reflect"
	"testing"

	"go.starlark.net/starlark"

	"github.com/jonwraymond/cellexec/namespace"
)

func TestProject(t *testing.T) {
	ns := namespace.Namespace{
		"x":    starlark.MakeInt(1),
		"name": starlark.String("cell"),
		"fi":   starlark.True,
		"xs":   starlark.NewList([]starlark.Value{starlark.MakeInt(1), starlark.String("a")}),
	}

	tests := []struct {
		name    string
		names   []string
		want    map[string]any
		wantErr error
	}{
		{name: "none", names: nil, want: map[string]any{}},
		{name: "scalars", names: []string{"x", "name"}, want: map[string]any{"x": int64(1), "name": "cell"}},
		{name: "list", names: []string{"xs"}, want: map[string]any{"xs": []any{int64(1), "a"}}},
		{name: "blank skipped", names: []string{"", "  ", "x"}, want: map[string]any{"x": int64(1)}},
		{name: "trimmed", names: []string{" x "}, want: map[string]any{"x": int64(1)}},
		{name: "compatibility form", names: []string{"ﬁ"}, want: map[string]any{"ﬁ": true}},
		{name: "missing", names: []string{"x", "ghost"}, want: map[string]any{}, wantErr: ErrOutputNotBound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Project(ns, tt.names)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Project() error = %v, want %v", err, tt.wantErr)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Project() = %#v, want %#v", got, tt.want)
			}
		})
	}
}
