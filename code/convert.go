package code

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"sort"
	"strconv"

	"github.com/bytedance/sonic"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	"github.com/jonwraymond/cellexec/namespace"
)

// maxConvertDepth bounds container nesting in both directions.
const maxConvertDepth = 64

// jsonAPI decodes numbers as json.Number so integers stay integers.
var jsonAPI = sonic.Config{UseNumber: true}.Froze()

// ToNamespace converts injected Go values into a namespace.
func ToNamespace(values map[string]any) (namespace.Namespace, error) {
	ns := make(namespace.Namespace, len(values))
	for k, v := range values {
		sv, err := ToStarlark(v)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", k, err)
		}
		ns[k] = sv
	}
	return ns, nil
}

// ToStarlark converts a JSON-shaped Go value into a Starlark value.
// Other Go values are converted through their JSON encoding.
func ToStarlark(v any) (starlark.Value, error) {
	return toStarlark(v, 0)
}

func toStarlark(v any, depth int) (starlark.Value, error) {
	if depth > maxConvertDepth {
		return nil, fmt.Errorf("%w: nesting deeper than %d", ErrUnsupportedValue, maxConvertDepth)
	}
	if v == nil {
		return starlark.None, nil
	}
	switch val := v.(type) {
	case starlark.Value:
		return val, nil
	case bool:
		return starlark.Bool(val), nil
	case string:
		return starlark.String(val), nil
	case []byte:
		return starlark.Bytes(val), nil
	case int:
		return starlark.MakeInt(val), nil
	case int8:
		return starlark.MakeInt64(int64(val)), nil
	case int16:
		return starlark.MakeInt64(int64(val)), nil
	case int32:
		return starlark.MakeInt64(int64(val)), nil
	case int64:
		return starlark.MakeInt64(val), nil
	case uint:
		return starlark.MakeUint64(uint64(val)), nil
	case uint8:
		return starlark.MakeUint64(uint64(val)), nil
	case uint16:
		return starlark.MakeUint64(uint64(val)), nil
	case uint32:
		return starlark.MakeUint64(uint64(val)), nil
	case uint64:
		return starlark.MakeUint64(val), nil
	case float32:
		return starlark.Float(val), nil
	case float64:
		return starlark.Float(val), nil
	case json.Number:
		return numberToStarlark(string(val))
	case []any:
		elems := make([]starlark.Value, len(val))
		for i, e := range val {
			sv, err := toStarlark(e, depth+1)
			if err != nil {
				return nil, err
			}
			elems[i] = sv
		}
		return starlark.NewList(elems), nil
	case map[string]any:
		d := starlark.NewDict(len(val))
		for _, k := range sortedKeys(val) {
			sv, err := toStarlark(val[k], depth+1)
			if err != nil {
				return nil, err
			}
			if err := d.SetKey(starlark.String(k), sv); err != nil {
				return nil, err
			}
		}
		return d, nil
	case []string:
		elems := make([]starlark.Value, len(val))
		for i, e := range val {
			elems[i] = starlark.String(e)
		}
		return starlark.NewList(elems), nil
	case []int:
		elems := make([]starlark.Value, len(val))
		for i, e := range val {
			elems[i] = starlark.MakeInt(e)
		}
		return starlark.NewList(elems), nil
	case []float64:
		elems := make([]starlark.Value, len(val))
		for i, e := range val {
			elems[i] = starlark.Float(e)
		}
		return starlark.NewList(elems), nil
	case map[string]string:
		d := starlark.NewDict(len(val))
		for k, e := range val {
			_ = d.SetKey(starlark.String(k), starlark.String(e))
		}
		return d, nil
	default:
		return viaJSON(v, depth)
	}
}

// numberToStarlark keeps integral JSON numbers integral.
func numberToStarlark(s string) (starlark.Value, error) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return starlark.MakeInt64(i), nil
	}
	if b, ok := new(big.Int).SetString(s, 10); ok {
		return starlark.MakeBigInt(b), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: number %q", ErrUnsupportedValue, s)
	}
	return starlark.Float(f), nil
}

// viaJSON converts structs and other Go values through their JSON encoding.
func viaJSON(v any, depth int) (starlark.Value, error) {
	data, err := jsonAPI.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %T: %v", ErrUnsupportedValue, v, err)
	}
	var out any
	if err := jsonAPI.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: %T: %v", ErrUnsupportedValue, v, err)
	}
	return toStarlark(out, depth+1)
}

// FromNamespace converts the named bindings of ns to Go values.
func FromNamespace(ns namespace.Namespace) (map[string]any, error) {
	out := make(map[string]any, len(ns))
	for k, v := range ns {
		gv, err := FromStarlark(v)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", k, err)
		}
		out[k] = gv
	}
	return out, nil
}

// FromStarlark converts a Starlark value into a JSON-shaped Go value.
// Integers outside the int64 range become json.Number. Functions, modules,
// tasks and non-finite floats fail with ErrUnsupportedValue.
func FromStarlark(v starlark.Value) (any, error) {
	return fromStarlark(v, 0)
}

func fromStarlark(v starlark.Value, depth int) (any, error) {
	if depth > maxConvertDepth {
		return nil, fmt.Errorf("%w: nesting deeper than %d", ErrUnsupportedValue, maxConvertDepth)
	}
	switch val := v.(type) {
	case nil, starlark.NoneType:
		return nil, nil
	case starlark.Bool:
		return bool(val), nil
	case starlark.Int:
		if i, ok := val.Int64(); ok {
			return i, nil
		}
		return json.Number(val.String()), nil
	case starlark.Float:
		f := float64(val)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%w: non-finite float %v", ErrUnsupportedValue, f)
		}
		return f, nil
	case starlark.String:
		return string(val), nil
	case starlark.Bytes:
		return string(val), nil
	case *starlark.List:
		out := make([]any, val.Len())
		for i := 0; i < val.Len(); i++ {
			e, err := fromStarlark(val.Index(i), depth+1)
			if err != nil {
				return nil, err
			}
			out[i] = e
		}
		return out, nil
	case starlark.Tuple:
		out := make([]any, len(val))
		for i, e := range val {
			gv, err := fromStarlark(e, depth+1)
			if err != nil {
				return nil, err
			}
			out[i] = gv
		}
		return out, nil
	case *starlark.Set:
		out := make([]any, 0, val.Len())
		iter := val.Iterate()
		defer iter.Done()
		var e starlark.Value
		for iter.Next(&e) {
			gv, err := fromStarlark(e, depth+1)
			if err != nil {
				return nil, err
			}
			out = append(out, gv)
		}
		return out, nil
	case *starlark.Dict:
		out := make(map[string]any, val.Len())
		for _, item := range val.Items() {
			gv, err := fromStarlark(item[1], depth+1)
			if err != nil {
				return nil, err
			}
			out[dictKey(item[0])] = gv
		}
		return out, nil
	case *starlarkstruct.Struct:
		fields := make(starlark.StringDict)
		val.ToStringDict(fields)
		out := make(map[string]any, len(fields))
		for k, fv := range fields {
			gv, err := fromStarlark(fv, depth+1)
			if err != nil {
				return nil, err
			}
			out[k] = gv
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedValue, v.Type())
	}
}

// dictKey renders a dict key as a JSON object key.
func dictKey(k starlark.Value) string {
	if s, ok := starlark.AsString(k); ok {
		return s
	}
	return k.String()
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
