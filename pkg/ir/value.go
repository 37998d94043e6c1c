package ir

import (
	"encoding/json"
	"fmt"
	"sort"
)

// FromValue converts a decoded Go value into a literal expression.
// Map keys are emitted in sorted order so the result is deterministic.
func FromValue(v any) (Expr, error) {
	switch x := v.(type) {
	case nil:
		return Null(), nil
	case string:
		return String(x), nil
	case bool:
		return Bool(x), nil
	case float64:
		return Number(x), nil
	case float32:
		return Number(float64(x)), nil
	case int:
		return Number(float64(x)), nil
	case int64:
		return Number(float64(x)), nil
	case int32:
		return Number(float64(x)), nil
	case uint64:
		return Number(float64(x)), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", x, err)
		}
		return Number(f), nil
	case []any:
		arr := &Array{Elems: make([]Expr, 0, len(x))}
		for i, elem := range x {
			e, err := FromValue(elem)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			arr.Elems = append(arr.Elems, e)
		}
		return arr, nil
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		obj := &Object{Fields: make([]Field, 0, len(x))}
		for _, k := range keys {
			e, err := FromValue(x[k])
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			obj.Fields = append(obj.Fields, Field{Key: k, Value: e})
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported literal type %T", v)
	}
}
