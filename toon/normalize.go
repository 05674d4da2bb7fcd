package toon

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
)

// Normalize converts an arbitrary Go value into the value model used by the
// encoder. Integers and floats become float64, maps become *Object with
// sorted keys, slices and arrays become []any and structs go through their
// JSON form so that json tags are honoured. Existing *Object values keep
// their order.
func Normalize(v any) (any, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case bool, string, float64:
		return val, nil
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return nil, inputErrorf("invalid number %q", val.String())
		}
		return f, nil
	case *Object:
		if val == nil {
			return nil, nil
		}
		return normalizeObject(val)
	case Object:
		return normalizeObject(&val)
	case []any:
		return normalizeSlice(reflect.ValueOf(val))
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		obj := NewObject()
		for _, k := range keys {
			nv, err := Normalize(val[k])
			if err != nil {
				return nil, err
			}
			obj.Set(k, nv)
		}
		return obj, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return nil, nil
		}
		return Normalize(rv.Elem().Interface())
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.String:
		return rv.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.Map:
		return normalizeMap(rv)
	case reflect.Slice:
		if rv.IsNil() {
			return []any{}, nil
		}
		return normalizeSlice(rv)
	case reflect.Array:
		return normalizeSlice(rv)
	case reflect.Struct:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, inputErrorf("cannot encode %T: %v", v, err)
		}
		tree, err := FromJSON(data)
		if err != nil {
			return nil, inputErrorf("cannot encode %T: %v", v, err)
		}
		return Normalize(tree)
	}
	return nil, inputErrorf("unsupported type: %T", v)
}

func normalizeObject(o *Object) (*Object, error) {
	out := NewObject()
	var err error
	o.Range(func(k string, v any) bool {
		var nv any
		if nv, err = Normalize(v); err != nil {
			return false
		}
		out.Set(k, nv)
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func normalizeSlice(rv reflect.Value) ([]any, error) {
	out := make([]any, rv.Len())
	for i := range out {
		nv, err := Normalize(rv.Index(i).Interface())
		if err != nil {
			return nil, err
		}
		out[i] = nv
	}
	return out, nil
}

func normalizeMap(rv reflect.Value) (*Object, error) {
	if rv.IsNil() {
		return NewObject(), nil
	}
	entries := make(map[string]reflect.Value, rv.Len())
	keys := make([]string, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		k := fmt.Sprint(iter.Key().Interface())
		entries[k] = iter.Value()
		keys = append(keys, k)
	}
	sort.Strings(keys)

	obj := NewObject()
	for _, k := range keys {
		nv, err := Normalize(entries[k].Interface())
		if err != nil {
			return nil, err
		}
		obj.Set(k, nv)
	}
	return obj, nil
}
