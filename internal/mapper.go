package internal

import (
	"context"
	"reflect"
)

// ObjectMapper converts method results into JSON-serializable values.
type ObjectMapper interface {
	MapObject(ctx context.Context, v any) (any, error)
}

// ObjectMapperFunc adapts a function to ObjectMapper.
type ObjectMapperFunc func(ctx context.Context, v any) (any, error)

// MapObject implements ObjectMapper.
func (f ObjectMapperFunc) MapObject(ctx context.Context, v any) (any, error) {
	return f(ctx, v)
}

// WireMapper is implemented by values that choose their own wire form.
type WireMapper interface {
	ToWire() any
}

var wireMapperType = reflect.TypeFor[WireMapper]()

// DefaultMapper converts WireMapper values, walking into slices, arrays
// and maps. Everything else is left for encoding/json.
type DefaultMapper struct{}

// MapObject implements ObjectMapper.
func (DefaultMapper) MapObject(_ context.Context, v any) (any, error) {
	return mapValue(v), nil
}

func mapValue(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer && rv.IsNil() {
		return nil
	}
	if w, ok := v.(WireMapper); ok {
		return w.ToWire()
	}

	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return []any{}
		}
		if !containsWireMapper(rv.Type().Elem()) {
			return v
		}
		out := make([]any, rv.Len())
		for i := range rv.Len() {
			out[i] = mapValue(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String || !containsWireMapper(rv.Type().Elem()) {
			return v
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = mapValue(iter.Value().Interface())
		}
		return out
	}
	return v
}

// containsWireMapper reports whether values of t may need mapping.
func containsWireMapper(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Interface:
		return true
	case reflect.Slice, reflect.Array, reflect.Map:
		return containsWireMapper(t.Elem())
	}
	return t.Implements(wireMapperType) || reflect.PointerTo(t).Implements(wireMapperType)
}
