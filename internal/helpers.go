package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
)

var errConvert = errors.New("cannot convert argument")

// convertArg converts a wire argument into a value assignable to t.
// Wire arguments are strings (query, form, path), []string (repeated keys)
// or values decoded from a JSON body.
func convertArg(v any, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(t), nil
	}

	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(t) {
		out := reflect.New(t).Elem()
		out.Set(rv)
		return out, nil
	}

	if t.Kind() == reflect.Pointer {
		elem, err := convertArg(v, t.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		ptr := reflect.New(t.Elem())
		ptr.Elem().Set(elem)
		return ptr, nil
	}

	switch raw := v.(type) {
	case string:
		if out, ok := convertString(raw, t); ok {
			return out, nil
		}
	case float64:
		if out, ok := convertNumber(raw, t); ok {
			return out, nil
		}
	case bool:
		if t.Kind() == reflect.Bool {
			return reflect.ValueOf(raw).Convert(t), nil
		}
		if t.Kind() == reflect.String {
			return reflect.ValueOf(strconv.FormatBool(raw)).Convert(t), nil
		}
	case []string:
		if t.Kind() == reflect.Slice {
			out := reflect.MakeSlice(t, 0, len(raw))
			for _, s := range raw {
				elem, err := convertArg(s, t.Elem())
				if err != nil {
					return reflect.Value{}, err
				}
				out = reflect.Append(out, elem)
			}
			return out, nil
		}
		if len(raw) > 0 {
			return convertArg(raw[len(raw)-1], t)
		}
		return reflect.Zero(t), nil
	}

	return convertJSON(v, t)
}

// convertString parses a scalar string into t.
func convertString(raw string, t reflect.Type) (reflect.Value, bool) {
	switch t.Kind() {
	case reflect.String:
		return reflect.ValueOf(raw).Convert(t), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v, err := strconv.ParseInt(raw, 10, t.Bits())
		if err != nil {
			return reflect.Value{}, false
		}
		return reflect.ValueOf(v).Convert(t), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v, err := strconv.ParseUint(raw, 10, t.Bits())
		if err != nil {
			return reflect.Value{}, false
		}
		return reflect.ValueOf(v).Convert(t), true
	case reflect.Float32, reflect.Float64:
		v, err := strconv.ParseFloat(raw, t.Bits())
		if err != nil {
			return reflect.Value{}, false
		}
		return reflect.ValueOf(v).Convert(t), true
	case reflect.Bool:
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return reflect.Value{}, false
		}
		return reflect.ValueOf(v).Convert(t), true
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return reflect.ValueOf([]byte(raw)).Convert(t), true
		}
	}
	return reflect.Value{}, false
}

// convertNumber converts a JSON number into t.
func convertNumber(raw float64, t reflect.Type) (reflect.Value, bool) {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if raw != math.Trunc(raw) || reflect.Zero(t).OverflowInt(int64(raw)) {
			return reflect.Value{}, false
		}
		return reflect.ValueOf(int64(raw)).Convert(t), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if raw < 0 || raw != math.Trunc(raw) || reflect.Zero(t).OverflowUint(uint64(raw)) {
			return reflect.Value{}, false
		}
		return reflect.ValueOf(uint64(raw)).Convert(t), true
	case reflect.Float32, reflect.Float64:
		return reflect.ValueOf(raw).Convert(t), true
	case reflect.String:
		return reflect.ValueOf(strconv.FormatFloat(raw, 'f', -1, 64)).Convert(t), true
	}
	return reflect.Value{}, false
}

// convertJSON round-trips v through encoding/json into a new value of type t.
// It covers structs, maps, slices and types with their own JSON decoding.
func convertJSON(v any, t reflect.Type) (reflect.Value, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return reflect.Value{}, fmt.Errorf("%w: %w", errConvert, err)
	}
	out := reflect.New(t)
	if err := json.Unmarshal(data, out.Interface()); err != nil {
		return reflect.Value{}, fmt.Errorf("%w to %s: %w", errConvert, t, err)
	}
	return out.Elem(), nil
}
