package internal

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type namedString string

type point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func TestConvertArg(t *testing.T) {
	t.Parallel()

	intPtr := func(n int) *int { return &n }

	tests := []struct {
		name    string
		in      any
		typ     reflect.Type
		want    any
		wantErr bool
	}{
		{name: "nil is zero", in: nil, typ: reflect.TypeFor[int](), want: 0},
		{name: "assignable", in: "x", typ: reflect.TypeFor[string](), want: "x"},
		{name: "named string", in: "x", typ: reflect.TypeFor[namedString](), want: namedString("x")},
		{name: "string to int", in: "42", typ: reflect.TypeFor[int](), want: 42},
		{name: "string to int8 overflow", in: "300", typ: reflect.TypeFor[int8](), wantErr: true},
		{name: "string to uint", in: "7", typ: reflect.TypeFor[uint](), want: uint(7)},
		{name: "negative to uint", in: "-1", typ: reflect.TypeFor[uint](), wantErr: true},
		{name: "string to float", in: "1.5", typ: reflect.TypeFor[float64](), want: 1.5},
		{name: "string to bool", in: "true", typ: reflect.TypeFor[bool](), want: true},
		{name: "string to bytes", in: "raw", typ: reflect.TypeFor[[]byte](), want: []byte("raw")},
		{name: "string to pointer", in: "5", typ: reflect.TypeFor[*int](), want: intPtr(5)},
		{name: "bad int", in: "abc", typ: reflect.TypeFor[int](), wantErr: true},
		{name: "json number to int", in: float64(3), typ: reflect.TypeFor[int](), want: 3},
		{name: "fractional number to int", in: 3.5, typ: reflect.TypeFor[int](), wantErr: true},
		{name: "json number to string", in: 2.25, typ: reflect.TypeFor[string](), want: "2.25"},
		{name: "bool to string", in: true, typ: reflect.TypeFor[string](), want: "true"},
		{name: "list to slice", in: []string{"1", "2"}, typ: reflect.TypeFor[[]int](), want: []int{1, 2}},
		{name: "list to scalar takes last", in: []string{"1", "2"}, typ: reflect.TypeFor[int](), want: 2},
		{name: "json object to struct", in: map[string]any{"x": float64(1), "y": float64(2)}, typ: reflect.TypeFor[point](), want: point{X: 1, Y: 2}},
		{name: "json list to slice", in: []any{"a", "b"}, typ: reflect.TypeFor[[]string](), want: []string{"a", "b"}},
		{name: "string to time", in: "2024-01-02T03:04:05Z", typ: reflect.TypeFor[time.Time](), want: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)},
		{name: "object to int", in: map[string]any{"a": 1}, typ: reflect.TypeFor[int](), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := convertArg(tt.in, tt.typ)
			if tt.wantErr {
				require.ErrorIs(t, err, errConvert)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got.Interface())
		})
	}
}

func TestGoMethodName(t *testing.T) {
	t.Parallel()

	require.Equal(t, "GetPage", goMethodName("getPage"))
	require.Equal(t, "Éclair", goMethodName("éclair"))
	require.Empty(t, goMethodName(""))
}
