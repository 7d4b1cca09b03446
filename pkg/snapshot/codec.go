package snapshot

import (
	"bytes"
	"encoding"
	"encoding/json"
	"fmt"
	"reflect"

	jsonpatch "github.com/evanphx/json-patch"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// State maps field names to JSON-compatible values.
type State map[string]any

// Clone returns a deep copy of s. Maps and slices are copied recursively;
// other values are copied by assignment.
func Clone(s State) State {
	if s == nil {
		return State{}
	}
	out := make(State, len(s))
	for k, v := range s {
		out[k] = CloneValue(v)
	}
	return out
}

// CloneValue deep-copies a single field value.
func CloneValue(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case State:
		return Clone(t)
	case map[string]any:
		return map[string]any(Clone(State(t)))
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = CloneValue(e)
		}
		return out
	case string, bool, float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, json.Number:
		return t
	}
	return cloneReflect(reflect.ValueOf(v)).Interface()
}

func cloneReflect(v reflect.Value) reflect.Value {
	switch v.Kind() {
	case reflect.Map:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), cloneElem(iter.Value(), v.Type().Elem()))
		}
		return out
	case reflect.Slice:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(cloneElem(v.Index(i), v.Type().Elem()))
		}
		return out
	case reflect.Array:
		out := reflect.New(v.Type()).Elem()
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(cloneElem(v.Index(i), v.Type().Elem()))
		}
		return out
	case reflect.Pointer:
		if v.IsNil() {
			return v
		}
		out := reflect.New(v.Type().Elem())
		out.Elem().Set(cloneReflect(v.Elem()))
		return out
	case reflect.Struct:
		out := reflect.New(v.Type()).Elem()
		out.Set(v)
		for i := 0; i < v.NumField(); i++ {
			if out.Field(i).CanSet() {
				out.Field(i).Set(cloneElem(v.Field(i), v.Type().Field(i).Type))
			}
		}
		return out
	}
	return v
}

func cloneElem(v reflect.Value, typ reflect.Type) reflect.Value {
	if v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Zero(typ)
		}
		return reflect.ValueOf(CloneValue(v.Elem().Interface()))
	}
	return cloneReflect(v)
}

// numbers compares numeric values by magnitude, so an int written by a
// component equals the float64 it becomes after a JSON round trip.
var numbers = cmp.FilterValues(func(x, y any) bool {
	_, okx := toFloat(x)
	_, oky := toFloat(y)
	return okx && oky
}, cmp.Comparer(func(x, y any) bool {
	fx, _ := toFloat(x)
	fy, _ := toFloat(y)
	return fx == fy
}))

var equalOpts = cmp.Options{
	numbers,
	cmpopts.EquateEmpty(),
}

// Equal reports whether a and b are structurally equal as JSON: typed
// slices and maps equal their []any and map[string]any forms, and values
// with their own JSON encoding are compared by that encoding.
func Equal(a, b State) bool {
	return cmp.Equal(normalize(a), normalize(b), equalOpts)
}

// EqualValues reports whether two arbitrary values are structurally equal
// under the same rules as Equal.
func EqualValues(a, b any) bool {
	return cmp.Equal(normalize(a), normalize(b), equalOpts)
}

// Diff returns a human-readable diff between a and b, or "" when equal.
func Diff(a, b State) string {
	return cmp.Diff(normalize(a), normalize(b), equalOpts)
}

// normalize rewrites v into the shapes encoding/json decodes to, so the
// comparison never has to look inside types with unexported fields.
// Numbers keep their Go type; the numbers option folds them.
func normalize(v any) any {
	switch t := v.(type) {
	case nil, string, bool, json.Number,
		float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return t
	case State:
		return normalizeMap(t)
	case map[string]any:
		return normalizeMap(t)
	case []any:
		return normalizeSlice(t)
	case json.Marshaler, encoding.TextMarshaler:
		return viaJSON(v)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return normalize(rv.Elem().Interface())
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return viaJSON(v)
		}
		if rv.IsNil() {
			return map[string]any(nil)
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = normalize(iter.Value().Interface())
		}
		return out
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return viaJSON(v)
		}
		if rv.IsNil() {
			return []any(nil)
		}
		fallthrough
	case reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = normalize(rv.Index(i).Interface())
		}
		return out
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint()
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.Struct:
		return viaJSON(v)
	}
	// Funcs and channels only ever equal themselves when nil.
	return v
}

func normalizeMap(m map[string]any) any {
	if m == nil {
		return map[string]any(nil)
	}
	out := make(map[string]any, len(m))
	for k, e := range m {
		out[k] = normalize(e)
	}
	return out
}

func normalizeSlice(s []any) any {
	if s == nil {
		return []any(nil)
	}
	out := make([]any, len(s))
	for i, e := range s {
		out[i] = normalize(e)
	}
	return out
}

// viaJSON round-trips v through encoding/json. Values that cannot be
// encoded compare by their printed form.
func viaJSON(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%T(%#v)", v, v)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return string(data)
	}
	return normalize(out)
}

// Delta returns the RFC 7386 merge patch that turns from into to.
func Delta(from, to State) ([]byte, error) {
	orig, err := json.Marshal(from)
	if err != nil {
		return nil, err
	}
	modified, err := json.Marshal(to)
	if err != nil {
		return nil, err
	}
	return jsonpatch.CreateMergePatch(orig, modified)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
