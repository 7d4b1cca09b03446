package methods

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/vango-dev/statehistory/pkg/snapshot"
)

// State maps field names to JSON-compatible values.
type State = snapshot.State

// Record is the mutable state owned by one container. Its identity never
// changes; updates mutate it in place and bump Version.
type Record struct {
	fields  State
	version uint64
}

func newRecord(initial State) *Record {
	return &Record{fields: snapshot.Clone(initial)}
}

// Version increases on every dispatch that reaches the record.
func (r *Record) Version() uint64 {
	return r.version
}

// Len returns the number of fields.
func (r *Record) Len() int {
	return len(r.fields)
}

// Has reports whether field is set.
func (r *Record) Has(field string) bool {
	_, ok := r.fields[field]
	return ok
}

// Get returns the raw value of field.
func (r *Record) Get(field string) any {
	return r.fields[field]
}

// Names returns the field names in sorted order.
func (r *Record) Names() []string {
	names := make([]string, 0, len(r.fields))
	for k := range r.fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Fields returns a deep copy of the record's fields.
func (r *Record) Fields() State {
	return snapshot.Clone(r.fields)
}

// Int returns field as an int. Values restored from history arrive as
// float64 and are truncated.
func (r *Record) Int(field string) int {
	switch v := r.fields[field].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case int32:
		return int(v)
	case float64:
		return int(v)
	case float32:
		return int(v)
	case uint:
		return int(v)
	case uint64:
		return int(v)
	}
	return 0
}

// Float returns field as a float64.
func (r *Record) Float(field string) float64 {
	switch v := r.fields[field].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case int32:
		return float64(v)
	}
	return 0
}

// String returns field as a string. Non-string values are formatted.
func (r *Record) String(field string) string {
	switch v := r.fields[field].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// Bool returns field as a bool.
func (r *Record) Bool(field string) bool {
	b, _ := r.fields[field].(bool)
	return b
}

// Slice returns field as a []any. Typed slices are converted.
func (r *Record) Slice(field string) []any {
	v := r.fields[field]
	if v == nil {
		return nil
	}
	if s, ok := v.([]any); ok {
		return s
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

// merge shallow-merges partial into the record: every top-level field of
// partial replaces the record's field wholesale.
func (r *Record) merge(partial State) {
	for k, v := range partial {
		r.fields[k] = snapshot.CloneValue(v)
	}
	r.version++
}

// reset clears every field and reassigns a copy of initial.
func (r *Record) reset(initial State) {
	for k := range r.fields {
		delete(r.fields, k)
	}
	for k, v := range initial {
		r.fields[k] = snapshot.CloneValue(v)
	}
}
