package methods

import (
	"testing"

	"github.com/vango-dev/statehistory/internal/errors"
)

func TestVerifyPanicsOnRecordSwap(t *testing.T) {
	s := New(nil, nil)
	_, m := Use(s, func(Dispatch, *Record) struct{} { return struct{}{} }, State{"v": 1})

	m.c.cell.record = &Record{}

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic")
		}
		err, ok := r.(*errors.Error)
		if !ok {
			t.Fatalf("panic value = %T, want *errors.Error", r)
		}
		if err.Code != "SH003" {
			t.Errorf("code = %q, want SH003", err.Code)
		}
	}()
	m.SetState(State{"v": 2})
}

func TestDepsEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b []any
		want bool
	}{
		{"both empty", nil, []any{}, true},
		{"same scalars", []any{1, "x"}, []any{1, "x"}, true},
		{"different length", []any{1}, []any{1, 2}, false},
		{"different type", []any{1}, []any{int64(1)}, false},
		{"slices by value", []any{[]int{1, 2}}, []any{[]int{1, 2}}, true},
		{"slices differ", []any{[]int{1, 2}}, []any{[]int{2, 1}}, false},
		{"nil vs value", []any{nil}, []any{0}, false},
		{"nil vs nil", []any{nil}, []any{nil}, true},
		{"maps by value", []any{map[string]int{"x": 1}}, []any{map[string]int{"x": 1}}, true},
		{"maps differ", []any{map[string]int{"x": 1}}, []any{map[string]int{"x": 2}}, false},
		{"funcs never equal", []any{func() {}}, []any{func() {}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := depsEqual(tt.a, tt.b); got != tt.want {
				t.Errorf("depsEqual(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestRecordMergeBumpsVersion(t *testing.T) {
	r := newRecord(State{"a": 1})
	r.merge(State{"b": 2})
	r.merge(State{})
	if r.Version() != 2 {
		t.Errorf("Version() = %d, want 2", r.Version())
	}
	r.reset(State{"a": 0})
	if r.Version() != 2 || r.Has("b") || r.Int("a") != 0 {
		t.Errorf("after reset: version=%d fields=%v", r.Version(), r.fields)
	}
}
