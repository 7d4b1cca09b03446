package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{
			name:    "key collision",
			code:    "SH001",
			wantMsg: "Key collision",
			wantCat: CategoryHistory,
		},
		{
			name:    "invariant violation",
			code:    "SH003",
			wantMsg: "Record identity diverged from reducer cell",
			wantCat: CategoryRuntime,
		},
		{
			name:    "config error",
			code:    "SH101",
			wantMsg: "Invalid configuration file",
			wantCat: CategoryConfig,
		},
		{
			name:    "unknown error code",
			code:    "SH999",
			wantMsg: "Unknown error",
			wantCat: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestErrorString(t *testing.T) {
	err := New("SH002").WithDetail("1 of 3 entries unmatched")
	want := "SH002: Partial reconciliation: 1 of 3 entries unmatched"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	plain := Newf(CategoryCLI, "step %d failed", 3)
	if plain.Error() != "step 3 failed" {
		t.Errorf("Error() = %q", plain.Error())
	}
}

func TestWrapAndIs(t *testing.T) {
	cause := stderrors.New("socket closed")
	err := New("SH005").Wrap(cause)

	if !stderrors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
	if !stderrors.Is(err, New("SH005")) {
		t.Error("errors.Is should match on code")
	}
	if stderrors.Is(err, New("SH004")) {
		t.Error("errors.Is should not match a different code")
	}

	outer := fmt.Errorf("push: %w", err)
	if got := Code(outer); got != "SH005" {
		t.Errorf("Code() = %q, want SH005", got)
	}
	if got := Code(cause); got != "" {
		t.Errorf("Code() of plain error = %q, want empty", got)
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, "SH101") != nil {
		t.Error("FromError(nil) should return nil")
	}

	coded := New("SH100")
	if FromError(coded, "SH101") != coded {
		t.Error("FromError should pass through coded errors")
	}

	wrapped := FromError(stderrors.New("bad json"), "SH101")
	if wrapped.Code != "SH101" || wrapped.Wrapped == nil {
		t.Errorf("FromError = %+v", wrapped)
	}
}

func TestFormat(t *testing.T) {
	DisableColors()

	out := New("SH001").WithDetail(`key "app.list" is held by a mounted container`).Format()
	for _, want := range []string{"ERROR SH001: Key collision", "app.list", "Hint:"} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q in:\n%s", want, out)
		}
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText("one two three four five", 9)
	if len(lines) != 3 {
		t.Fatalf("wrapText() = %q, want 3 lines", lines)
	}
	if lines[0] != "one two" {
		t.Errorf("lines[0] = %q", lines[0])
	}
	if wrapText("", 10) != nil {
		t.Error("wrapText(\"\") should be nil")
	}
}
