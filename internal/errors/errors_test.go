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
			name:    "duplicate identifier",
			code:    "E101",
			wantMsg: "Duplicate identifier",
			wantCat: CategoryRegistry,
		},
		{
			name:    "malformed record",
			code:    "E110",
			wantMsg: "Malformed mutation record",
			wantCat: CategoryLifecycle,
		},
		{
			name:    "unknown error code",
			code:    "E999",
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

func TestIsMatchesByCode(t *testing.T) {
	sentinel := New("E101")
	err := fmt.Errorf("register: %w", New("E101").WithID("a7"))

	if !stderrors.Is(err, sentinel) {
		t.Error("errors.Is should match on code")
	}
	if stderrors.Is(err, New("E102")) {
		t.Error("errors.Is should not match a different code")
	}
	if CodeOf(err) != "E101" {
		t.Errorf("CodeOf = %q, want E101", CodeOf(err))
	}
}

func TestWithDoesNotMutateSentinel(t *testing.T) {
	sentinel := New("E100")
	_ = sentinel.WithID("a1").WithDetail("x")
	if sentinel.ID != "" || sentinel.Detail == "x" {
		t.Error("With* must return a copy")
	}
}

func TestErrorString(t *testing.T) {
	cause := stderrors.New("boom")
	err := New("E120").WithID("a3").Wrap(cause)
	want := "E120: Lifecycle callback panicked (id a3): boom"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !stderrors.Is(err, cause) {
		t.Error("wrapped cause should be reachable")
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	out := New("E101").WithID("a9").WithSuggestion("use a counter allocator").Format()
	for _, want := range []string{"ERROR E101: Duplicate identifier", "id a9", "Hint: use a counter allocator"} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q:\n%s", want, out)
		}
	}

	if got := New("E101").WithID("a9").FormatCompact(); got != "E101: Duplicate identifier [a9]" {
		t.Errorf("FormatCompact = %q", got)
	}
}

func TestAllCodesHaveTemplates(t *testing.T) {
	for _, code := range GetAllCodes() {
		tmpl, ok := GetTemplate(code)
		if !ok || tmpl.Message == "" || tmpl.Category == "" {
			t.Errorf("code %s has incomplete template", code)
		}
	}
}
