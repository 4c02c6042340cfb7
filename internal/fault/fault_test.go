package fault

import (
	"errors"
	"fmt"
	"os"
	"testing"
)

func TestErrorString(t *testing.T) {
	e := New(CodeBannedCommand, `command "curl" is not allowed`)
	want := `banned_command: command "curl" is not allowed`
	if e.Error() != want {
		t.Errorf("Error() = %q, want %q", e.Error(), want)
	}
}

func TestErrorStringWithCause(t *testing.T) {
	e := Wrap(CodeNotReadable, "reading /etc/shadow", os.ErrPermission)
	if got := e.Error(); got != "not_readable: reading /etc/shadow: permission denied" {
		t.Errorf("Error() = %q", got)
	}
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Code
	}{
		{"direct", New(CodeTimeout, "x"), CodeTimeout},
		{"wrapped", fmt.Errorf("outer: %w", New(CodeNotFound, "x")), CodeNotFound},
		{"plain", errors.New("boom"), CodeUnclassified},
		{"nil cause chain", Wrap(CodeInvalidPattern, "x", errors.New("y")), CodeInvalidPattern},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Errorf("CodeOf = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("cause")
	e := Wrap(CodeUnclassified, "x", cause)
	if !errors.Is(e, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
}
