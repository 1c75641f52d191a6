package cli

import (
	"strings"
	"testing"
)

func TestColorsRespectNoColor(t *testing.T) {
	old := colorEnabled
	defer func() { colorEnabled = old }()

	colorEnabled = true
	if got := Green("ok"); !strings.Contains(got, "\033[32m") {
		t.Errorf("Green() = %q, want ANSI green", got)
	}

	colorEnabled = false
	if got := Green("ok"); got != "ok" {
		t.Errorf("Green() with NO_COLOR = %q, want %q", got, "ok")
	}
	if got := Red("bad"); got != "bad" {
		t.Errorf("Red() with NO_COLOR = %q, want %q", got, "bad")
	}
}

func TestStatus(t *testing.T) {
	old := colorEnabled
	defer func() { colorEnabled = old }()
	colorEnabled = true

	tests := []struct {
		in   string
		want string
	}{
		{"success", "\033[32m"},
		{"empty", "\033[2m"},
		{"canceled", "\033[2m"},
		{"connect-failed", "\033[31m"},
		{"timed-out", "\033[31m"},
	}
	for _, tt := range tests {
		if got := Status(tt.in); !strings.HasPrefix(got, tt.want) {
			t.Errorf("Status(%q) = %q, want prefix %q", tt.in, got, tt.want)
		}
	}
}
