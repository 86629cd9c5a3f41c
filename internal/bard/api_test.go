package bard

import "testing"

func TestDisplayName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"gemini-3.0-flash", "Gemini 3.0 Flash"},
		{"gemini-3.0-flash-thinking", "Gemini 3.0 Flash Thinking"},
		{"gemini-3.0-pro", "Gemini 3.0 Pro"},
		{"gemini-nano-2", "Gemini Nano 2"},
	}
	for _, cs := range cases {
		if got := displayName(cs.in); got != cs.want {
			t.Errorf("displayName(%q) = %q, want %q", cs.in, got, cs.want)
		}
	}
}
