package tui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/bubbles/textinput"
)

func TestWrapText(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		width int
		want  string
	}{
		{"fits on one line", "short text", 20, "short text"},
		{"wraps at word boundary", "alpha beta gamma", 11, "alpha beta\ngamma"},
		{"preserves existing newlines", "one\ntwo", 20, "one\ntwo"},
		{"zero width returns input", "anything at all", 0, "anything at all"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := wrapText(tt.text, tt.width)
			if got != tt.want {
				t.Errorf("wrapText(%q, %d) = %q, want %q", tt.text, tt.width, got, tt.want)
			}
		})
	}
}

func TestWrapText_LongWordIsBroken(t *testing.T) {
	got := wrapText("supercalifragilistic", 5)
	for _, line := range strings.Split(got, "\n") {
		if len(line) > 5 {
			t.Errorf("line %q exceeds the width", line)
		}
	}
	if strings.ReplaceAll(got, "\n", "") != "supercalifragilistic" {
		t.Errorf("characters lost while breaking: %q", got)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"fits", "short", 10, "short"},
		{"truncated with ellipsis", "a longer string", 8, "a longe…"},
		{"exact length", "exact", 5, "exact"},
		{"zero max", "x", 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncate(tt.in, tt.max); got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
			}
		})
	}
}

func TestGetFilteredSuggestions(t *testing.T) {
	m := Model{input: textinput.New()}

	m.input.SetValue("/")
	if got := m.getFilteredSuggestions(); len(got) != len(availableCommands) {
		t.Errorf("bare slash matched %d commands, want all %d", len(got), len(availableCommands))
	}

	m.input.SetValue("/re")
	got := m.getFilteredSuggestions()
	if len(got) != 1 || got[0].cmd != "/retry" {
		t.Errorf("/re matched %+v", got)
	}

	m.input.SetValue("no slash")
	if got := m.getFilteredSuggestions(); got != nil {
		t.Errorf("non-command input matched %+v", got)
	}
}
