package irc

import (
	"slices"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitLines(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"single", "hello", []string{"hello"}},
		{"unix", "a\nb", []string{"a", "b"}},
		{"windows", "a\r\nb", []string{"a", "b"}},
		{"old mac", "a\rb", []string{"a", "b"}},
		{"blank lines dropped", "a\n\n\nb\n", []string{"a", "b"}},
		{"empty", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := SplitLines(tt.in); !slices.Equal(got, tt.want) {
				t.Errorf("SplitLines(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSplitLong_ShortLineUnchanged(t *testing.T) {
	t.Parallel()
	got := SplitLong("hello world", 100)
	if len(got) != 1 || got[0] != "hello world" {
		t.Errorf("SplitLong = %q, want [hello world]", got)
	}
}

func TestSplitLong_DisabledWhenZero(t *testing.T) {
	t.Parallel()
	line := strings.Repeat("a", 1000)
	if got := SplitLong(line, 0); len(got) != 1 {
		t.Errorf("expected 1 part, got %d", len(got))
	}
}

func TestSplitLong_PrefersSpaces(t *testing.T) {
	t.Parallel()
	got := SplitLong("aaaa bbbb cccc", 9)
	want := []string{"aaaa bbbb", "cccc"}
	if !slices.Equal(got, want) {
		t.Errorf("SplitLong = %q, want %q", got, want)
	}
}

func TestSplitLong_ForceSplitsWithoutSpaces(t *testing.T) {
	t.Parallel()
	line := strings.Repeat("x", 25)
	got := SplitLong(line, 10)
	if len(got) != 3 {
		t.Fatalf("expected 3 parts, got %d: %q", len(got), got)
	}
	if strings.Join(got, "") != line {
		t.Error("parts do not reassemble the original line")
	}
}

func TestSplitLong_RespectsRunes(t *testing.T) {
	t.Parallel()
	line := strings.Repeat("é", 20) // 2 bytes each
	for _, part := range SplitLong(line, 7) {
		if len(part) > 7 {
			t.Errorf("part %q exceeds 7 bytes", part)
		}
		if !utf8.ValidString(part) {
			t.Errorf("part %q is not valid UTF-8", part)
		}
	}
}
