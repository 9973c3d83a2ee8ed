package utils

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		limit int
		want  string
	}{
		{"shorter than limit", "educación", 100, "educación"},
		{"exact limit", "abc", 3, "abc"},
		{"ascii cut", "abcdef", 4, "abcd"},
		{"zero limit", "abc", 0, ""},
		{"cut inside multibyte rune backs up", "educación superior", 8, "educaci"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truncate(tt.in, tt.limit); got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.limit, got, tt.want)
			}
		})
	}
}

func TestTruncateAlwaysValidUTF8(t *testing.T) {
	s := strings.Repeat("análisis teórico ", 10)
	for limit := 0; limit <= len(s); limit++ {
		got := Truncate(s, limit)
		if !utf8.ValidString(got) {
			t.Fatalf("Truncate(..., %d) produced invalid UTF-8: %q", limit, got)
		}
		if len(got) > limit {
			t.Fatalf("Truncate(..., %d) returned %d bytes", limit, len(got))
		}
	}
}
