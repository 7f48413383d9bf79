package feed

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		n     int
		want  string
	}{
		{"shorter than limit", "hello", 10, "hello"},
		{"exact limit", "hello", 5, "hello"},
		{"ascii cut", "hello world", 5, "hello"},
		{"multibyte cut", "héllo wörld", 7, "héllo w"},
		{"emoji", "👍👍👍", 2, "👍👍"},
		{"zero", "hello", 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Truncate(tt.input, tt.n)
			if got != tt.want {
				t.Errorf("Expected '%s', got '%s'", tt.want, got)
			}
			if !utf8.ValidString(got) {
				t.Errorf("Expected valid UTF-8, got %q", got)
			}
		})
	}
}

func TestPlainText(t *testing.T) {
	got := PlainText(`<p>First   paragraph with <a href="https://x.example">a link</a>.</p><p>Caf&eacute; time</p>`)

	if strings.Contains(got, "<") {
		t.Errorf("Expected no HTML tags, got '%s'", got)
	}
	if strings.Contains(got, "https://x.example") {
		t.Errorf("Expected link targets to be omitted, got '%s'", got)
	}
	if !strings.Contains(got, "First paragraph with a link.") {
		t.Errorf("Expected collapsed whitespace, got '%s'", got)
	}
	if !strings.Contains(got, "Café time") {
		t.Errorf("Expected decoded entity, got '%s'", got)
	}
}

func TestPlainText_NormalizesNFC(t *testing.T) {
	got := PlainText("café")
	if got != "café" {
		t.Errorf("Expected NFC-normalized text, got %q", got)
	}
}

func TestPlainText_Empty(t *testing.T) {
	if got := PlainText("   "); got != "" {
		t.Errorf("Expected empty string, got '%s'", got)
	}
}
