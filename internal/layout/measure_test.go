package layout

import (
	"reflect"
	"strings"
	"testing"
)

func TestPDFMeasurerWrap(t *testing.T) {
	long := strings.Repeat("pharmacovigilance ", 20)
	tests := []struct {
		name      string
		text      string
		width     float64
		wantLines int
		minLines  int
	}{
		{name: "empty string", text: "", width: 50, wantLines: 1},
		{name: "short line", text: "Ordonnance", width: 80, wantLines: 1},
		{name: "explicit breaks", text: "un\ndeux\ntrois", width: 80, wantLines: 3},
		{name: "trailing newline", text: "un\n", width: 80, wantLines: 1},
		{name: "long text wraps", text: long, width: 60, minLines: 4},
	}

	font := Font{Regular, 10}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewPDFMeasurer()
			got := m.Wrap(tt.text, font, tt.width)
			if tt.wantLines > 0 && len(got.Lines) != tt.wantLines {
				t.Errorf("Wrap(%q) = %d lines, want %d (%q)", tt.text, len(got.Lines), tt.wantLines, got.Lines)
			}
			if len(got.Lines) < tt.minLines {
				t.Errorf("Wrap(%q) = %d lines, want at least %d", tt.text, len(got.Lines), tt.minLines)
			}
			if got.Height() != float64(len(got.Lines))*font.LineHeight() {
				t.Errorf("Height() = %v, want %v", got.Height(), float64(len(got.Lines))*font.LineHeight())
			}
			for _, line := range got.Lines {
				if w := m.Width(line, font); w > tt.width+0.01 {
					t.Errorf("line %q is %.2fmm wide, limit %.2fmm", line, w, tt.width)
				}
			}
		})
	}
}

func TestPDFMeasurerDeterministic(t *testing.T) {
	text := "Délivrance d'un médicament à un patient non identifié, erreur détectée au comptoir."
	font := Font{Bold, 9}
	m := NewPDFMeasurer()
	first := m.Wrap(text, font, 45)
	// Interleave another font to make sure state does not leak between calls.
	m.Wrap("x", Font{Italic, 20}, 10)
	second := m.Wrap(text, font, 45)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Wrap() not deterministic: %q vs %q", first.Lines, second.Lines)
	}
	if other := NewPDFMeasurer().Wrap(text, font, 45); !reflect.DeepEqual(first, other) {
		t.Errorf("separate measurers disagree: %q vs %q", first.Lines, other.Lines)
	}
}

func TestEncodeText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"abc", "abc"},
		{"é", "\xe9"},
		{"€", "\x80"},
		{"→", "?"},
		{"a\r\nb", "a\nb"},
	}
	for _, tt := range tests {
		if got := encodeText(tt.in); got != tt.want {
			t.Errorf("encodeText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if got := decodeText(encodeText("Événement indésirable")); got != "Événement indésirable" {
		t.Errorf("decodeText(encodeText()) = %q", got)
	}
}
