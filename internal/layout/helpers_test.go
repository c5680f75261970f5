package layout

import (
	"strings"
	"testing"
	"unicode/utf8"
)

// fixedMeasurer gives every rune the same advance so page arithmetic in
// tests is exact.
type fixedMeasurer struct{}

func (fixedMeasurer) charWidth(f Font) float64 { return f.Size * PtToMm * 0.5 }

func (m fixedMeasurer) Width(text string, f Font) float64 {
	return float64(utf8.RuneCountInString(text)) * m.charWidth(f)
}

func (m fixedMeasurer) Wrap(text string, f Font, maxWidth float64) Wrapped {
	out := Wrapped{LineHeight: f.LineHeight()}
	for _, para := range strings.Split(text, "\n") {
		line := ""
		for _, word := range strings.Fields(para) {
			candidate := word
			if line != "" {
				candidate = line + " " + word
			}
			if line != "" && m.Width(candidate, f) > maxWidth {
				out.Lines = append(out.Lines, line)
				line = word
				continue
			}
			line = candidate
		}
		out.Lines = append(out.Lines, line)
	}
	return out
}

func newTestEngine() *Engine {
	return New(WithMeasurer(func() Measurer { return fixedMeasurer{} }))
}

func mustLayout(t *testing.T, e *Engine, doc *Document) *Result {
	t.Helper()
	res, err := e.Layout(doc)
	if err != nil {
		t.Fatalf("Layout() error = %v", err)
	}
	return res
}

// checkBottoms asserts no page has body content below the bottom margin.
func checkBottoms(t *testing.T, res *Result) {
	t.Helper()
	limit := res.Geometry.ContentBottom() + epsilon
	for _, p := range res.Pages {
		if got := p.ContentBottom(); got > limit {
			t.Errorf("page %d content reaches %.3f, bottom margin at %.3f", p.Number, got, limit)
		}
	}
}

func pageLabels(res *Result) []string {
	var labels []string
	for _, p := range res.Pages {
		for _, tr := range p.TextsWithRole(RolePageNumber) {
			labels = append(labels, tr.Text)
		}
	}
	return labels
}
