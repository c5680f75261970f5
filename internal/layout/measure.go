package layout

import (
	"strings"

	"github.com/go-pdf/fpdf"
	"golang.org/x/text/encoding/charmap"
)

// Wrapped is the result of breaking a string into lines at a fixed width.
type Wrapped struct {
	Lines      []string
	LineHeight float64
}

func (w Wrapped) Height() float64 {
	return float64(len(w.Lines)) * w.LineHeight
}

// Measurer wraps and measures text. Implementations must be deterministic:
// the same arguments always give the same lines, because the lines computed
// while measuring are the ones that get drawn.
type Measurer interface {
	Wrap(text string, font Font, maxWidth float64) Wrapped
	Width(text string, font Font) float64
}

// PDFMeasurer measures with the Helvetica metrics fpdf embeds.
// It keeps font state on a scratch document and must not be shared
// between goroutines.
type PDFMeasurer struct {
	pdf *fpdf.Fpdf
}

func NewPDFMeasurer() *PDFMeasurer {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCellMargin(0)
	pdf.SetFont(fontFamily, "", 10)
	return &PDFMeasurer{pdf: pdf}
}

func (m *PDFMeasurer) use(font Font) {
	m.pdf.SetFont(fontFamily, string(font.Style), font.Size)
}

func (m *PDFMeasurer) Width(text string, font Font) float64 {
	m.use(font)
	return m.pdf.GetStringWidth(encodeText(text))
}

func (m *PDFMeasurer) Wrap(text string, font Font, maxWidth float64) Wrapped {
	m.use(font)
	out := Wrapped{LineHeight: font.LineHeight()}
	for _, line := range m.pdf.SplitLines([]byte(encodeText(text)), maxWidth) {
		out.Lines = append(out.Lines, decodeText(string(line)))
	}
	if len(out.Lines) == 0 {
		out.Lines = []string{""}
	}
	return out
}

var codePage = charmap.Windows1252

// encodeText maps UTF-8 to the single-byte encoding of the PDF core fonts.
// Runes the code page cannot represent become '?'.
func encodeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '\r' {
			continue
		}
		if c, ok := codePage.EncodeRune(r); ok {
			b.WriteByte(c)
		} else {
			b.WriteByte('?')
		}
	}
	return b.String()
}

func decodeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		b.WriteRune(codePage.DecodeByte(s[i]))
	}
	return b.String()
}
