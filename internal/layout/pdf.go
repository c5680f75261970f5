package layout

import (
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"
)

// epoch stands in for a missing generation date.
var epoch = time.Unix(0, 0).UTC()

// writePDF replays the display lists into fpdf. Shapes go first so text
// painted on bands and badges stays on top.
func writePDF(w io.Writer, doc *Document, res *Result, creator string) error {
	g := res.Geometry
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: g.PageWidth, Ht: g.PageHeight},
	})
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)
	pdf.SetCellMargin(0)
	// Sorted catalogs and fixed dates make identical input give identical bytes.
	pdf.SetCatalogSort(true)
	generated := doc.GeneratedAt
	if generated.IsZero() {
		generated = epoch
	}
	pdf.SetCreationDate(generated)
	pdf.SetModificationDate(generated)
	pdf.SetTitle(doc.Title, true)
	pdf.SetSubject(doc.Subject, true)
	pdf.SetAuthor(doc.Author, true)
	pdf.SetCreator(creator, true)

	for _, p := range res.Pages {
		pdf.AddPage()
		drawPage(pdf, p)
		if err := pdf.Error(); err != nil {
			return fmt.Errorf("draw page %d: %w", p.Number, err)
		}
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func drawPage(pdf *fpdf.Fpdf, p *Page) {
	for _, r := range p.Rects {
		style := applyPaint(pdf, r.Paint)
		if style == "" {
			continue
		}
		if r.Radius > 0 {
			pdf.RoundedRect(r.X, r.Y, r.W, r.H, r.Radius, "1234", style)
		} else {
			pdf.Rect(r.X, r.Y, r.W, r.H, style)
		}
	}
	for _, c := range p.Circles {
		if style := applyPaint(pdf, c.Paint); style != "" {
			pdf.Circle(c.X, c.Y, c.R, style)
		}
	}
	for _, l := range p.Lines {
		pdf.SetDrawColor(l.Color.R, l.Color.G, l.Color.B)
		pdf.SetLineWidth(l.Width)
		pdf.Line(l.X1, l.Y1, l.X2, l.Y2)
	}
	for _, t := range p.Texts {
		if t.Text == "" {
			continue
		}
		pdf.SetFont(fontFamily, string(t.Font.Style), t.Font.Size)
		pdf.SetTextColor(t.Color.R, t.Color.G, t.Color.B)
		pdf.Text(t.X, baseline(t), encodeText(t.Text))
	}
}

// baseline converts the top of a line box to the text baseline fpdf expects.
func baseline(t TextRun) float64 {
	size := t.Font.Size * PtToMm
	return t.Y + (t.Font.LineHeight()-size)/2 + 0.8*size
}

func applyPaint(pdf *fpdf.Fpdf, p Paint) string {
	style := ""
	if p.Fill != nil {
		pdf.SetFillColor(p.Fill.R, p.Fill.G, p.Fill.B)
		style += "F"
	}
	if p.Stroke != nil {
		pdf.SetDrawColor(p.Stroke.R, p.Stroke.G, p.Stroke.B)
		if p.LineWidth > 0 {
			pdf.SetLineWidth(p.LineWidth)
		}
		style += "D"
	}
	return style
}
