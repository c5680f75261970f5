package layout

import "fmt"

// footerOffset is the distance between the content bottom and the footer rule.
const footerOffset = 6

// Finisher stamps the running footer once the page count is final.
type Finisher struct {
	Geometry Geometry
	Theme    Theme
	Measurer Measurer
	Caption  string
}

// PageLabel is the footer page marker, e.g. "2/5".
func PageLabel(n, total int) string {
	return fmt.Sprintf("%d/%d", n, total)
}

// Stamp draws a rule, the caption and the page label on every page.
// It runs exactly once per document, after layout.
func (f Finisher) Stamp(pages []*Page) {
	g := f.Geometry
	th := f.Theme
	total := len(pages)
	left := g.Margins.Left
	right := g.PageWidth - g.Margins.Right
	y := g.ContentBottom() + footerOffset
	textY := y + 1.5

	for i, p := range pages {
		p.Number = i + 1
		p.DrawLine(Line{X1: left, Y1: y, X2: right, Y2: y, Color: th.Border, Width: th.BorderWidth, Role: RoleFooter})

		label := PageLabel(p.Number, total)
		labelW := f.Measurer.Width(label, th.Footer)
		if f.Caption != "" {
			caption := f.Measurer.Wrap(f.Caption, th.Footer, right-left-labelW-4)
			p.DrawText(TextRun{X: left, Y: textY, Text: caption.Lines[0], Font: th.Footer, Color: th.FooterColor, Role: RoleFooter})
		}
		p.DrawText(TextRun{X: right - labelW, Y: textY, Text: label, Font: th.Footer, Color: th.FooterColor, Role: RolePageNumber})
	}
}
