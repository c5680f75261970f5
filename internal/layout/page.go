package layout

// Role tags every drawn item with the renderer that produced it, so a
// laid-out page can be inspected without decoding PDF bytes.
type Role string

const (
	RoleText         Role = "text"
	RoleSectionTitle Role = "section-title"
	RoleSectionBand  Role = "section-band"
	RoleTableHeader  Role = "table-header"
	RoleTableCell    Role = "table-cell"
	RoleCheckbox     Role = "checkbox"
	RoleCheckMark    Role = "check-mark"
	RoleBadge        Role = "badge"
	RoleSignature    Role = "signature"
	RoleFooter       Role = "footer"
	RolePageNumber   Role = "page-number"
)

// TextRun is one line of text. Y is the top of the line box.
type TextRun struct {
	X, Y  float64
	Text  string
	Font  Font
	Color Color
	Role  Role
	Group string
}

// Paint selects stroke and fill. A nil colour disables that half.
type Paint struct {
	Stroke    *Color
	Fill      *Color
	LineWidth float64
}

func stroke(c Color, w float64) Paint { return Paint{Stroke: &c, LineWidth: w} }
func fill(c Color) Paint              { return Paint{Fill: &c} }
func strokeFill(s, f Color, w float64) Paint {
	return Paint{Stroke: &s, Fill: &f, LineWidth: w}
}

type Rect struct {
	X, Y, W, H float64
	Radius     float64
	Paint      Paint
	Role       Role
	Group      string
}

type Circle struct {
	X, Y, R float64
	Paint   Paint
	Role    Role
}

type Line struct {
	X1, Y1, X2, Y2 float64
	Color          Color
	Width          float64
	Role           Role
}

// Surface is what block renderers draw on: one fixed-size page.
type Surface interface {
	Bounds() (w, h float64)
	DrawText(t TextRun)
	DrawRect(r Rect)
	DrawCircle(c Circle)
	DrawLine(l Line)
}

// Page is a display list for one page. The PDF writer replays it after
// the footers have been stamped.
type Page struct {
	Number  int
	Width   float64
	Height  float64
	Texts   []TextRun
	Rects   []Rect
	Circles []Circle
	Lines   []Line
}

func newPage(number int, g Geometry) *Page {
	return &Page{Number: number, Width: g.PageWidth, Height: g.PageHeight}
}

func (p *Page) Bounds() (float64, float64) { return p.Width, p.Height }
func (p *Page) DrawText(t TextRun)         { p.Texts = append(p.Texts, t) }
func (p *Page) DrawRect(r Rect)            { p.Rects = append(p.Rects, r) }
func (p *Page) DrawCircle(c Circle)        { p.Circles = append(p.Circles, c) }
func (p *Page) DrawLine(l Line)            { p.Lines = append(p.Lines, l) }

// TextsWithRole returns the text runs drawn by one renderer.
func (p *Page) TextsWithRole(role Role) []TextRun {
	var out []TextRun
	for _, t := range p.Texts {
		if t.Role == role {
			out = append(out, t)
		}
	}
	return out
}

func (p *Page) RectsWithRole(role Role) []Rect {
	var out []Rect
	for _, r := range p.Rects {
		if r.Role == role {
			out = append(out, r)
		}
	}
	return out
}

// Empty reports whether nothing but footer items were drawn.
func (p *Page) Empty() bool {
	for _, t := range p.Texts {
		if !t.Role.footer() {
			return false
		}
	}
	for _, r := range p.Rects {
		if !r.Role.footer() {
			return false
		}
	}
	return len(p.Circles) == 0
}

// ContentBottom is the lowest edge reached by body content, footers excluded.
func (p *Page) ContentBottom() float64 {
	var y float64
	for _, t := range p.Texts {
		if !t.Role.footer() {
			y = max(y, t.Y+t.Font.LineHeight())
		}
	}
	for _, r := range p.Rects {
		if !r.Role.footer() {
			y = max(y, r.Y+r.H)
		}
	}
	for _, c := range p.Circles {
		if !c.Role.footer() {
			y = max(y, c.Y+c.R)
		}
	}
	for _, l := range p.Lines {
		if !l.Role.footer() {
			y = max(y, l.Y1, l.Y2)
		}
	}
	return y
}

func (r Role) footer() bool {
	return r == RoleFooter || r == RolePageNumber
}
