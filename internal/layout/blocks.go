package layout

import (
	"fmt"
	"math"
	"strings"
)

type Kind int

const (
	KindText Kind = iota + 1
	KindSectionHeader
	KindFields
	KindCheckboxGrid
	KindBadge
	KindSignature
	KindTable
	KindSpacer
	KindIndicator
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindSectionHeader:
		return "section-header"
	case KindFields:
		return "fields"
	case KindCheckboxGrid:
		return "checkbox-grid"
	case KindBadge:
		return "badge"
	case KindSignature:
		return "signature"
	case KindTable:
		return "table"
	case KindSpacer:
		return "spacer"
	case KindIndicator:
		return "indicator"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Context carries what a block needs to measure itself.
type Context struct {
	Measurer Measurer
	Theme    Theme
	Width    float64
	// PageHeight is the usable height of an empty page. Zero disables
	// splitting of tall text.
	PageHeight float64
}

// Block is one renderable unit. Measure is the first phase of the
// two-phase layout; the returned Box draws exactly what was measured.
type Block interface {
	Kind() Kind
	Measure(ctx *Context) (*Box, error)
}

// Box is a measured block ready to be placed.
type Box struct {
	// Height is the full vertical space the block needs.
	Height float64
	// Lead is the part that must share a page with a preceding section
	// heading. It equals Height for blocks that never split.
	Lead float64

	place func(c Cursor, p *pager) (Cursor, error)
}

// atomicBox places a block that is never split: break first if needed,
// draw at the cursor, then advance.
func atomicBox(h float64, draw func(s Surface, x, y float64)) (*Box, error) {
	if err := checkHeight(h); err != nil {
		return nil, err
	}
	b := &Box{Height: h, Lead: h}
	b.place = func(c Cursor, p *pager) (Cursor, error) {
		c, _, err := p.ensureFits(c, h)
		if err != nil {
			return c, err
		}
		draw(p.surface(c), c.geom.Margins.Left, c.Y)
		return c.Advance(h)
	}
	return b, nil
}

// textLines is wrapped text with per-line offsets already resolved.
type textLines struct {
	lines []string
	xs    []float64
	font  Font
	color Color
	lh    float64
}

func wrapLines(ctx *Context, text string, font Font, color Color, width float64, align Align) textLines {
	w := ctx.Measurer.Wrap(text, font, width)
	tl := textLines{lines: w.Lines, font: font, color: color, lh: w.LineHeight}
	tl.xs = make([]float64, len(w.Lines))
	if align != AlignLeft {
		for i, line := range w.Lines {
			tl.xs[i] = alignX(align, 0, width, ctx.Measurer.Width(line, font))
		}
	}
	return tl
}

func (t textLines) height() float64 {
	return float64(len(t.lines)) * t.lh
}

func (t textLines) draw(s Surface, x, y float64, role Role, group string) {
	for i, line := range t.lines {
		s.DrawText(TextRun{
			X:     x + t.xs[i],
			Y:     y + float64(i)*t.lh,
			Text:  line,
			Font:  t.font,
			Color: t.color,
			Role:  role,
			Group: group,
		})
	}
}

// orphanLines is how many lines of a split paragraph stay with the
// heading above it.
const orphanLines = 2

// flowBox places text that cannot fit on any page. Lines are kept whole
// and the page breaks between them.
func (t textLines) flowBox(indent float64, role Role) (*Box, error) {
	h := t.height()
	if err := checkHeight(h); err != nil {
		return nil, err
	}
	b := &Box{Height: h, Lead: float64(min(orphanLines, len(t.lines))) * t.lh}
	b.place = func(c Cursor, p *pager) (Cursor, error) {
		for i, line := range t.lines {
			next, _, err := p.ensureFits(c, t.lh)
			if err != nil {
				return c, err
			}
			c = next
			p.surface(c).DrawText(TextRun{
				X:     c.geom.Margins.Left + indent + t.xs[i],
				Y:     c.Y,
				Text:  line,
				Font:  t.font,
				Color: t.color,
				Role:  role,
			})
			if c, err = c.Advance(t.lh); err != nil {
				return c, err
			}
		}
		return c, nil
	}
	return b, nil
}

// Text is a wrapped paragraph. It is placed whole unless it is taller
// than a page, in which case it breaks between lines.
type Text struct {
	Content string
	Style   TextStyle
	Align   Align
	Indent  float64
}

func (Text) Kind() Kind { return KindText }

func (t Text) Measure(ctx *Context) (*Box, error) {
	font, color := ctx.Theme.textStyle(t.Style)
	width := ctx.Width - t.Indent
	if width <= 0 {
		return nil, fmt.Errorf("text indent %.1f leaves no width", t.Indent)
	}
	tl := wrapLines(ctx, t.Content, font, color, width, t.Align)
	if ctx.PageHeight > 0 && tl.height() > ctx.PageHeight+epsilon {
		return tl.flowBox(t.Indent, RoleText)
	}
	return atomicBox(tl.height(), func(s Surface, x, y float64) {
		tl.draw(s, x+t.Indent, y, RoleText, "")
	})
}

// SectionHeader is the coloured band opening a section.
type SectionHeader struct {
	Title string
}

func (SectionHeader) Kind() Kind { return KindSectionHeader }

func (h SectionHeader) Measure(ctx *Context) (*Box, error) {
	th := ctx.Theme
	pad := th.BandPadding
	tl := wrapLines(ctx, strings.ToUpper(h.Title), th.Strong, White, ctx.Width-2*pad, AlignLeft)
	height := tl.height() + 2*pad
	return atomicBox(height, func(s Surface, x, y float64) {
		s.DrawRect(Rect{X: x, Y: y, W: ctx.Width, H: height, Paint: fill(th.Accent), Role: RoleSectionBand})
		tl.draw(s, x+pad, y+pad, RoleSectionTitle, "")
	})
}

// Field is one label/value line of a form summary.
type Field struct {
	Label string
	Value string
}

// Fields renders label/value pairs in two aligned columns.
type Fields struct {
	Items      []Field
	LabelWidth float64
}

func (Fields) Kind() Kind { return KindFields }

func (f Fields) Measure(ctx *Context) (*Box, error) {
	th := ctx.Theme
	labelW := f.LabelWidth
	if labelW <= 0 {
		labelW = th.FieldLabelWidth
	}
	const colGap = 2.0
	valueW := ctx.Width - labelW - colGap
	if valueW <= 0 {
		return nil, fmt.Errorf("%w: field label width %.1f", ErrColumnOverflow, labelW)
	}
	const rowGap = 1.0

	type row struct {
		label, value textLines
		h            float64
	}
	rows := make([]row, len(f.Items))
	var total float64
	for i, it := range f.Items {
		r := row{
			label: wrapLines(ctx, it.Label, th.Label, th.Text, labelW, AlignLeft),
			value: wrapLines(ctx, it.Value, th.Body, th.Text, valueW, AlignLeft),
		}
		r.h = max(r.label.height(), r.value.height())
		rows[i] = r
		total += r.h
		if i > 0 {
			total += rowGap
		}
	}
	return atomicBox(total, func(s Surface, x, y float64) {
		for _, r := range rows {
			r.label.draw(s, x, y, RoleText, "")
			r.value.draw(s, x+labelW+colGap, y, RoleText, "")
			y += r.h + rowGap
		}
	})
}

// CheckItem is one entry of a checklist. ID names the flag it reflects.
type CheckItem struct {
	ID      string
	Label   string
	Checked bool
}

// CheckboxGrid lays items out left to right, Columns per visual row.
type CheckboxGrid struct {
	Items   []CheckItem
	Columns int
}

func (CheckboxGrid) Kind() Kind { return KindCheckboxGrid }

// Rows is the number of visual rows the grid occupies.
func (g CheckboxGrid) Rows() int {
	cols := max(g.Columns, 1)
	return (len(g.Items) + cols - 1) / cols
}

func (g CheckboxGrid) Measure(ctx *Context) (*Box, error) {
	th := ctx.Theme
	cols := max(g.Columns, 1)
	colW := (ctx.Width - float64(cols-1)*th.ColumnGap) / float64(cols)
	labelW := colW - th.CheckboxSize - th.CheckboxGap
	if labelW <= 0 {
		return nil, fmt.Errorf("%w: %d checkbox columns", ErrColumnOverflow, cols)
	}

	labels := make([]textLines, len(g.Items))
	rowHeights := make([]float64, g.Rows())
	for i, it := range g.Items {
		labels[i] = wrapLines(ctx, it.Label, th.Body, th.Text, labelW, AlignLeft)
		r := i / cols
		rowHeights[r] = max(rowHeights[r], th.CheckboxSize, labels[i].height())
	}
	var total float64
	for r, h := range rowHeights {
		total += h
		if r > 0 {
			total += th.CheckboxRowGap
		}
	}

	return atomicBox(total, func(s Surface, x, y float64) {
		rowY := y
		for r, h := range rowHeights {
			for c := 0; c < cols; c++ {
				i := r*cols + c
				if i >= len(g.Items) {
					break
				}
				it := g.Items[i]
				cx := x + float64(c)*(colW+th.ColumnGap)
				boxY := rowY + max(0, (labels[i].lh-th.CheckboxSize)/2)
				s.DrawRect(Rect{
					X: cx, Y: boxY, W: th.CheckboxSize, H: th.CheckboxSize,
					Paint: stroke(th.Text, th.BorderWidth*1.5), Role: RoleCheckbox, Group: it.ID,
				})
				if it.Checked {
					inset := th.CheckboxSize * 0.2
					s.DrawRect(Rect{
						X: cx + inset, Y: boxY + inset,
						W: th.CheckboxSize - 2*inset, H: th.CheckboxSize - 2*inset,
						Paint: fill(th.CheckFill), Role: RoleCheckMark, Group: it.ID,
					})
				}
				labels[i].draw(s, cx+th.CheckboxSize+th.CheckboxGap, rowY, RoleText, it.ID)
			}
			rowY += h + th.CheckboxRowGap
		}
	})
}

// Badge is a centred pill with a short code and a caption underneath.
type Badge struct {
	Code    string
	Caption string
	Fill    *Color
}

func (Badge) Kind() Kind { return KindBadge }

func (b Badge) Measure(ctx *Context) (*Box, error) {
	th := ctx.Theme
	fillColor := th.Accent
	if b.Fill != nil {
		fillColor = *b.Fill
	}
	pillW := min(max(th.BadgeMinWidth, ctx.Measurer.Width(b.Code, th.Badge)+2*th.BadgePadding), ctx.Width)
	code := wrapLines(ctx, b.Code, th.Badge, White, pillW, AlignCenter)
	if len(code.lines) > 1 {
		code.lines, code.xs = code.lines[:1], code.xs[:1]
	}

	const captionGap = 1.5
	height := th.BadgeHeight
	var caption textLines
	if b.Caption != "" {
		caption = wrapLines(ctx, b.Caption, th.Caption, th.Muted, ctx.Width, AlignCenter)
		height += captionGap + caption.height()
	}

	return atomicBox(height, func(s Surface, x, y float64) {
		px := x + (ctx.Width-pillW)/2
		s.DrawRect(Rect{
			X: px, Y: y, W: pillW, H: th.BadgeHeight, Radius: th.BadgeRadius,
			Paint: fill(fillColor), Role: RoleBadge, Group: b.Code,
		})
		code.draw(s, px, y+(th.BadgeHeight-code.lh)/2, RoleBadge, b.Code)
		if b.Caption != "" {
			caption.draw(s, x, y+th.BadgeHeight+captionGap, RoleText, b.Code)
		}
	})
}

// SignatureBox is one signing slot.
type SignatureBox struct {
	Label      string
	SignerName string
	Date       string
}

// SignatureRow draws its boxes side by side as one block, so the cursor
// advances once for the whole row.
type SignatureRow struct {
	Boxes []SignatureBox
}

func (SignatureRow) Kind() Kind { return KindSignature }

func (r SignatureRow) Measure(ctx *Context) (*Box, error) {
	th := ctx.Theme
	n := len(r.Boxes)
	if n == 0 {
		return atomicBox(0, func(Surface, float64, float64) {})
	}
	boxW := (ctx.Width - float64(n-1)*th.SignatureGap) / float64(n)
	pad := th.CellPadding * 1.5
	innerW := boxW - 2*pad
	if innerW <= 0 {
		return nil, fmt.Errorf("%w: %d signature boxes", ErrColumnOverflow, n)
	}

	type slot struct {
		label, name, date, sign textLines
	}
	slots := make([]slot, n)
	height := th.SignatureHeight
	for i, b := range r.Boxes {
		sl := slot{
			label: wrapLines(ctx, b.Label, th.Label, th.Text, innerW, AlignLeft),
			name:  wrapLines(ctx, "Nom : "+b.SignerName, th.Body, th.Text, innerW, AlignLeft),
			date:  wrapLines(ctx, "Date : "+b.Date, th.Body, th.Text, innerW, AlignLeft),
			sign:  wrapLines(ctx, "Signature :", th.Note, th.Muted, innerW, AlignLeft),
		}
		slots[i] = sl
		need := 2*pad + sl.label.height() + sl.name.height() + sl.date.height() + sl.sign.height() + 3
		height = max(height, need)
	}

	return atomicBox(height, func(s Surface, x, y float64) {
		for i, sl := range slots {
			bx := x + float64(i)*(boxW+th.SignatureGap)
			s.DrawRect(Rect{X: bx, Y: y, W: boxW, H: height, Paint: stroke(th.Border, th.BorderWidth), Role: RoleSignature, Group: r.Boxes[i].Label})
			ty := y + pad
			sl.label.draw(s, bx+pad, ty, RoleSignature, r.Boxes[i].Label)
			ty += sl.label.height() + 1
			sl.name.draw(s, bx+pad, ty, RoleText, r.Boxes[i].Label)
			ty += sl.name.height()
			sl.date.draw(s, bx+pad, ty, RoleText, r.Boxes[i].Label)
			ty += sl.date.height() + 2
			sl.sign.draw(s, bx+pad, ty, RoleText, r.Boxes[i].Label)
		}
	})
}

// Indicator is a coloured status dot followed by a label.
type Indicator struct {
	Label string
	Color Color
}

func (Indicator) Kind() Kind { return KindIndicator }

func (in Indicator) Measure(ctx *Context) (*Box, error) {
	th := ctx.Theme
	d := th.CheckboxSize
	label := wrapLines(ctx, in.Label, th.Strong, th.Text, ctx.Width-d-th.CheckboxGap, AlignLeft)
	height := max(d, label.height())
	return atomicBox(height, func(s Surface, x, y float64) {
		s.DrawCircle(Circle{X: x + d/2, Y: y + label.lh/2, R: d / 2, Paint: fill(in.Color), Role: RoleBadge})
		label.draw(s, x+d+th.CheckboxGap, y, RoleText, "")
	})
}

// Spacer reserves vertical space.
type Spacer struct {
	Height float64
}

func (Spacer) Kind() Kind { return KindSpacer }

func (sp Spacer) Measure(*Context) (*Box, error) {
	if math.IsNaN(sp.Height) || sp.Height < 0 {
		return nil, fmt.Errorf("%w: spacer %v", ErrInvalidHeight, sp.Height)
	}
	return atomicBox(sp.Height, func(Surface, float64, float64) {})
}
