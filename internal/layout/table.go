package layout

import (
	"fmt"
	"math"
)

// Column is a fixed-width table column. Widths are chosen by the caller;
// the table never auto-fits.
type Column struct {
	Header string
	Width  float64
	Align  Align
}

// Table is the only block that may span pages. Rows are kept whole and the
// header row is repeated at the top of every continuation page.
type Table struct {
	ID      string
	Columns []Column
	Rows    [][]string
	Striped bool
}

// BoolCell renders a flag as a table cell.
func BoolCell(b bool) string {
	if b {
		return "Oui"
	}
	return "Non"
}

func (Table) Kind() Kind { return KindTable }

// Width is the sum of the column widths.
func (t Table) Width() float64 {
	var w float64
	for _, c := range t.Columns {
		w += c.Width
	}
	return w
}

// Validate checks the column configuration against the usable width.
// Rows shorter than the column count are accepted and padded with
// empty cells.
func (t Table) Validate(contentWidth float64) error {
	if len(t.Columns) == 0 {
		return fmt.Errorf("%w: table %q has no columns", ErrInvalidColumns, t.ID)
	}
	for i, c := range t.Columns {
		if !(c.Width > 0) || math.IsInf(c.Width, 0) {
			return fmt.Errorf("%w: table %q column %d width %v", ErrInvalidColumns, t.ID, i, c.Width)
		}
	}
	if w := t.Width(); w > contentWidth+epsilon {
		return fmt.Errorf("%w: table %q needs %.2fmm, page offers %.2fmm", ErrColumnOverflow, t.ID, w, contentWidth)
	}
	for i, row := range t.Rows {
		if len(row) > len(t.Columns) {
			return fmt.Errorf("%w: table %q row %d has %d cells for %d columns", ErrRowShape, t.ID, i, len(row), len(t.Columns))
		}
	}
	return nil
}

type measuredRow struct {
	cells  []textLines
	height float64
}

type measuredTable struct {
	table  Table
	theme  Theme
	header measuredRow
	rows   []measuredRow
}

// Measure wraps every cell against its column width once. The wrapped
// lines are kept and drawn as is, so measured and drawn heights agree.
func (t Table) Measure(ctx *Context) (*Box, error) {
	if err := t.Validate(ctx.Width); err != nil {
		return nil, err
	}
	th := ctx.Theme
	pad := th.CellPadding
	for i, c := range t.Columns {
		if c.Width <= 2*pad {
			return nil, fmt.Errorf("%w: table %q column %d narrower than its padding", ErrInvalidColumns, t.ID, i)
		}
	}

	mt := &measuredTable{table: t, theme: th}
	headers := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		headers[i] = c.Header
	}
	mt.header = mt.measureRow(ctx, headers, th.Header, th.HeaderText, true)
	mt.rows = make([]measuredRow, len(t.Rows))
	for i, row := range t.Rows {
		mt.rows[i] = mt.measureRow(ctx, row, th.Cell, th.Text, false)
	}

	if len(mt.rows) == 0 {
		return &Box{place: func(c Cursor, _ *pager) (Cursor, error) { return c, nil }}, nil
	}
	b := &Box{
		Height: mt.header.height,
		Lead:   mt.header.height + mt.rows[0].height,
		place:  mt.place,
	}
	for _, r := range mt.rows {
		b.Height += r.height
	}
	if err := checkHeight(b.Height); err != nil {
		return nil, err
	}
	return b, nil
}

func (mt *measuredTable) measureRow(ctx *Context, values []string, font Font, color Color, header bool) measuredRow {
	pad := mt.theme.CellPadding
	r := measuredRow{cells: make([]textLines, len(mt.table.Columns))}
	var tallest float64
	for i, col := range mt.table.Columns {
		var v string
		if i < len(values) {
			v = values[i]
		}
		align := col.Align
		if header {
			align = AlignCenter
		}
		r.cells[i] = wrapLines(ctx, v, font, color, col.Width-2*pad, align)
		tallest = max(tallest, r.cells[i].height())
	}
	r.height = tallest + 2*pad
	return r
}

// place is the draw phase. Each row is checked against the space left
// before it is drawn; the first row also needs room for the header.
// A row taller than a whole page is drawn on a fresh page and overflows
// its bottom margin.
func (mt *measuredTable) place(c Cursor, p *pager) (Cursor, error) {
	for i, row := range mt.rows {
		need := row.height
		if i == 0 {
			need += mt.header.height
		}
		next, broke, err := p.ensureFits(c, need)
		if err != nil {
			return c, err
		}
		c = next
		if i == 0 || broke {
			mt.drawRow(p.surface(c), c, mt.header, RoleTableHeader, strokeFill(mt.theme.Border, mt.theme.HeaderFill, mt.theme.BorderWidth))
			if c, err = c.Advance(mt.header.height); err != nil {
				return c, err
			}
		}
		paint := stroke(mt.theme.Border, mt.theme.BorderWidth)
		if mt.table.Striped && i%2 == 1 {
			paint = strokeFill(mt.theme.Border, mt.theme.StripeFill, mt.theme.BorderWidth)
		}
		mt.drawRow(p.surface(c), c, row, RoleTableCell, paint)
		if c, err = c.Advance(row.height); err != nil {
			return c, err
		}
	}
	return c, nil
}

// drawRow gives every cell its own bordered rectangle so a partial last
// row still closes the grid.
func (mt *measuredTable) drawRow(s Surface, c Cursor, r measuredRow, role Role, paint Paint) {
	pad := mt.theme.CellPadding
	x := c.geom.Margins.Left
	for i, col := range mt.table.Columns {
		s.DrawRect(Rect{X: x, Y: c.Y, W: col.Width, H: r.height, Paint: paint, Role: role, Group: mt.table.ID})
		r.cells[i].draw(s, x+pad, c.Y+pad, role, mt.table.ID)
		x += col.Width
	}
}
