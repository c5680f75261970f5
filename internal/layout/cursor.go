package layout

// Cursor is the write position of one layout run. It is a value: every
// operation returns the moved cursor and leaves the receiver untouched, so
// two runs can never observe each other's position.
type Cursor struct {
	PageIndex int
	Y         float64
	geom      Geometry
}

func NewCursor(g Geometry) Cursor {
	return Cursor{Y: g.ContentTop(), geom: g}
}

func (c Cursor) Geometry() Geometry { return c.geom }

// SpaceRemaining is the vertical room left above the bottom margin.
func (c Cursor) SpaceRemaining() float64 {
	return c.geom.ContentBottom() - c.Y
}

func (c Cursor) Fits(h float64) bool {
	return h <= c.SpaceRemaining()+epsilon
}

// AtTop reports whether nothing has been placed on the current page yet.
func (c Cursor) AtTop() bool {
	return c.Y <= c.geom.ContentTop()+epsilon
}

// Advance moves the cursor down by h.
func (c Cursor) Advance(h float64) (Cursor, error) {
	if err := checkHeight(h); err != nil {
		return c, err
	}
	c.Y += h
	return c, nil
}

// NextPage moves to the top of the following page.
func (c Cursor) NextPage() Cursor {
	c.PageIndex++
	c.Y = c.geom.ContentTop()
	return c
}

// pager owns the pages of one run. It is created per call and never
// escapes the run except through the returned Result.
type pager struct {
	geom  Geometry
	pages []*Page
	// keep suppresses the next break so a block stays under the heading
	// that was just placed for it.
	keep bool
}

func newPager(g Geometry) *pager {
	return &pager{geom: g, pages: []*Page{newPage(1, g)}}
}

// surface returns the page the cursor points at, opening it if needed.
func (p *pager) surface(c Cursor) *Page {
	for len(p.pages) <= c.PageIndex {
		p.pages = append(p.pages, newPage(len(p.pages)+1, p.geom))
	}
	return p.pages[c.PageIndex]
}

// ensureFits is the page-break policy: when h does not fit in the space
// left, the next page is opened before anything is drawn. A cursor already
// at the top of a page stays put; content taller than a page is drawn there
// and overflows.
func (p *pager) ensureFits(c Cursor, h float64) (Cursor, bool, error) {
	if err := checkHeight(h); err != nil {
		return c, false, err
	}
	if p.keep {
		p.keep = false
		return c, false, nil
	}
	if c.Fits(h) || c.AtTop() {
		return c, false, nil
	}
	next := c.NextPage()
	p.surface(next)
	return next, true, nil
}

// gap advances by h without ever pushing the cursor past the bottom
// margin, and is dropped at the top of a page.
func gap(c Cursor, h float64) Cursor {
	if c.AtTop() {
		return c
	}
	h = min(h, c.SpaceRemaining())
	if h <= 0 {
		return c
	}
	c.Y += h
	return c
}
