package layout

import (
	"bytes"
	"fmt"
	"io"
)

// headingGap separates a section band from its first block.
const headingGap = 2

// Engine turns Documents into paginated PDFs. It holds configuration only;
// every call gets its own measurer, cursor and page list, so one Engine can
// serve concurrent exports.
type Engine struct {
	geom        Geometry
	theme       Theme
	newMeasurer func() Measurer
	creator     string
}

type Option func(*Engine)

func WithGeometry(g Geometry) Option {
	return func(e *Engine) { e.geom = g }
}

func WithTheme(t Theme) Option {
	return func(e *Engine) { e.theme = t }
}

// WithMeasurer replaces the text metrics. The factory is called once per
// layout run.
func WithMeasurer(factory func() Measurer) Option {
	return func(e *Engine) { e.newMeasurer = factory }
}

// WithCreator sets the PDF creator metadata.
func WithCreator(name string) Option {
	return func(e *Engine) { e.creator = name }
}

func New(opts ...Option) *Engine {
	e := &Engine{
		geom:        A4(),
		theme:       DefaultTheme(),
		newMeasurer: func() Measurer { return NewPDFMeasurer() },
		creator:     "qms-exporter",
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Geometry() Geometry { return e.geom }
func (e *Engine) Theme() Theme       { return e.theme }

// Result is a laid-out document: one display list per page.
type Result struct {
	Pages    []*Page
	Geometry Geometry
}

func (r *Result) PageCount() int { return len(r.Pages) }

// Layout runs both layout phases and the footer pass. A document without
// sections yields a single page.
func (e *Engine) Layout(doc *Document) (*Result, error) {
	if doc == nil {
		doc = &Document{}
	}
	if err := doc.Validate(e.geom); err != nil {
		return nil, err
	}
	r := &run{
		ctx: &Context{Measurer: e.newMeasurer(), Theme: e.theme, Width: e.geom.ContentWidth(), PageHeight: e.geom.UsableHeight()},
		pg:  newPager(e.geom),
	}
	c := NewCursor(e.geom)
	for i, sec := range doc.Sections {
		var err error
		if c, err = r.section(c, sec); err != nil {
			return nil, wrapErr(fmt.Sprintf("section %d %q", i, sec.Title), err)
		}
	}
	Finisher{Geometry: e.geom, Theme: e.theme, Measurer: r.ctx.Measurer, Caption: doc.Caption}.Stamp(r.pg.pages)
	return &Result{Pages: r.pg.pages, Geometry: e.geom}, nil
}

// Render lays the document out and returns the PDF bytes.
func (e *Engine) Render(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := e.Write(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RenderPages is Render that also reports how many pages were produced.
func (e *Engine) RenderPages(doc *Document) ([]byte, int, error) {
	if doc == nil {
		doc = &Document{}
	}
	res, err := e.Layout(doc)
	if err != nil {
		return nil, 0, err
	}
	var buf bytes.Buffer
	if err := writePDF(&buf, doc, res, e.creator); err != nil {
		return nil, 0, err
	}
	return buf.Bytes(), res.PageCount(), nil
}

// Write lays the document out and streams the PDF to w.
func (e *Engine) Write(w io.Writer, doc *Document) error {
	if doc == nil {
		doc = &Document{}
	}
	res, err := e.Layout(doc)
	if err != nil {
		return err
	}
	return writePDF(w, doc, res, e.creator)
}

// run is the state of one Layout call.
type run struct {
	ctx *Context
	pg  *pager
}

func (r *run) section(c Cursor, sec Section) (Cursor, error) {
	boxes := make([]*Box, 0, len(sec.Blocks))
	for i, b := range sec.Blocks {
		box, err := b.Measure(r.ctx)
		if err != nil {
			return c, fmt.Errorf("%s block %d: %w", b.Kind(), i, err)
		}
		if box.Height > 0 {
			boxes = append(boxes, box)
		}
	}
	if len(boxes) == 0 {
		return c, nil
	}

	th := r.ctx.Theme
	c = gap(c, th.SectionGap)
	var err error
	if sec.Title != "" {
		head, herr := SectionHeader{Title: sec.Title}.Measure(r.ctx)
		if herr != nil {
			return c, herr
		}
		// The heading only goes where the lead of the first block fits too.
		if c, _, err = r.pg.ensureFits(c, head.Height+headingGap+boxes[0].Lead); err != nil {
			return c, err
		}
		if c, err = head.place(c, r.pg); err != nil {
			return c, err
		}
		c = gap(c, headingGap)
		// The break decision for the lead was taken with the heading. A lead
		// taller than a page overflows here rather than leaving the heading
		// alone on its page.
		r.pg.keep = true
	}
	for i, box := range boxes {
		if i > 0 {
			c = gap(c, th.BlockGap)
		}
		c, err = box.place(c, r.pg)
		r.pg.keep = false
		if err != nil {
			return c, err
		}
	}
	return c, nil
}
