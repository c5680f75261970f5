package layout

import (
	"fmt"
	"time"
)

// Document is the ordered content of one export. It is built by a
// composer, laid out once and then discarded.
type Document struct {
	Title   string
	Subject string
	Author  string
	// Caption is repeated in every page footer.
	Caption string
	// GeneratedAt is written into the PDF metadata. A zero value gives a
	// fixed date so output stays reproducible.
	GeneratedAt time.Time
	Sections    []Section
}

// Section is a titled group of blocks. A section without blocks is not
// rendered at all, heading included.
type Section struct {
	Title  string
	Blocks []Block
}

// validator is implemented by blocks whose configuration can be checked
// before any measuring happens.
type validator interface {
	Validate(contentWidth float64) error
}

func (sp Spacer) Validate(float64) error {
	return checkHeight(sp.Height)
}

// Validate fails fast on configurations that cannot be laid out, such as
// table columns wider than the page.
func (d *Document) Validate(g Geometry) error {
	if err := g.Validate(); err != nil {
		return err
	}
	for si, s := range d.Sections {
		for bi, b := range s.Blocks {
			op := fmt.Sprintf("section %d %q block %d", si, s.Title, bi)
			if b == nil {
				return &LayoutError{Op: op, Err: ErrUnknownBlock}
			}
			v, ok := b.(validator)
			if !ok {
				continue
			}
			if err := v.Validate(g.ContentWidth()); err != nil {
				return &LayoutError{Op: op, Err: err}
			}
		}
	}
	return nil
}

// AddSection appends a section and returns the document for chaining.
func (d *Document) AddSection(title string, blocks ...Block) *Document {
	d.Sections = append(d.Sections, Section{Title: title, Blocks: blocks})
	return d
}
