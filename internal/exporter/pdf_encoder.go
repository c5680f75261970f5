package exporter

import (
	"errors"
	"io"
	"strings"

	"qms-exporter/internal/layout"
)

// PDFEncoder implements RowEncoder on top of the layout engine. Rows are
// collected into a single table and rendered at Flush, so long exports get
// repeated column headers and page numbers.
type PDFEncoder struct {
	engine  *layout.Engine
	w       io.Writer
	title   string
	caption string
	table   layout.Table
	pages   int
	flushed bool
	err     error
}

// NewPDFEncoder creates a new PDF encoder. A nil engine uses the default A4 one.
func NewPDFEncoder(w io.Writer, engine *layout.Engine, title string) *PDFEncoder {
	if engine == nil {
		engine = layout.New()
	}
	return &PDFEncoder{engine: engine, w: w, title: title, table: layout.Table{ID: "export", Striped: true}}
}

// SetCaption sets the footer caption printed on every page.
func (e *PDFEncoder) SetCaption(caption string) {
	e.caption = caption
}

// WriteHeader splits the content width evenly between the columns.
func (e *PDFEncoder) WriteHeader(columns []string) error {
	if e.err != nil {
		return e.err
	}
	if len(columns) == 0 {
		e.err = errors.New("pdf export needs at least one column")
		return e.err
	}
	width := e.engine.Geometry().ContentWidth() / float64(len(columns))
	e.table.Columns = make([]layout.Column, len(columns))
	for i, col := range columns {
		e.table.Columns[i] = layout.Column{Header: col, Width: width}
	}
	return nil
}

// WriteRow buffers a single row of data.
func (e *PDFEncoder) WriteRow(values []any) error {
	if e.err != nil {
		return e.err
	}
	row := make([]string, len(values))
	for i, v := range values {
		// The formula guard only matters for spreadsheets.
		row[i] = strings.TrimPrefix(toString(v), "'")
	}
	e.table.Rows = append(e.table.Rows, row)
	return nil
}

// Flush lays the table out and writes the PDF. Later calls are no-ops.
func (e *PDFEncoder) Flush() error {
	if e.err != nil || e.flushed {
		return e.err
	}
	e.flushed = true

	doc := &layout.Document{Title: e.title, Caption: e.caption}
	if len(e.table.Rows) == 0 {
		doc.AddSection(e.title, layout.Text{Content: "Aucune donnée.", Style: layout.StyleNote})
	} else {
		doc.AddSection(e.title, e.table)
	}
	data, pages, err := e.engine.RenderPages(doc)
	if err != nil {
		e.err = err
		return err
	}
	e.pages = pages
	if _, err := e.w.Write(data); err != nil {
		e.err = err
		return err
	}
	return nil
}

// Pages returns the page count of the flushed document.
func (e *PDFEncoder) Pages() int {
	return e.pages
}

// Error returns any stored error.
func (e *PDFEncoder) Error() error {
	return e.err
}

// Close flushes and satisfies io.Closer.
func (e *PDFEncoder) Close() error {
	return e.Flush()
}
