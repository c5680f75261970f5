package exporter

import (
	"bytes"
	"fmt"

	"qms-exporter/internal/composer"
	"qms-exporter/internal/layout"
	"qms-exporter/internal/report"
)

// Renderer turns decoded reports into artifacts. PDF goes through the
// composer registry; the tabular formats are only offered for the
// prescription register.
type Renderer struct {
	registry *composer.Registry
	engine   *layout.Engine
}

func NewRenderer(registry *composer.Registry, engine *layout.Engine) *Renderer {
	return &Renderer{registry: registry, engine: engine}
}

// Render builds r in format. An empty format means PDF.
func (rd *Renderer) Render(r report.Report, format string, meta composer.Meta) (*Artifact, error) {
	if format == "" {
		format = FormatPDF
	}
	if r == nil {
		return nil, fmt.Errorf("render: %w", composer.ErrPayloadMismatch)
	}
	name := withExt(composer.Filename(r), format)

	if format == FormatPDF {
		doc, err := rd.registry.Compose(r, meta)
		if err != nil {
			return nil, err
		}
		data, pages, err := rd.engine.RenderPages(doc)
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", r.Kind(), err)
		}
		return &Artifact{Filename: name, ContentType: ContentType(format), Data: data, Pages: pages}, nil
	}

	reg, ok := r.(*report.PrescriptionRegister)
	if !ok {
		return nil, fmt.Errorf("%w: %s for %s", ErrUnsupportedFormat, format, r.Kind())
	}
	var buf bytes.Buffer
	enc, err := NewEncoder(format, &buf, rd.engine, "Registre des ordonnances")
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	columns, rows := RegisterRows(reg)
	if err := EncodeRows(enc, columns, rows); err != nil {
		return nil, fmt.Errorf("render %s as %s: %w", r.Kind(), format, err)
	}
	return &Artifact{Filename: name, ContentType: ContentType(format), Data: buf.Bytes()}, nil
}
