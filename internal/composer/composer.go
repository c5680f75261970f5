// Package composer turns report inputs into layout documents. Composers
// decide content and order only; pagination belongs to the layout engine.
package composer

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"qms-exporter/internal/layout"
	"qms-exporter/internal/reference"
	"qms-exporter/internal/report"

	"github.com/rickar/cal/v2"
)

var (
	ErrNoComposer      = errors.New("no composer registered")
	ErrPayloadMismatch = errors.New("payload does not match composer")
)

// Meta is supplied by the caller of a composition.
type Meta struct {
	GeneratedAt time.Time
	// Caption is printed in every page footer.
	Caption string
}

type Composer interface {
	Kind() report.Kind
	Compose(r report.Report, meta Meta) (*layout.Document, error)
}

// Registry maps each report kind to its composer.
type Registry struct {
	composers map[report.Kind]Composer
}

// New registers every built-in composer. Documents are validated against
// geom before they are returned.
func New(catalog reference.Catalog, geom layout.Geometry) *Registry {
	b := base{catalog: catalog, geom: geom, calendar: report.FrenchCalendar()}
	r := &Registry{composers: make(map[report.Kind]Composer)}
	r.Register(&adverseEvent{b})
	r.Register(&prescriptionRegister{b})
	r.Register(&procedure{b})
	r.Register(&processMap{b})
	r.Register(&processReview{b})
	return r
}

// Register adds or replaces the composer for c.Kind().
func (r *Registry) Register(c Composer) {
	r.composers[c.Kind()] = c
}

func (r *Registry) Get(kind report.Kind) (Composer, error) {
	c, ok := r.composers[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoComposer, kind)
	}
	return c, nil
}

// Compose dispatches rep to the composer of its kind.
func (r *Registry) Compose(rep report.Report, meta Meta) (*layout.Document, error) {
	if rep == nil {
		return nil, fmt.Errorf("compose: %w", ErrPayloadMismatch)
	}
	c, err := r.Get(rep.Kind())
	if err != nil {
		return nil, err
	}
	return c.Compose(rep, meta)
}

// base is shared by the built-in composers.
type base struct {
	catalog  reference.Catalog
	geom     layout.Geometry
	calendar *cal.BusinessCalendar
}

func (b base) newDocument(title, subject string, meta Meta) *layout.Document {
	return &layout.Document{
		Title:       title,
		Subject:     subject,
		Caption:     meta.Caption,
		GeneratedAt: meta.GeneratedAt,
	}
}

// finish validates doc so that misconfigured tables fail at compose time.
func (b base) finish(kind report.Kind, doc *layout.Document) (*layout.Document, error) {
	if err := doc.Validate(b.geom); err != nil {
		return nil, fmt.Errorf("compose %s: %w", kind, err)
	}
	return doc, nil
}

// heading is the untitled opening section with the document title.
func heading(title, subtitle string) layout.Section {
	blocks := []layout.Block{layout.Text{Content: strings.ToUpper(title), Style: layout.StyleTitle, Align: layout.AlignCenter}}
	if subtitle != "" {
		blocks = append(blocks, layout.Text{Content: subtitle, Style: layout.StyleSubtitle, Align: layout.AlignCenter})
	}
	return layout.Section{Blocks: blocks}
}

// classification returns the badge blocks for code, or nil when the code
// does not resolve.
func (b base) classification(code string) []layout.Block {
	if code == "" {
		return nil
	}
	cl, ok := b.catalog.Classification(code)
	if !ok {
		return nil
	}
	return []layout.Block{layout.Badge{Code: cl.Code, Caption: cl.ProcessLabel + " · " + cl.CategoryLabel}}
}

// paragraphs gives every non-blank line of free text its own block, so
// page breaks can fall between lines typed at the counter.
func paragraphs(text string, style layout.TextStyle) []layout.Block {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []layout.Block
	for _, p := range strings.Split(text, "\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, layout.Text{Content: p, Style: style})
		}
	}
	return out
}

// tableOrNote returns t, or a note when it has no rows.
func tableOrNote(t layout.Table, note string) layout.Block {
	if len(t.Rows) == 0 {
		return layout.Text{Content: note, Style: layout.StyleNote}
	}
	return t
}

func checkItems(fs report.FlagSet, ids []string) []layout.CheckItem {
	selected := fs.Selected(ids)
	items := make([]layout.CheckItem, len(fs))
	for i, f := range fs {
		items[i] = layout.CheckItem{ID: f.ID, Label: f.Label, Checked: selected[i]}
	}
	return items
}

// signatures fills one box per signature, or blank boxes for roles when
// none were given.
func signatures(sigs []report.Signature, roles ...string) layout.Block {
	var row layout.SignatureRow
	if len(sigs) == 0 {
		for _, role := range roles {
			row.Boxes = append(row.Boxes, layout.SignatureBox{Label: role})
		}
		return row
	}
	for _, s := range sigs {
		row.Boxes = append(row.Boxes, layout.SignatureBox{Label: s.Role, SignerName: s.Name, Date: s.SignedOn.String()})
	}
	return row
}

// orDash keeps empty form values visible on paper.
func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func joinNonEmpty(sep string, parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Filename is the download name of the rendered document.
func Filename(r report.Report) string {
	var prefix string
	ref := r.Reference()
	switch r.Kind() {
	case report.KindAdverseEvent:
		prefix = "fiche"
		if !strings.HasPrefix(ref, "EI-") {
			ref = "EI-" + ref
		}
	case report.KindPrescriptionRegister:
		prefix = "registre"
	case report.KindProcedure:
		prefix = "procedure"
	case report.KindProcessMap:
		prefix = "cartographie"
		ref = strings.TrimPrefix(strings.TrimPrefix(ref, prefix), "-")
	case report.KindProcessReview:
		prefix = "revue"
	default:
		prefix = string(r.Kind())
	}
	name := strings.Trim(unsafeName.ReplaceAllString(joinNonEmpty("-", prefix, ref), "-"), "-")
	if name == "" {
		name = string(r.Kind())
	}
	return name + ".pdf"
}
