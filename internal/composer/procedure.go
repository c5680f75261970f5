package composer

import (
	"fmt"
	"strconv"

	"qms-exporter/internal/layout"
	"qms-exporter/internal/report"
)

var stepColumns = []layout.Column{
	{Header: "N°", Width: 12, Align: layout.AlignCenter},
	{Header: "Étape", Width: 88},
	{Header: "Responsable", Width: 40},
	{Header: "Documents", Width: 40},
}

type procedure struct{ base }

func (*procedure) Kind() report.Kind { return report.KindProcedure }

func (c *procedure) Compose(r report.Report, meta Meta) (*layout.Document, error) {
	p, ok := r.(*report.Procedure)
	if !ok {
		return nil, fmt.Errorf("%w: %T for %s", ErrPayloadMismatch, r, c.Kind())
	}

	doc := c.newDocument(orDash(p.Title), p.Reference(), meta)
	doc.Sections = append(doc.Sections, heading(doc.Title, joinNonEmpty(" · ", p.Code, versionLabel(p.Version))))
	doc.AddSection("Classification", c.classification(p.ClassificationCode)...)
	doc.AddSection("Identification", layout.Fields{Items: []layout.Field{
		{Label: "Code", Value: orDash(p.Code)},
		{Label: "Version", Value: orDash(p.Version)},
		{Label: "Date d'application", Value: orDash(p.EffectiveOn.String())},
	}})
	doc.AddSection("Objet", paragraphs(p.Objective, layout.StyleBody)...)
	doc.AddSection("Domaine d'application", paragraphs(p.Scope, layout.StyleBody)...)
	doc.AddSection("Responsabilités", paragraphs(p.Responsibilities, layout.StyleBody)...)
	doc.AddSection("Déroulement", tableOrNote(layout.Table{
		ID:      "etapes",
		Columns: stepColumns,
		Rows:    c.stepRows(p),
		Striped: true,
	}, "Aucune étape décrite."))

	var refs []layout.Block
	for _, ref := range p.References {
		if ref != "" {
			refs = append(refs, layout.Text{Content: "• " + ref, Indent: 3})
		}
	}
	doc.AddSection("Documents de référence", refs...)
	doc.AddSection("Approbation", signatures(p.Signatures, "Rédigé par", "Vérifié par", "Approuvé par"))

	return c.finish(c.Kind(), doc)
}

// stepRows falls back to the catalog steps when the procedure lists none.
func (c *procedure) stepRows(p *report.Procedure) [][]string {
	if len(p.Steps) > 0 {
		rows := make([][]string, 0, len(p.Steps))
		for i, s := range p.Steps {
			n := s.Number
			if n == 0 {
				n = i + 1
			}
			rows = append(rows, []string{strconv.Itoa(n), s.Description, s.Owner, s.Documents})
		}
		return rows
	}
	defaults := c.catalog.DefaultSteps(p.Code)
	rows := make([][]string, 0, len(defaults))
	for i, d := range defaults {
		rows = append(rows, []string{strconv.Itoa(i + 1), d, "", ""})
	}
	return rows
}

func versionLabel(v string) string {
	if v == "" {
		return ""
	}
	return "Version " + v
}
