package composer

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"qms-exporter/internal/layout"
	"qms-exporter/internal/reference"
	"qms-exporter/internal/report"
)

var processColumns = []layout.Column{
	{Header: "Code", Width: 20, Align: layout.AlignCenter},
	{Header: "Processus", Width: 70},
	{Header: "Pilote", Width: 40},
	{Header: "Indicateurs", Width: 50},
}

type processMap struct{ base }

func (*processMap) Kind() report.Kind { return report.KindProcessMap }

func (c *processMap) Compose(r report.Report, meta Meta) (*layout.Document, error) {
	m, ok := r.(*report.ProcessMap)
	if !ok {
		return nil, fmt.Errorf("%w: %T for %s", ErrPayloadMismatch, r, c.Kind())
	}

	subtitle := m.Pharmacy
	if !m.EditedOn.IsZero() {
		subtitle = joinNonEmpty(" · ", m.Pharmacy, "Édition du "+m.EditedOn.String())
	}
	doc := c.newDocument("Cartographie des processus", m.Reference(), meta)
	doc.Author = m.Pharmacy
	doc.Sections = append(doc.Sections, heading(doc.Title, subtitle))

	if len(m.Processes) == 0 {
		doc.AddSection("Processus", layout.Text{Content: "Aucun processus cartographié.", Style: layout.StyleNote})
		return c.finish(c.Kind(), doc)
	}

	groups := m.ByCategory()
	for _, code := range c.categoryOrder(groups) {
		title := "Catégorie " + code
		if cat, ok := c.catalog.Category(code); ok {
			title = cat.Label
		}
		rows := make([][]string, 0, len(groups[code]))
		for _, p := range groups[code] {
			rows = append(rows, []string{p.Code, p.Name, p.Pilot, c.kpiLabels(p.KPIs)})
		}
		doc.AddSection(title, layout.Table{
			ID:      "processus-" + code,
			Columns: processColumns,
			Rows:    rows,
			Striped: true,
		})
	}
	return c.finish(c.Kind(), doc)
}

// categoryOrder lists catalog categories first, then unknown ones sorted.
func (c *processMap) categoryOrder(groups map[string][]report.Process) []string {
	var order []string
	seen := make(map[string]bool)
	for _, cat := range c.catalog.Categories() {
		if _, ok := groups[cat.Code]; ok {
			order = append(order, cat.Code)
			seen[cat.Code] = true
		}
	}
	var rest []string
	for code := range groups {
		if !seen[code] {
			rest = append(rest, code)
		}
	}
	slices.Sort(rest)
	return append(order, rest...)
}

func (c *processMap) kpiLabels(codes []string) string {
	labels := make([]string, 0, len(codes))
	for _, code := range codes {
		if k, ok := c.catalog.KPI(code); ok {
			labels = append(labels, k.Label)
		} else {
			labels = append(labels, code)
		}
	}
	return strings.Join(labels, "\n")
}

var reviewColumns = []layout.Column{
	{Header: "Code", Width: 22},
	{Header: "Indicateur", Width: 58},
	{Header: "Cible", Width: 22, Align: layout.AlignRight},
	{Header: "Résultat", Width: 22, Align: layout.AlignRight},
	{Header: "Statut", Width: 20, Align: layout.AlignCenter},
	{Header: "Commentaire", Width: 36},
}

var decisionColumns = []layout.Column{
	{Header: "Décision", Width: 90},
	{Header: "Responsable", Width: 40},
	{Header: "Échéance", Width: 25, Align: layout.AlignCenter},
	{Header: "Réalisée", Width: 25, Align: layout.AlignCenter},
}

type processReview struct{ base }

func (*processReview) Kind() report.Kind { return report.KindProcessReview }

func (c *processReview) Compose(r report.Report, meta Meta) (*layout.Document, error) {
	rv, ok := r.(*report.ProcessReview)
	if !ok {
		return nil, fmt.Errorf("%w: %T for %s", ErrPayloadMismatch, r, c.Kind())
	}
	if err := rv.Period.Validate(); err != nil {
		return nil, fmt.Errorf("compose %s: %w", c.Kind(), err)
	}

	name, category := rv.ProcessCode, ""
	if p, ok := c.catalog.Process(rv.ProcessCode); ok {
		name = p.Name
		if cat, ok := c.catalog.Category(p.Category); ok {
			category = cat.Label
		}
	}

	doc := c.newDocument("Revue de processus", rv.Reference(), meta)
	doc.Sections = append(doc.Sections, heading(doc.Title, joinNonEmpty(" · ", name, rv.Period.Label())))
	doc.AddSection("Classification", c.classification(rv.ProcessCode)...)
	doc.AddSection("Identification", layout.Fields{Items: []layout.Field{
		{Label: "Processus", Value: joinNonEmpty(" ", rv.ProcessCode, name)},
		{Label: "Catégorie", Value: orDash(category)},
		{Label: "Pilote", Value: orDash(rv.Pilot)},
		{Label: "Période", Value: rv.Period.Label()},
		{Label: "Date de revue", Value: orDash(rv.ReviewedOn.String())},
	}})

	rows, met, rated := c.resultRows(rv.Results)
	kpis := []layout.Block{tableOrNote(layout.Table{
		ID:      "indicateurs",
		Columns: reviewColumns,
		Rows:    rows,
		Striped: true,
	}, "Aucun indicateur mesuré sur la période.")}
	if rated > 0 {
		kpis = append(kpis, layout.Indicator{
			Label: fmt.Sprintf("%d/%d indicateurs atteints", met, rated),
			Color: statusColor(met, rated),
		})
	}
	doc.AddSection("Indicateurs", kpis...)
	doc.AddSection("Points forts", paragraphs(rv.Strengths, layout.StyleBody)...)
	doc.AddSection("Points à améliorer", paragraphs(rv.Weaknesses, layout.StyleBody)...)
	doc.AddSection("Décisions", tableOrNote(layout.Table{
		ID:      "decisions",
		Columns: decisionColumns,
		Rows:    actionRows(rv.Decisions),
		Striped: true,
	}, "Aucune décision prise."))
	doc.AddSection("Validation", signatures(rv.Signatures, "Pilote du processus", "Responsable qualité"))

	return c.finish(c.Kind(), doc)
}

// resultRows resolves each result against the catalog. Results whose KPI
// is unknown are listed but not rated.
func (c *processReview) resultRows(results []report.KPIResult) (rows [][]string, met, rated int) {
	for _, res := range results {
		k, ok := c.catalog.KPI(res.Code)
		if !ok {
			rows = append(rows, []string{res.Code, "", "", formatValue(res.Value, ""), "n.c.", res.Comment})
			continue
		}
		status := "Non atteint"
		rated++
		if k.Met(res.Value) {
			status = "Atteint"
			met++
		}
		rows = append(rows, []string{k.Code, k.Label, targetLabel(k), formatValue(res.Value, k.Unit), status, res.Comment})
	}
	return rows, met, rated
}

func statusColor(met, rated int) layout.Color {
	switch {
	case met == rated:
		return layout.Green
	case met == 0:
		return layout.Crimson
	default:
		return layout.Amber
	}
}

func targetLabel(k reference.KPI) string {
	op := "max. "
	if k.HigherIsBetter {
		op = "min. "
	}
	return op + formatValue(k.Target, k.Unit)
}

// formatValue prints a number the French way, with a decimal comma.
func formatValue(v float64, unit string) string {
	s := strings.Replace(strconv.FormatFloat(v, 'f', -1, 64), ".", ",", 1)
	switch unit {
	case "", "nb":
		return s
	case "%":
		return s + " %"
	default:
		return s + " " + unit
	}
}
