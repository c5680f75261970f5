package composer

import (
	"fmt"
	"strconv"

	"qms-exporter/internal/layout"
	"qms-exporter/internal/report"
)

var registerColumns = []layout.Column{
	{Header: "N°", Width: 18, Align: layout.AlignCenter},
	{Header: "Date", Width: 20, Align: layout.AlignCenter},
	{Header: "Patient", Width: 30},
	{Header: "Prescripteur", Width: 30},
	{Header: "Médicament", Width: 42},
	{Header: "Qté", Width: 12, Align: layout.AlignRight},
	{Header: "Délivré par", Width: 16},
	{Header: "Liste", Width: 12, Align: layout.AlignCenter},
}

type prescriptionRegister struct{ base }

func (*prescriptionRegister) Kind() report.Kind { return report.KindPrescriptionRegister }

func (c *prescriptionRegister) Compose(r report.Report, meta Meta) (*layout.Document, error) {
	reg, ok := r.(*report.PrescriptionRegister)
	if !ok {
		return nil, fmt.Errorf("%w: %T for %s", ErrPayloadMismatch, r, c.Kind())
	}
	if err := reg.Trimester.Validate(); err != nil {
		return nil, fmt.Errorf("compose %s: %w", c.Kind(), err)
	}

	entries := reg.Slice()
	rows := make([][]string, 0, len(entries))
	controlled := 0
	for _, e := range entries {
		if e.Controlled {
			controlled++
		}
		rows = append(rows, []string{
			e.Number, e.Date.String(), e.Patient, e.Prescriber,
			e.Medication, e.Quantity, e.DispensedBy, layout.BoolCell(e.Controlled),
		})
	}

	start, end := reg.Trimester.Bounds()
	closing := report.Date{Time: reg.Trimester.ClosingDay(c.calendar)}

	doc := c.newDocument("Registre des ordonnances", reg.Trimester.Label(), meta)
	doc.Author = reg.Pharmacy
	doc.Sections = append(doc.Sections, heading(doc.Title, joinNonEmpty(" · ", reg.Pharmacy, reg.Trimester.Label())))
	doc.AddSection("Période", layout.Fields{Items: []layout.Field{
		{Label: "Officine", Value: orDash(reg.Pharmacy)},
		{Label: "Trimestre", Value: reg.Trimester.Label()},
		{Label: "Du", Value: report.Date{Time: start}.String()},
		{Label: "Au", Value: report.Date{Time: end.AddDate(0, 0, -1)}.String()},
		{Label: "Ordonnances enregistrées", Value: strconv.Itoa(len(entries))},
		{Label: "Dont substances contrôlées", Value: strconv.Itoa(controlled)},
	}})
	doc.AddSection("Enregistrements", tableOrNote(layout.Table{
		ID:      "ordonnancier",
		Columns: registerColumns,
		Rows:    rows,
		Striped: true,
	}, "Aucune ordonnance enregistrée sur la période."))
	doc.AddSection("Clôture",
		layout.Text{Content: fmt.Sprintf("Registre clos le %s, dernier jour ouvré du trimestre.", closing)},
		signatures(nil, "Pharmacien titulaire"),
	)

	return c.finish(c.Kind(), doc)
}
