package composer

import (
	"fmt"

	"qms-exporter/internal/layout"
	"qms-exporter/internal/report"
)

var actionColumns = []layout.Column{
	{Header: "Action", Width: 80},
	{Header: "Responsable", Width: 40},
	{Header: "Échéance", Width: 30, Align: layout.AlignCenter},
	{Header: "Réalisée", Width: 30, Align: layout.AlignCenter},
}

func actionRows(actions []report.Action) [][]string {
	rows := make([][]string, 0, len(actions))
	for _, a := range actions {
		rows = append(rows, []string{a.Description, a.Owner, a.Due.String(), layout.BoolCell(a.Done)})
	}
	return rows
}

type adverseEvent struct{ base }

func (*adverseEvent) Kind() report.Kind { return report.KindAdverseEvent }

func (c *adverseEvent) Compose(r report.Report, meta Meta) (*layout.Document, error) {
	ev, ok := r.(*report.AdverseEvent)
	if !ok {
		return nil, fmt.Errorf("%w: %T for %s", ErrPayloadMismatch, r, c.Kind())
	}

	doc := c.newDocument("Fiche de déclaration d'événement indésirable", ev.ID, meta)
	doc.Sections = append(doc.Sections, heading(doc.Title,
		joinNonEmpty(" · ", "Réf. "+orDash(ev.ID), "déclarée le "+orDash(ev.DeclaredOn.String()))))
	doc.AddSection("Classification", c.classification(ev.ClassificationCode)...)

	doc.AddSection("Déclarant", layout.Fields{Items: []layout.Field{
		{Label: "Nom", Value: orDash(ev.Notifier.Name)},
		{Label: "Fonction", Value: orDash(ev.Notifier.Role)},
		{Label: "Téléphone", Value: orDash(ev.Notifier.Phone)},
		{Label: "Courriel", Value: orDash(ev.Notifier.Email)},
	}})

	patient := layout.BoolCell(ev.PatientInvolved)
	if ev.PatientInvolved && ev.PatientInitials != "" {
		patient += " (" + ev.PatientInitials + ")"
	}
	event := []layout.Block{layout.Fields{Items: []layout.Field{
		{Label: "Date de survenue", Value: orDash(ev.OccurredOn.String())},
		{Label: "Lieu", Value: orDash(ev.Place)},
		{Label: "Patient concerné", Value: patient},
		{Label: "Produit", Value: orDash(ev.Product)},
		{Label: "Lot", Value: orDash(ev.Lot)},
	}}}
	event = append(event, paragraphs(ev.Description, layout.StyleBody)...)
	doc.AddSection("Événement", event...)

	doc.AddSection("Type d'événement", layout.CheckboxGrid{Items: checkItems(report.EventTypeFlags, ev.EventTypes), Columns: 2})
	doc.AddSection("Gravité", layout.CheckboxGrid{Items: checkItems(report.SeverityFlags, ev.Severity), Columns: 3})
	doc.AddSection("Actions immédiates", paragraphs(ev.ImmediateActions, layout.StyleBody)...)
	doc.AddSection("Analyse des causes", paragraphs(ev.Analysis, layout.StyleBody)...)
	doc.AddSection("Actions correctives", tableOrNote(layout.Table{
		ID:      "actions-correctives",
		Columns: actionColumns,
		Rows:    actionRows(ev.CorrectiveActions),
		Striped: true,
	}, "Aucune action corrective engagée."))
	doc.AddSection("Validation", signatures(ev.Signatures, "Déclarant", "Responsable qualité", "Pharmacien titulaire"))

	return c.finish(c.Kind(), doc)
}
