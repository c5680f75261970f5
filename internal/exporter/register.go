package exporter

import "qms-exporter/internal/report"

var registerHeaders = []string{
	"N°", "Date", "Patient", "Prescripteur", "Médicament", "Quantité", "Délivré par", "Liste",
}

// RegisterRows flattens the register entries of the trimester for the
// tabular encoders. Dates stay time.Time so spreadsheets get real dates.
func RegisterRows(reg *report.PrescriptionRegister) ([]string, [][]any) {
	entries := reg.Slice()
	rows := make([][]any, len(entries))
	for i, e := range entries {
		rows[i] = []any{
			e.Number, e.Date.Time, e.Patient, e.Prescriber,
			e.Medication, e.Quantity, e.DispensedBy, e.Controlled,
		}
	}
	return registerHeaders, rows
}
