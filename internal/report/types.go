package report

import (
	"cmp"
	"slices"
)

// AdverseEvent is the declaration form of an adverse event observed at
// the counter or reported by a patient.
type AdverseEvent struct {
	ID                 string      `json:"id"`
	DeclaredOn         Date        `json:"declared_on"`
	Notifier           Person      `json:"notifier"`
	OccurredOn         Date        `json:"occurred_on"`
	Place              string      `json:"place"`
	Description        string      `json:"description"`
	PatientInvolved    bool        `json:"patient_involved"`
	PatientInitials    string      `json:"patient_initials"`
	Product            string      `json:"product"`
	Lot                string      `json:"lot"`
	EventTypes         []string    `json:"event_types"`
	Severity           []string    `json:"severity"`
	ImmediateActions   string      `json:"immediate_actions"`
	Analysis           string      `json:"analysis"`
	CorrectiveActions  []Action    `json:"corrective_actions"`
	ClassificationCode string      `json:"classification_code"`
	Signatures         []Signature `json:"signatures"`
}

func (*AdverseEvent) Kind() Kind          { return KindAdverseEvent }
func (e *AdverseEvent) Reference() string { return e.ID }

type PrescriptionEntry struct {
	Number      string `json:"number"`
	Date        Date   `json:"date"`
	Patient     string `json:"patient"`
	Prescriber  string `json:"prescriber"`
	Medication  string `json:"medication"`
	Quantity    string `json:"quantity"`
	DispensedBy string `json:"dispensed_by"`
	Controlled  bool   `json:"controlled"`
}

// PrescriptionRegister is the dispensing register for one trimester.
type PrescriptionRegister struct {
	Pharmacy  string              `json:"pharmacy"`
	Trimester Trimester           `json:"trimester"`
	Entries   []PrescriptionEntry `json:"entries"`
}

func (*PrescriptionRegister) Kind() Kind { return KindPrescriptionRegister }

func (r *PrescriptionRegister) Reference() string {
	return r.Trimester.Code()
}

// Slice returns the entries dated inside the trimester, oldest first.
// Entries of the same day keep their register number order.
func (r *PrescriptionRegister) Slice() []PrescriptionEntry {
	var out []PrescriptionEntry
	for _, e := range r.Entries {
		if r.Trimester.Contains(e.Date.Time) {
			out = append(out, e)
		}
	}
	slices.SortStableFunc(out, func(a, b PrescriptionEntry) int {
		if c := a.Date.Compare(b.Date.Time); c != 0 {
			return c
		}
		return cmp.Compare(a.Number, b.Number)
	})
	return out
}

type ProcedureStep struct {
	Number      int    `json:"number"`
	Description string `json:"description"`
	Owner       string `json:"owner"`
	Documents   string `json:"documents"`
}

// Procedure is a written operating procedure of the quality system.
type Procedure struct {
	Code               string          `json:"code"`
	Title              string          `json:"title"`
	Version            string          `json:"version"`
	EffectiveOn        Date            `json:"effective_on"`
	Objective          string          `json:"objective"`
	Scope              string          `json:"scope"`
	Responsibilities   string          `json:"responsibilities"`
	Steps              []ProcedureStep `json:"steps"`
	References         []string        `json:"references"`
	ClassificationCode string          `json:"classification_code"`
	Signatures         []Signature     `json:"signatures"`
}

func (*Procedure) Kind() Kind { return KindProcedure }

func (p *Procedure) Reference() string {
	if p.Version == "" {
		return p.Code
	}
	return p.Code + "-v" + p.Version
}

// Process is one entry of the process map.
type Process struct {
	Code     string   `json:"code"`
	Name     string   `json:"name"`
	Category string   `json:"category"`
	Pilot    string   `json:"pilot"`
	KPIs     []string `json:"kpis"`
}

// ProcessMap is the catalogue of the pharmacy's processes.
type ProcessMap struct {
	Pharmacy  string    `json:"pharmacy"`
	EditedOn  Date      `json:"edited_on"`
	Processes []Process `json:"processes"`
}

func (*ProcessMap) Kind() Kind { return KindProcessMap }

func (m *ProcessMap) Reference() string {
	if m.EditedOn.IsZero() {
		return "cartographie"
	}
	return "cartographie-" + m.EditedOn.Format(dateLayout)
}

// ByCategory groups processes by category code, keeping input order.
func (m *ProcessMap) ByCategory() map[string][]Process {
	out := make(map[string][]Process)
	for _, p := range m.Processes {
		out[p.Category] = append(out[p.Category], p)
	}
	return out
}

type KPIResult struct {
	Code    string  `json:"code"`
	Value   float64 `json:"value"`
	Comment string  `json:"comment"`
}

// ProcessReview is the periodic review of one process against its KPIs.
type ProcessReview struct {
	ProcessCode string      `json:"process_code"`
	Period      Trimester   `json:"period"`
	Pilot       string      `json:"pilot"`
	ReviewedOn  Date        `json:"reviewed_on"`
	Results     []KPIResult `json:"results"`
	Strengths   string      `json:"strengths"`
	Weaknesses  string      `json:"weaknesses"`
	Decisions   []Action    `json:"decisions"`
	Signatures  []Signature `json:"signatures"`
}

func (*ProcessReview) Kind() Kind { return KindProcessReview }

func (r *ProcessReview) Reference() string {
	return r.ProcessCode + "-" + r.Period.Code()
}
