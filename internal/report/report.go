// Package report holds the structured inputs of the quality documents.
// Values arrive already validated by the forms that produced them.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

type Kind string

const (
	KindAdverseEvent         Kind = "adverse-event"
	KindPrescriptionRegister Kind = "prescription-register"
	KindProcedure            Kind = "procedure"
	KindProcessMap           Kind = "process-map"
	KindProcessReview        Kind = "process-review"
)

var ErrUnknownKind = errors.New("unknown report kind")

// Kinds lists every supported report in display order.
func Kinds() []Kind {
	return []Kind{KindAdverseEvent, KindPrescriptionRegister, KindProcedure, KindProcessMap, KindProcessReview}
}

func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds() {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Report is implemented by every input type.
type Report interface {
	Kind() Kind
	// Reference identifies the document, e.g. in file names.
	Reference() string
}

// Decode parses a JSON payload into the input type of kind.
func Decode(kind Kind, data []byte) (Report, error) {
	var r Report
	switch kind {
	case KindAdverseEvent:
		r = &AdverseEvent{}
	case KindPrescriptionRegister:
		r = &PrescriptionRegister{}
	case KindProcedure:
		r = &Procedure{}
	case KindProcessMap:
		r = &ProcessMap{}
	case KindProcessReview:
		r = &ProcessReview{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if err := json.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind, err)
	}
	return r, nil
}

// Date is a calendar day, serialised as 2006-01-02.
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	for _, layout := range []string{dateLayout, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return nil
		}
	}
	return fmt.Errorf("invalid date %q", s)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

// String is the French short form used on printed documents.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("02/01/2006")
}

type Person struct {
	Name  string `json:"name"`
	Role  string `json:"role"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// Signature is one approval slot at the foot of a document.
type Signature struct {
	Role     string `json:"role"`
	Name     string `json:"name"`
	SignedOn Date   `json:"signed_on"`
}

// Action is a corrective or follow-up action.
type Action struct {
	Description string `json:"description"`
	Owner       string `json:"owner"`
	Due         Date   `json:"due"`
	Done        bool   `json:"done"`
}
