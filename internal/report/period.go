package report

import (
	"errors"
	"fmt"
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/fr"
)

var ErrInvalidTrimester = errors.New("trimester quarter must be between 1 and 4")

// Trimester is a calendar quarter, the unit registers are closed on.
type Trimester struct {
	Year    int `json:"year"`
	Quarter int `json:"quarter"`
}

// TrimesterOf returns the quarter containing t.
func TrimesterOf(t time.Time) Trimester {
	return Trimester{Year: t.Year(), Quarter: (int(t.Month())-1)/3 + 1}
}

func (q Trimester) Validate() error {
	if q.Quarter < 1 || q.Quarter > 4 {
		return fmt.Errorf("%w: got %d", ErrInvalidTrimester, q.Quarter)
	}
	return nil
}

// Bounds returns the first day of the quarter and the first day of the
// next one.
func (q Trimester) Bounds() (start, end time.Time) {
	start = time.Date(q.Year, time.Month((q.Quarter-1)*3+1), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 3, 0)
}

func (q Trimester) Contains(t time.Time) bool {
	start, end := q.Bounds()
	return !t.Before(start) && t.Before(end)
}

// Label is the printed form, e.g. "T1 2026".
func (q Trimester) Label() string {
	return fmt.Sprintf("T%d %d", q.Quarter, q.Year)
}

// Code is the file-name form, e.g. "T1-2026".
func (q Trimester) Code() string {
	return fmt.Sprintf("T%d-%d", q.Quarter, q.Year)
}

// FrenchCalendar is a business calendar with the national public holidays.
func FrenchCalendar() *cal.BusinessCalendar {
	c := cal.NewBusinessCalendar()
	c.Name = "Officine"
	c.Description = "Jours ouvrés, jours fériés nationaux"
	c.AddHoliday(fr.Holidays...)
	return c
}

// ClosingDay is the last business day of the quarter, the date the
// register is closed and signed.
func (q Trimester) ClosingDay(c *cal.BusinessCalendar) time.Time {
	start, end := q.Bounds()
	last := end.AddDate(0, 0, -1)
	for day := last; !day.Before(start); day = day.AddDate(0, 0, -1) {
		if c.IsWorkday(day) {
			return day
		}
	}
	return last
}
