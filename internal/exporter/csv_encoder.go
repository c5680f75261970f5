package exporter

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

// CSVEncoder wraps encoding/csv with type-aware, low-allocation logic.
// It uses a bufio.Writer to minimize IO syscalls.
type CSVEncoder struct {
	w       *csv.Writer
	buf     *bufio.Writer
	columns []string
}

// NewCSVEncoder creates a new CSV encoder that writes to the provided io.Writer.
// Fields are separated by semicolons, which spreadsheet software expects
// for French locales.
func NewCSVEncoder(w io.Writer) *CSVEncoder {
	buf := bufio.NewWriterSize(w, 64*1024) // 64KB buffer
	cw := csv.NewWriter(buf)
	cw.Comma = ';'
	return &CSVEncoder{
		w:   cw,
		buf: buf,
	}
}

// WriteHeader writes the CSV header row.
func (e *CSVEncoder) WriteHeader(columns []string) error {
	e.columns = columns
	return e.w.Write(columns)
}

// WriteRow writes a single row of values. Types are converted to strings
// without fmt.Sprintf where possible.
func (e *CSVEncoder) WriteRow(values []any) error {
	record := make([]string, len(values))
	for i, v := range values {
		record[i] = toString(v)
	}
	return e.w.Write(record)
}

// Flush ensures all data is written to the underlying writer.
func (e *CSVEncoder) Flush() error {
	e.w.Flush()
	if err := e.w.Error(); err != nil {
		return err
	}
	return e.buf.Flush()
}

// Error returns any error stored in the CSV writer.
func (e *CSVEncoder) Error() error {
	return e.w.Error()
}

// Close flushes and satisfies io.Closer.
func (e *CSVEncoder) Close() error {
	return e.Flush()
}

func toString(val any) string {
	var s string
	switch v := val.(type) {
	case nil:
		s = ""
	case []byte:
		s = string(v)
	case string:
		s = v
	case time.Time:
		s = formatTime(v)
	case int64:
		s = strconv.FormatInt(v, 10)
	case int:
		s = strconv.Itoa(v)
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		if v {
			s = "1"
		} else {
			s = "0"
		}
	case fmt.Stringer:
		s = v.String()
	default:
		s = fmt.Sprint(v)
	}
	return guardFormula(s)
}

// formatTime drops the clock for calendar days.
func formatTime(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02 15:04:05")
}

// guardFormula mitigates CSV injection: values starting with =, +, - or @
// are prefixed with a single quote so spreadsheets do not evaluate them.
func guardFormula(s string) string {
	if len(s) > 0 {
		switch s[0] {
		case '=', '+', '-', '@':
			return "'" + s
		}
	}
	return s
}
