package exporter

import (
	"errors"
	"fmt"
	"io"

	"qms-exporter/internal/layout"
)

// Supported output formats.
const (
	FormatPDF  = "pdf"
	FormatCSV  = "csv"
	FormatJSON = "json"
	FormatXLSX = "xlsx"
)

var ErrUnsupportedFormat = errors.New("unsupported format")

// RowEncoder defines a common interface for tabular export formats (CSV, JSON, Excel, PDF).
// It allows the exporter to be agnostic of the underlying output format.
type RowEncoder interface {
	// WriteHeader writes the initial column headers to the output.
	// This should be called exactly once before any rows are written.
	WriteHeader(columns []string) error

	// WriteRow writes a single row of data.
	// The values slice length must match the headers length.
	WriteRow(values []any) error

	// Flush ensures all buffered data is written to the underlying writer.
	Flush() error

	// Error returns the first error that occurred during encoding, if any.
	// This allows for cleaner loops where error checking can happen at the end.
	Error() error

	// Close flushes the encoder and releases any resources.
	io.Closer
}

// NewEncoder returns the encoder for format. The engine and title are only
// used by the PDF encoder.
func NewEncoder(format string, w io.Writer, engine *layout.Engine, title string) (RowEncoder, error) {
	switch format {
	case FormatCSV:
		return NewCSVEncoder(w), nil
	case FormatJSON:
		return NewJSONEncoder(w), nil
	case FormatXLSX:
		return NewExcelEncoder(w), nil
	case FormatPDF:
		return NewPDFEncoder(w, engine, title), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

// ContentType returns the MIME type of files written in format.
func ContentType(format string) string {
	switch format {
	case FormatPDF:
		return "application/pdf"
	case FormatCSV:
		return "text/csv"
	case FormatJSON:
		return "application/x-ndjson"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "application/octet-stream"
}

// EncodeRows writes a header and rows already held in memory.
func EncodeRows(enc RowEncoder, columns []string, rows [][]any) error {
	if err := enc.WriteHeader(columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, row := range rows {
		if err := enc.WriteRow(row); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}
	if err := enc.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return enc.Error()
}
