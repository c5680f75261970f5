package exporter

import (
	"encoding/json"
	"io"
	"strconv"
)

// JSONEncoder implements RowEncoder for JSON Lines format.
// Each row is exported as a JSON object on a new line.
type JSONEncoder struct {
	enc     *json.Encoder
	columns []string
	err     error
}

// NewJSONEncoder creates a new JSON Lines encoder.
func NewJSONEncoder(w io.Writer) *JSONEncoder {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &JSONEncoder{enc: enc}
}

// WriteHeader captures the column names to be used as JSON keys.
// Unlike CSV, JSON doesn't write a header row, but needs the names for object properties.
func (e *JSONEncoder) WriteHeader(columns []string) error {
	e.columns = columns
	return nil
}

func (e *JSONEncoder) WriteRow(values []any) error {
	if e.err != nil {
		return e.err
	}

	rowMap := make(map[string]any, len(values))
	for i, v := range values {
		colName := "column_" + strconv.Itoa(i)
		if i < len(e.columns) {
			colName = e.columns[i]
		}
		// []byte would otherwise be base64 encoded.
		if b, ok := v.([]byte); ok {
			rowMap[colName] = string(b)
		} else {
			rowMap[colName] = v
		}
	}

	// Encode terminates every value with a newline.
	if err := e.enc.Encode(rowMap); err != nil {
		e.err = err
		return err
	}
	return nil
}

func (e *JSONEncoder) Flush() error {
	return e.err
}

func (e *JSONEncoder) Error() error {
	return e.err
}

func (e *JSONEncoder) Close() error {
	return e.Flush()
}
