package exporter

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	excelSheet    = "Export"
	excelMaxRows  = 1048576
	excelColWidth = 18
	// excelDateFmt is the built-in dd/mm/yyyy style.
	excelDateFmt = 14
)

// ExcelEncoder implements RowEncoder for Excel (.xlsx) files.
// It uses excelize.StreamWriter for efficient writing of large files.
type ExcelEncoder struct {
	f           *excelize.File
	sw          *excelize.StreamWriter
	w           io.Writer
	rowIdx      int
	err         error
	headerStyle int
	dateStyle   int
}

// NewExcelEncoder creates a new Excel encoder with a single sheet named
// "Export". Setup errors are reported by the first call.
func NewExcelEncoder(w io.Writer) *ExcelEncoder {
	f := excelize.NewFile()
	e := &ExcelEncoder{f: f, w: w, rowIdx: 1}
	if err := f.SetSheetName("Sheet1", excelSheet); err != nil {
		e.err = err
		return e
	}
	var err error
	if e.headerStyle, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DCE6F1"}},
	}); err != nil {
		e.err = err
		return e
	}
	if e.dateStyle, err = f.NewStyle(&excelize.Style{NumFmt: excelDateFmt}); err != nil {
		e.err = err
		return e
	}
	if e.sw, err = f.NewStreamWriter(excelSheet); err != nil {
		e.err = err
	}
	return e
}

func (e *ExcelEncoder) WriteHeader(columns []string) error {
	if e.err != nil {
		return e.err
	}
	if len(columns) > 0 {
		// Widths must be set before the first row is streamed.
		if err := e.sw.SetColWidth(1, len(columns), excelColWidth); err != nil {
			e.err = err
			return err
		}
	}

	row := make([]any, len(columns))
	for i, col := range columns {
		row[i] = excelize.Cell{StyleID: e.headerStyle, Value: col}
	}
	return e.setRow(row)
}

func (e *ExcelEncoder) WriteRow(values []any) error {
	if e.err != nil {
		return e.err
	}
	if e.rowIdx > excelMaxRows {
		e.err = fmt.Errorf("excel row limit exceeded (%d rows)", excelMaxRows)
		return e.err
	}

	row := make([]any, len(values))
	for i, v := range values {
		switch val := v.(type) {
		case []byte:
			row[i] = guardFormula(string(val))
		case string:
			row[i] = guardFormula(val)
		case nil:
			row[i] = ""
		case time.Time:
			row[i] = excelize.Cell{StyleID: e.dateStyle, Value: val}
		default:
			// Numbers and booleans are stored natively.
			row[i] = v
		}
	}
	return e.setRow(row)
}

func (e *ExcelEncoder) setRow(row []any) error {
	cell, err := excelize.CoordinatesToCellName(1, e.rowIdx)
	if err != nil {
		e.err = err
		return err
	}
	if err := e.sw.SetRow(cell, row); err != nil {
		e.err = err
		return err
	}
	e.rowIdx++
	return nil
}

// Flush writes the whole workbook. It must be called once, after the last row.
func (e *ExcelEncoder) Flush() error {
	if e.err != nil {
		return e.err
	}
	if err := e.sw.Flush(); err != nil {
		e.err = err
		return err
	}
	if err := e.f.Write(e.w); err != nil {
		e.err = err
		return err
	}
	return nil
}

func (e *ExcelEncoder) Error() error {
	return e.err
}

// Close releases the workbook's temporary files.
func (e *ExcelEncoder) Close() error {
	if e.f != nil {
		return e.f.Close()
	}
	return nil
}
