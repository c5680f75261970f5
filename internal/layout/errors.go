package layout

import (
	"errors"
	"fmt"
)

var (
	ErrColumnOverflow  = errors.New("column widths exceed the usable page width")
	ErrInvalidColumns  = errors.New("invalid table columns")
	ErrRowShape        = errors.New("row has more cells than the table has columns")
	ErrInvalidHeight   = errors.New("block height is negative or not a number")
	ErrInvalidGeometry = errors.New("invalid page geometry")
	ErrUnknownBlock    = errors.New("unknown block kind")
)

// LayoutError records the layout step that failed.
type LayoutError struct {
	Op  string
	Err error
}

func (e *LayoutError) Error() string {
	return fmt.Sprintf("layout: %s: %v", e.Op, e.Err)
}

func (e *LayoutError) Unwrap() error {
	return e.Err
}

func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var le *LayoutError
	if errors.As(err, &le) {
		return err
	}
	return &LayoutError{Op: op, Err: err}
}
