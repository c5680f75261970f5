package layout

import (
	"fmt"
	"math"
)

// PtToMm converts typographic points to millimetres.
const PtToMm = 25.4 / 72.0

// epsilon absorbs float drift when comparing accumulated heights.
const epsilon = 1e-6

// Margins are expressed in millimetres.
type Margins struct {
	Top, Right, Bottom, Left float64
}

// Geometry describes the fixed page size and the printable area inside it.
// The bottom margin also hosts the footer band stamped after layout.
type Geometry struct {
	PageWidth  float64
	PageHeight float64
	Margins    Margins
}

// A4 is the portrait page used by every report template.
func A4() Geometry {
	return Geometry{
		PageWidth:  210,
		PageHeight: 297,
		Margins:    Margins{Top: 15, Right: 15, Bottom: 22, Left: 15},
	}
}

func (g Geometry) ContentWidth() float64 {
	return g.PageWidth - g.Margins.Left - g.Margins.Right
}

func (g Geometry) ContentTop() float64 {
	return g.Margins.Top
}

// ContentBottom is the lowest Y any block may reach.
func (g Geometry) ContentBottom() float64 {
	return g.PageHeight - g.Margins.Bottom
}

// UsableHeight is the vertical room of an empty page.
func (g Geometry) UsableHeight() float64 {
	return g.ContentBottom() - g.ContentTop()
}

// Validate rejects geometries that leave no room for content.
func (g Geometry) Validate() error {
	values := []float64{g.PageWidth, g.PageHeight, g.Margins.Top, g.Margins.Right, g.Margins.Bottom, g.Margins.Left}
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return &LayoutError{Op: "geometry", Err: fmt.Errorf("%w: bad dimension %v", ErrInvalidGeometry, v)}
		}
	}
	if g.ContentWidth() <= 0 || g.UsableHeight() <= 0 {
		return &LayoutError{Op: "geometry", Err: fmt.Errorf("%w: margins leave no content area", ErrInvalidGeometry)}
	}
	return nil
}

// checkHeight guards the cursor against heights that would corrupt it.
func checkHeight(h float64) error {
	if math.IsNaN(h) || math.IsInf(h, 0) || h < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidHeight, h)
	}
	return nil
}
