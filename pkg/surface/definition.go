// Package surface holds the registered display surfaces and the markers that
// locate them.
package surface

import (
	"fmt"
	"sort"

	"github.com/teslashibe/go-screengaze/pkg/geometry"
)

// collinearTolerance is relative to the extent of the pooled corner set.
const collinearTolerance = 1e-9

// Definition is an immutable surface: its markers' corners in surface units
// (origin top-left, y down) and its size in the same units.
type Definition struct {
	UID     string
	Name    string
	Size    geometry.Size
	Markers map[int]geometry.Quad

	// Revision changes whenever the surface is (re-)registered.
	Revision uint64
}

// MarkerIDs returns the registered marker ids in ascending order.
func (d *Definition) MarkerIDs() []int {
	ids := make([]int, 0, len(d.Markers))
	for id := range d.Markers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Normalize maps a surface-unit point to [0,1] surface coordinates.
func (d *Definition) Normalize(p geometry.Point) geometry.Point {
	return geometry.Point{X: p.X / d.Size.Width, Y: p.Y / d.Size.Height}
}

// Denormalize maps [0,1] surface coordinates to surface units.
func (d *Definition) Denormalize(p geometry.Point) geometry.Point {
	return geometry.Point{X: p.X * d.Size.Width, Y: p.Y * d.Size.Height}
}

// validateGeometry checks a marker layout before registration.
func validateGeometry(markers map[int]geometry.Quad, size geometry.Size) error {
	if !size.Valid() {
		return fmt.Errorf("%w: size %gx%g must be positive", ErrInvalidSurfaceGeometry, size.Width, size.Height)
	}
	if len(markers) == 0 {
		return fmt.Errorf("%w: at least one marker is required", ErrInvalidSurfaceGeometry)
	}

	var pooled []geometry.Point
	for id, q := range markers {
		if id < 0 {
			return fmt.Errorf("%w: marker id %d is negative", ErrInvalidSurfaceGeometry, id)
		}
		for c, p := range q {
			if !p.IsFinite() {
				return fmt.Errorf("%w: marker %d %s corner is not finite", ErrInvalidSurfaceGeometry, id, geometry.Corner(c))
			}
		}
		if err := validateWinding(id, q); err != nil {
			return err
		}
		pooled = append(pooled, q[:]...)
	}

	if geometry.Collinear(pooled, collinearTolerance) {
		return fmt.Errorf("%w: marker corners are collinear", ErrInvalidSurfaceGeometry)
	}
	return nil
}

// validateWinding rejects degenerate, self-intersecting and mirrored quads.
// Corners must run TL, TR, BR, BL, clockwise on screen with y pointing down,
// so the detected and registered corners pair up without a flip.
func validateWinding(id int, q geometry.Quad) error {
	if !q.IsConvex() {
		return fmt.Errorf("%w: marker %d corners do not form a convex quad", ErrInvalidSurfaceGeometry, id)
	}
	if q.SignedArea() <= 0 {
		return fmt.Errorf("%w: marker %d corners are wound counter-clockwise (expected top-left, top-right, bottom-right, bottom-left)", ErrInvalidSurfaceGeometry, id)
	}
	return nil
}
