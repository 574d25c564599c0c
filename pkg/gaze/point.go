package gaze

import (
	"time"

	"github.com/teslashibe/go-screengaze/pkg/geometry"
)

// Point is a gaze sample in raw (distorted) scene camera pixels.
type Point struct {
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Valid     bool      `json:"valid"` // false when the glasses were not worn
	Timestamp time.Time `json:"timestamp"`
}

// NewPoint returns a valid sample at (x, y) stamped with the current time.
func NewPoint(x, y float64) Point {
	return Point{X: x, Y: y, Valid: true, Timestamp: time.Now()}
}

// Pixel returns the sample position.
func (p Point) Pixel() geometry.Point {
	return geometry.Pt(p.X, p.Y)
}

// Mapped is a gaze sample expressed in a surface's coordinates.
type Mapped struct {
	SurfaceUID string  `json:"surface_uid"`
	X          float64 `json:"x"` // Normalized, 0 at the left edge and 1 at the right
	Y          float64 `json:"y"` // Normalized, 0 at the top edge and 1 at the bottom
	PixelX     float64 `json:"pixel_x"`
	PixelY     float64 `json:"pixel_y"`
	OnSurface  bool    `json:"on_surface"`
	Stale      bool    `json:"stale"` // Mapped through a reused pose
	Base       Point   `json:"base"`
}

// edgeTolerance absorbs round-off from the inverse homography so gaze on a
// surface edge still counts as on the surface.
const edgeTolerance = 1e-9

// onUnitSquare reports whether a normalized position lies on the surface.
func onUnitSquare(p geometry.Point) bool {
	return p.X >= -edgeTolerance && p.X <= 1+edgeTolerance &&
		p.Y >= -edgeTolerance && p.Y <= 1+edgeTolerance
}
