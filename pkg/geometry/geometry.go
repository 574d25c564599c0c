// Package geometry provides the 2D primitives shared by the camera, surface
// and pose packages.
package geometry

import "math"

// Point is a 2D point with floating-point coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Distance returns the Euclidean distance to another point.
func (p Point) Distance(other Point) float64 {
	return math.Hypot(p.X-other.X, p.Y-other.Y)
}

// Add returns the sum of two points.
func (p Point) Add(other Point) Point {
	return Point{X: p.X + other.X, Y: p.Y + other.Y}
}

// Sub returns the difference of two points.
func (p Point) Sub(other Point) Point {
	return Point{X: p.X - other.X, Y: p.Y - other.Y}
}

// Scale returns the point scaled by a factor.
func (p Point) Scale(factor float64) Point {
	return Point{X: p.X * factor, Y: p.Y * factor}
}

// IsFinite reports whether both coordinates are finite numbers.
func (p Point) IsFinite() bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

// Size is a width/height pair in surface units.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Valid reports whether both dimensions are positive and finite.
func (s Size) Valid() bool {
	return s.Width > 0 && s.Height > 0 && !math.IsInf(s.Width, 0) && !math.IsInf(s.Height, 0)
}

// Corner indexes a marker quad.
type Corner int

// Corner order used by detections and registered markers alike.
const (
	TopLeft Corner = iota
	TopRight
	BottomRight
	BottomLeft
)

func (c Corner) String() string {
	switch c {
	case TopLeft:
		return "top-left"
	case TopRight:
		return "top-right"
	case BottomRight:
		return "bottom-right"
	case BottomLeft:
		return "bottom-left"
	}
	return "unknown"
}

// Quad is the four corners of a marker in TL, TR, BR, BL order.
type Quad [4]Point

// Centroid returns the mean of the four corners.
func (q Quad) Centroid() Point {
	var c Point
	for _, p := range q {
		c = c.Add(p)
	}
	return c.Scale(0.25)
}

// SignedArea returns the shoelace area of the quad. With y pointing down,
// TL→TR→BR→BL (clockwise on screen) yields a positive area.
func (q Quad) SignedArea() float64 {
	var sum float64
	for i := range q {
		j := (i + 1) % len(q)
		sum += q[i].X*q[j].Y - q[j].X*q[i].Y
	}
	return sum / 2
}

// IsConvex reports whether every turn of the quad has the same sign.
func (q Quad) IsConvex() bool {
	var sign float64
	for i := range q {
		cross := crossProduct(q[i], q[(i+1)%4], q[(i+2)%4])
		if cross == 0 {
			return false
		}
		if sign == 0 {
			sign = cross
			continue
		}
		if (cross > 0) != (sign > 0) {
			return false
		}
	}
	return true
}

// Collinear reports whether all points lie on a single line, within tol
// relative to the spread of the set. Fewer than three points are collinear.
func Collinear(points []Point, tol float64) bool {
	if len(points) < 3 {
		return true
	}

	// Farthest pair from the first point defines the candidate line.
	a := points[0]
	far := -1
	var farDist float64
	for i, p := range points {
		if d := a.Distance(p); d > farDist {
			farDist = d
			far = i
		}
	}
	if far < 0 || farDist == 0 {
		return true
	}
	b := points[far]
	for _, p := range points {
		if math.Abs(crossProduct(a, b, p))/farDist > tol*farDist {
			return false
		}
	}
	return true
}

func crossProduct(o, a, b Point) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}
