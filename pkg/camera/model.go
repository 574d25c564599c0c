package camera

import (
	"fmt"
	"math"

	"github.com/teslashibe/go-screengaze/pkg/geometry"
)

const (
	fixedPointIterations   = 20
	undistortMaxIterations = 50
	undistortTolerance     = 1e-14
)

// Ray is a direction in the camera frame, normalized so that Z == 1 for
// points in front of the camera.
type Ray struct {
	X, Y, Z float64
}

// Model converts between image pixels and camera rays. It is read-only after
// construction and safe for concurrent use.
type Model struct {
	cal  Calibration
	dist [8]float64
}

// New validates the calibration and returns a camera model.
func New(cal Calibration) (*Model, error) {
	if problems := cal.Validate(); len(problems) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCalibration, problems)
	}
	cal.DistCoeffs = append([]float64(nil), cal.DistCoeffs...)
	return &Model{cal: cal, dist: cal.distortion()}, nil
}

// Calibration returns a copy of the intrinsics.
func (m *Model) Calibration() Calibration {
	cal := m.cal
	cal.DistCoeffs = append([]float64(nil), m.cal.DistCoeffs...)
	return cal
}

func (m *Model) check() error {
	if m == nil || m.cal.FX <= 0 || m.cal.FY <= 0 {
		return ErrInvalidCalibration
	}
	return nil
}

// Unproject removes lens distortion from a raw pixel and returns the
// normalized camera ray through it.
func (m *Model) Unproject(p geometry.Point) (Ray, error) {
	if err := m.check(); err != nil {
		return Ray{}, err
	}

	x0 := (p.X - m.cal.CX) / m.cal.FX
	y0 := (p.Y - m.cal.CY) / m.cal.FY
	x, y, err := m.invertDistortion(x0, y0)
	if err != nil {
		return Ray{}, fmt.Errorf("unproject (%.2f, %.2f): %w", p.X, p.Y, err)
	}
	return Ray{X: x, Y: y, Z: 1}, nil
}

// Undistort maps a raw pixel to the pixel an ideal pinhole camera with the
// same intrinsics would have observed.
func (m *Model) Undistort(p geometry.Point) (geometry.Point, error) {
	ray, err := m.Unproject(p)
	if err != nil {
		return geometry.Point{}, err
	}
	return m.Project(ray, false)
}

// UndistortAll undistorts a batch of pixels, stopping at the first failure.
func (m *Model) UndistortAll(points []geometry.Point) ([]geometry.Point, error) {
	out := make([]geometry.Point, len(points))
	for i, p := range points {
		u, err := m.Undistort(p)
		if err != nil {
			return nil, err
		}
		out[i] = u
	}
	return out, nil
}

// Project maps a camera ray to a pixel, optionally applying lens distortion.
func (m *Model) Project(r Ray, distort bool) (geometry.Point, error) {
	if err := m.check(); err != nil {
		return geometry.Point{}, err
	}
	if r.Z <= 0 {
		return geometry.Point{}, ErrBehindCamera
	}

	x, y := r.X/r.Z, r.Y/r.Z
	if distort {
		x, y = m.applyDistortion(x, y)
	}
	return geometry.Point{
		X: m.cal.FX*x + m.cal.CX,
		Y: m.cal.FY*y + m.cal.CY,
	}, nil
}

// Distort applies lens distortion to an undistorted pixel.
func (m *Model) Distort(p geometry.Point) (geometry.Point, error) {
	if err := m.check(); err != nil {
		return geometry.Point{}, err
	}
	return m.Project(Ray{
		X: (p.X - m.cal.CX) / m.cal.FX,
		Y: (p.Y - m.cal.CY) / m.cal.FY,
		Z: 1,
	}, true)
}

// applyDistortion is the forward OpenCV rational/tangential model:
//
//	x_d = x * (1 + k1 r² + k2 r⁴ + k3 r⁶)/(1 + k4 r² + k5 r⁴ + k6 r⁶) + 2 p1 x y + p2 (r² + 2x²)
//	y_d = y * (1 + k1 r² + k2 r⁴ + k3 r⁶)/(1 + k4 r² + k5 r⁴ + k6 r⁶) + p1 (r² + 2y²) + 2 p2 x y
func (m *Model) applyDistortion(x, y float64) (float64, float64) {
	k1, k2, p1, p2, k3, k4, k5, k6 := m.dist[0], m.dist[1], m.dist[2], m.dist[3], m.dist[4], m.dist[5], m.dist[6], m.dist[7]

	r2 := x*x + y*y
	r4 := r2 * r2
	r6 := r4 * r2
	radial := (1 + k1*r2 + k2*r4 + k3*r6) / (1 + k4*r2 + k5*r4 + k6*r6)

	xd := x*radial + 2*p1*x*y + p2*(r2+2*x*x)
	yd := y*radial + p1*(r2+2*y*y) + 2*p2*x*y
	return xd, yd
}

// invertDistortion solves applyDistortion(x, y) == (xd, yd). A few
// fixed-point iterations give the starting guess, then Newton-Raphson with the
// analytic Jacobian refines it. Fixed-point alone diverges near the image
// corners of strongly distorted lenses.
func (m *Model) invertDistortion(xd, yd float64) (float64, float64, error) {
	x, y := m.fixedPointGuess(xd, yd)

	res := m.residual(x, y, xd, yd)
	for i := 0; i < undistortMaxIterations && res > undistortTolerance; i++ {
		ex, ey := m.applyDistortion(x, y)
		errX, errY := ex-xd, ey-yd

		a, b, c, d := m.distortionJacobian(x, y)
		det := a*d - b*c
		if det == 0 || math.IsNaN(det) {
			break
		}
		stepX := (d*errX - b*errY) / det
		stepY := (-c*errX + a*errY) / det

		// Halve the step until the residual drops.
		improved := false
		for t := 1.0; t > 1e-6; t /= 2 {
			nx, ny := x-t*stepX, y-t*stepY
			if r := m.residual(nx, ny, xd, yd); r < res {
				x, y, res = nx, ny, r
				improved = true
				break
			}
		}
		if !improved {
			break
		}
	}

	if res > 1e-9 {
		return xd, yd, ErrNotConverged
	}
	return x, y, nil
}

// fixedPointGuess runs the classic OpenCV iteration and returns the iterate
// with the smallest residual. It falls back to the distorted coordinates.
func (m *Model) fixedPointGuess(xd, yd float64) (float64, float64) {
	k1, k2, p1, p2, k3, k4, k5, k6 := m.dist[0], m.dist[1], m.dist[2], m.dist[3], m.dist[4], m.dist[5], m.dist[6], m.dist[7]

	bestX, bestY := xd, yd
	best := m.residual(xd, yd, xd, yd)

	x, y := xd, yd
	for i := 0; i < fixedPointIterations; i++ {
		r2 := x*x + y*y
		r4 := r2 * r2
		r6 := r4 * r2

		icdist := (1 + k4*r2 + k5*r4 + k6*r6) / (1 + k1*r2 + k2*r4 + k3*r6)
		if icdist < 0 || math.IsNaN(icdist) || math.IsInf(icdist, 0) {
			break
		}
		dx := 2*p1*x*y + p2*(r2+2*x*x)
		dy := p1*(r2+2*y*y) + 2*p2*x*y

		x = (xd - dx) * icdist
		y = (yd - dy) * icdist
		if r := m.residual(x, y, xd, yd); r < best {
			bestX, bestY, best = x, y, r
		}
		if best <= undistortTolerance {
			break
		}
	}
	return bestX, bestY
}

// residual is the distance between the distorted (x, y) and the observation.
// Non-finite results count as infinitely far.
func (m *Model) residual(x, y, xd, yd float64) float64 {
	ex, ey := m.applyDistortion(x, y)
	r := math.Hypot(ex-xd, ey-yd)
	if math.IsNaN(r) {
		return math.Inf(1)
	}
	return r
}

// distortionJacobian returns the partial derivatives of applyDistortion:
//
//	| dxd/dx  dxd/dy |   | a  b |
//	| dyd/dx  dyd/dy | = | c  d |
func (m *Model) distortionJacobian(x, y float64) (a, b, c, d float64) {
	k1, k2, p1, p2, k3, k4, k5, k6 := m.dist[0], m.dist[1], m.dist[2], m.dist[3], m.dist[4], m.dist[5], m.dist[6], m.dist[7]

	r2 := x*x + y*y
	r4 := r2 * r2
	r6 := r4 * r2

	num := 1 + k1*r2 + k2*r4 + k3*r6
	den := 1 + k4*r2 + k5*r4 + k6*r6
	dNum := k1 + 2*k2*r2 + 3*k3*r4
	dDen := k4 + 2*k5*r2 + 3*k6*r4

	radial := num / den
	// d(radial)/d(r²)
	dRadial := (dNum*den - num*dDen) / (den * den)

	a = radial + 2*x*x*dRadial + 2*p1*y + 6*p2*x
	b = 2*x*y*dRadial + 2*p1*x + 2*p2*y
	c = 2*x*y*dRadial + 2*p1*x + 2*p2*y
	d = radial + 2*y*y*dRadial + 6*p1*y + 2*p2*x
	return a, b, c, d
}
