package pose

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/teslashibe/go-screengaze/pkg/geometry"
)

// Homography is a row-major 3x3 projective transform.
type Homography [9]float64

// Identity is the identity transform.
var Identity = Homography{1, 0, 0, 0, 1, 0, 0, 0, 1}

// minW guards the projective divide.
const minW = 1e-12

// Apply maps p through h. It returns false when p maps to infinity.
func (h Homography) Apply(p geometry.Point) (geometry.Point, bool) {
	x := h[0]*p.X + h[1]*p.Y + h[2]
	y := h[3]*p.X + h[4]*p.Y + h[5]
	w := h[6]*p.X + h[7]*p.Y + h[8]
	if math.Abs(w) < minW {
		return geometry.Point{}, false
	}
	return geometry.Point{X: x / w, Y: y / w}, true
}

// Inverse returns the inverse transform, scaled so its last entry is 1 when
// possible.
func (h Homography) Inverse() (Homography, error) {
	var inv mat.Dense
	if err := inv.Inverse(h.dense()); err != nil {
		return Homography{}, err
	}
	out := fromDense(&inv)
	if !out.finite() {
		return Homography{}, errors.New("homography is singular")
	}
	return out.normalized(), nil
}

// Mul returns h·o (apply o first, then h).
func (h Homography) Mul(o Homography) Homography {
	var m mat.Dense
	m.Mul(h.dense(), o.dense())
	return fromDense(&m)
}

// Matrix returns h as rows, for JSON output.
func (h Homography) Matrix() [3][3]float64 {
	return [3][3]float64{
		{h[0], h[1], h[2]},
		{h[3], h[4], h[5]},
		{h[6], h[7], h[8]},
	}
}

func (h Homography) dense() *mat.Dense {
	data := make([]float64, 9)
	copy(data, h[:])
	return mat.NewDense(3, 3, data)
}

func fromDense(m mat.Matrix) Homography {
	var h Homography
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			h[r*3+c] = m.At(r, c)
		}
	}
	return h
}

// normalized scales h so h[8] == 1, or to unit Frobenius norm when h[8] is ~0.
func (h Homography) normalized() Homography {
	scale := h[8]
	if math.Abs(scale) < minW {
		var norm float64
		for _, v := range h {
			norm += v * v
		}
		scale = math.Sqrt(norm)
	}
	if scale == 0 {
		return h
	}
	for i := range h {
		h[i] /= scale
	}
	return h
}

func (h Homography) finite() bool {
	for _, v := range h {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
