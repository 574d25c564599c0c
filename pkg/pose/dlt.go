package pose

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/teslashibe/go-screengaze/pkg/geometry"
)

// rankTolerance bounds the second-smallest singular value of the normalized
// DLT system relative to the largest; below it the solution is not unique.
const rankTolerance = 1e-10

// DLT estimates a homography with the normalized direct linear transform over
// every correspondence in a single weighted least-squares solve. Exactly four
// non-degenerate pairs give the exact homography.
type DLT struct{}

// Estimate implements Estimator.
func (DLT) Estimate(corrs []Correspondence) (*Pose, error) {
	if err := checkCorrespondences(corrs); err != nil {
		return nil, err
	}

	src := make([]geometry.Point, len(corrs))
	dst := make([]geometry.Point, len(corrs))
	for i, c := range corrs {
		src[i], dst[i] = c.Surface, c.Image
	}
	ts, err := conditioning(src)
	if err != nil {
		return nil, err
	}
	ti, err := conditioning(dst)
	if err != nil {
		return nil, err
	}

	// Two rows per pair:
	//   [-X -Y -1  0  0  0  xX  xY  x]
	//   [ 0  0  0 -X -Y -1  yX  yY  y]
	rows := 2 * len(corrs)
	if rows < 9 {
		rows = 9 // pad with zero rows so the full SVD exposes the null space
	}
	a := mat.NewDense(rows, 9, nil)
	for i, c := range corrs {
		s, _ := ts.Apply(c.Surface)
		d, _ := ti.Apply(c.Image)
		w := math.Sqrt(c.weight())

		a.SetRow(2*i, []float64{
			-w * s.X, -w * s.Y, -w, 0, 0, 0, w * d.X * s.X, w * d.X * s.Y, w * d.X,
		})
		a.SetRow(2*i+1, []float64{
			0, 0, 0, -w * s.X, -w * s.Y, -w, w * d.Y * s.X, w * d.Y * s.Y, w * d.Y,
		})
	}

	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDFull); !ok {
		return nil, fmt.Errorf("%w: SVD failed to converge", ErrInsufficientCorrespondences)
	}
	values := svd.Values(nil)
	if values[0] == 0 || values[7]/values[0] < rankTolerance {
		return nil, fmt.Errorf("%w: correspondences do not constrain a unique homography", ErrInsufficientCorrespondences)
	}

	var v mat.Dense
	svd.VTo(&v)
	var hn Homography
	for k := 0; k < 9; k++ {
		hn[k] = v.At(k, 8)
	}

	// Undo the conditioning: H = Ti⁻¹ · Hn · Ts
	tiInv, err := ti.Inverse()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInsufficientCorrespondences, err)
	}
	h := tiInv.Mul(hn).Mul(ts).normalized()
	if !h.finite() {
		return nil, fmt.Errorf("%w: non-finite homography", ErrInsufficientCorrespondences)
	}

	return newPose(h, corrs)
}

// conditioning returns the similarity that moves the centroid of points to
// the origin and scales their mean distance from it to √2.
func conditioning(points []geometry.Point) (Homography, error) {
	var c geometry.Point
	for _, p := range points {
		c = c.Add(p)
	}
	c = c.Scale(1 / float64(len(points)))

	var mean float64
	for _, p := range points {
		mean += p.Distance(c)
	}
	mean /= float64(len(points))
	if mean == 0 || math.IsNaN(mean) {
		return Homography{}, fmt.Errorf("%w: points coincide", ErrInsufficientCorrespondences)
	}

	s := math.Sqrt2 / mean
	return Homography{
		s, 0, -s * c.X,
		0, s, -s * c.Y,
		0, 0, 1,
	}, nil
}
