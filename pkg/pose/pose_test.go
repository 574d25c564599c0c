package pose

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-screengaze/pkg/geometry"
)

// tilted is a plausible screen-to-camera homography: the display seen from
// slightly off-axis.
var tilted = Homography{
	0.31, 0.012, 240,
	-0.018, 0.34, 120,
	2.1e-5, 3.4e-5, 1,
}

func square(x, y, side float64) [4]geometry.Point {
	return [4]geometry.Point{
		geometry.Pt(x, y),
		geometry.Pt(x+side, y),
		geometry.Pt(x+side, y+side),
		geometry.Pt(x, y+side),
	}
}

// observe builds correspondences for a marker as seen through h.
func observe(t *testing.T, h Homography, id int, corners [4]geometry.Point) []Correspondence {
	t.Helper()
	out := make([]Correspondence, 0, 4)
	for _, s := range corners {
		img, ok := h.Apply(s)
		require.True(t, ok)
		out = append(out, Correspondence{Surface: s, Image: img, MarkerID: id})
	}
	return out
}

func screenMarkers(t *testing.T, h Homography) []Correspondence {
	var corrs []Correspondence
	corrs = append(corrs, observe(t, h, 0, square(32, 32, 64))...)
	corrs = append(corrs, observe(t, h, 1, square(1824, 32, 64))...)
	corrs = append(corrs, observe(t, h, 2, square(1824, 984, 64))...)
	corrs = append(corrs, observe(t, h, 3, square(32, 984, 64))...)
	return corrs
}

func assertPointNear(t *testing.T, want, got geometry.Point, tol float64) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, tol, "x")
	assert.InDelta(t, want.Y, got.Y, tol, "y")
}

func TestDLT_FourPointRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for trial := 0; trial < 50; trial++ {
		// Random convex-ish quads on both sides.
		var corrs []Correspondence
		base := square(0, 0, 100)
		for i, s := range base {
			img := geometry.Pt(
				s.X*2+300+rng.Float64()*40,
				s.Y*2+200+rng.Float64()*40,
			)
			corrs = append(corrs, Correspondence{Surface: s, Image: img, MarkerID: i})
		}

		p, err := DLT{}.Estimate(corrs)
		require.NoError(t, err, "trial %d", trial)
		for _, c := range corrs {
			got, ok := p.H.Apply(c.Surface)
			require.True(t, ok)
			assertPointNear(t, c.Image, got, 1e-6)

			back, ok := p.Inverse.Apply(c.Image)
			require.True(t, ok)
			assertPointNear(t, c.Surface, back, 1e-6)
		}
		assert.Less(t, p.Residual, 1e-6)
	}
}

func TestDLT_RecoversHomography(t *testing.T) {
	corrs := screenMarkers(t, tilted)

	p, err := DLT{}.Estimate(corrs)
	require.NoError(t, err)
	for i := range tilted {
		assert.InDelta(t, tilted[i], p.H[i], 1e-6*max(1, abs(tilted[i])), "entry %d", i)
	}
	assert.Equal(t, []int{0, 1, 2, 3}, p.MarkerIDs)
	assert.Equal(t, 16, p.Points)
	assert.Equal(t, 16, p.Inliers)

	centre, ok := p.Inverse.Apply(mustApply(t, tilted, geometry.Pt(960, 540)))
	require.True(t, ok)
	assertPointNear(t, geometry.Pt(960, 540), centre, 1e-6)
}

func TestDLT_InsufficientCorrespondences(t *testing.T) {
	line := []geometry.Point{geometry.Pt(0, 0), geometry.Pt(1, 1), geometry.Pt(2, 2), geometry.Pt(3, 3)}
	quad := square(0, 0, 10)

	tests := []struct {
		name  string
		corrs []Correspondence
	}{
		{
			name:  "none",
			corrs: nil,
		},
		{
			name: "three pairs",
			corrs: []Correspondence{
				{Surface: quad[0], Image: quad[0]},
				{Surface: quad[1], Image: quad[1]},
				{Surface: quad[2], Image: quad[2]},
			},
		},
		{
			name: "collinear surface points",
			corrs: []Correspondence{
				{Surface: line[0], Image: quad[0]},
				{Surface: line[1], Image: quad[1]},
				{Surface: line[2], Image: quad[2]},
				{Surface: line[3], Image: quad[3]},
			},
		},
		{
			name: "collinear image points",
			corrs: []Correspondence{
				{Surface: quad[0], Image: line[0]},
				{Surface: quad[1], Image: line[1]},
				{Surface: quad[2], Image: line[2]},
				{Surface: quad[3], Image: line[3]},
			},
		},
		{
			name: "three of four collinear",
			corrs: []Correspondence{
				{Surface: geometry.Pt(0, 0), Image: geometry.Pt(0, 0)},
				{Surface: geometry.Pt(5, 0), Image: geometry.Pt(5, 0)},
				{Surface: geometry.Pt(10, 0), Image: geometry.Pt(10, 0)},
				{Surface: geometry.Pt(0, 10), Image: geometry.Pt(0, 10)},
			},
		},
	}

	estimators := map[string]Estimator{
		"dlt":    DLT{},
		"ransac": NewRANSAC(50, 3),
	}

	for name, est := range estimators {
		for _, tc := range tests {
			t.Run(name+"/"+tc.name, func(t *testing.T) {
				p, err := est.Estimate(tc.corrs)
				assert.ErrorIs(t, err, ErrInsufficientCorrespondences)
				assert.Nil(t, p)
			})
		}
	}
}

func TestDLT_MoreMarkersDoNotIncreaseResidual(t *testing.T) {
	all := screenMarkers(t, tilted)

	single, err := DLT{}.Estimate(all[:4])
	require.NoError(t, err)

	var previous = single.Residual
	for n := 8; n <= len(all); n += 4 {
		p, err := DLT{}.Estimate(all[:n])
		require.NoError(t, err)
		assert.LessOrEqual(t, p.Residual, previous+1e-9, "%d markers", n/4)
		previous = p.Residual
	}
}

func TestDLT_PooledMarkersReduceNoiseError(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	noisy := screenMarkers(t, tilted)
	for i := range noisy {
		noisy[i].Image.X += rng.NormFloat64() * 0.5
		noisy[i].Image.Y += rng.NormFloat64() * 0.5
	}

	gaze := geometry.Pt(960, 540)
	truth := mustApply(t, tilted, gaze)

	single, err := DLT{}.Estimate(noisy[:4])
	require.NoError(t, err)
	pooled, err := DLT{}.Estimate(noisy)
	require.NoError(t, err)

	singleErr := mustApply(t, single.H, gaze).Distance(truth)
	pooledErr := mustApply(t, pooled.H, gaze).Distance(truth)
	assert.Less(t, pooledErr, singleErr, "extrapolating from one corner marker should be worse")
}

func TestDLT_Weights(t *testing.T) {
	corrs := screenMarkers(t, tilted)
	for i := range corrs {
		corrs[i].Weight = float64(i%3) + 0.5
	}
	p, err := DLT{}.Estimate(corrs)
	require.NoError(t, err)
	assert.Less(t, p.Residual, 1e-6)
}

func TestRANSAC_RejectsOutlierCorner(t *testing.T) {
	corrs := screenMarkers(t, tilted)
	corrs[5].Image.X += 40
	corrs[5].Image.Y -= 25

	plain, err := DLT{}.Estimate(corrs)
	require.NoError(t, err)
	assert.Greater(t, plain.Residual, 1.0)

	robust, err := NewRANSAC(200, 2).Estimate(corrs)
	require.NoError(t, err)
	assert.Equal(t, 15, robust.Inliers)
	assert.Equal(t, 16, robust.Points)
	assert.Less(t, robust.Residual, 1e-6)
	assert.Equal(t, []int{0, 1, 2, 3}, robust.MarkerIDs)
}

func TestRANSAC_MinimalInputDelegates(t *testing.T) {
	corrs := observe(t, tilted, 9, square(100, 100, 50))
	p, err := NewRANSAC(10, 1).Estimate(corrs)
	require.NoError(t, err)
	assert.Equal(t, 4, p.Inliers)
	assert.Equal(t, []int{9}, p.MarkerIDs)
}

func TestHomography_InverseAndMul(t *testing.T) {
	inv, err := tilted.Inverse()
	require.NoError(t, err)

	id := tilted.Mul(inv).normalized()
	for i := range Identity {
		assert.InDelta(t, Identity[i], id[i], 1e-9)
	}

	_, err = Homography{}.Inverse()
	assert.Error(t, err)
}

func TestHomography_ApplyAtInfinity(t *testing.T) {
	h := Homography{1, 0, 0, 0, 1, 0, 1, 0, 0}
	_, ok := h.Apply(geometry.Pt(0, 5))
	assert.False(t, ok)
}

func TestByName(t *testing.T) {
	for _, name := range []string{"", "dlt", "ransac", "opencv"} {
		est, err := ByName(name)
		require.NoError(t, err)
		assert.NotNil(t, est)
	}
	_, err := ByName("magic")
	assert.Error(t, err)
}

func mustApply(t *testing.T, h Homography, p geometry.Point) geometry.Point {
	t.Helper()
	out, ok := h.Apply(p)
	require.True(t, ok)
	return out
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
