// Package pose estimates the planar homography between a surface and the
// undistorted camera image from marker corner correspondences.
package pose

import (
	"fmt"
	"math"
	"sort"

	"github.com/teslashibe/go-screengaze/pkg/geometry"
)

// MinCorrespondences is the number of point pairs that fixes a homography.
const MinCorrespondences = 4

// degeneracyTolerance is relative to the spread of each point set.
const degeneracyTolerance = 1e-9

// Correspondence pairs a surface point with where it was observed in the
// undistorted image.
type Correspondence struct {
	Surface  geometry.Point
	Image    geometry.Point
	Weight   float64 // Relative weight in the solve; 0 means 1
	MarkerID int
}

func (c Correspondence) weight() float64 {
	if c.Weight <= 0 {
		return 1
	}
	return c.Weight
}

// Pose is a surface's homography for one frame.
type Pose struct {
	H       Homography // surface units -> undistorted image pixels
	Inverse Homography // undistorted image pixels -> surface units

	MarkerIDs []int   // Markers that contributed correspondences
	Points    int     // Correspondences given to the estimator
	Inliers   int     // Correspondences consistent with H
	Residual  float64 // Mean reprojection error of the inliers, in pixels
}

// Estimator turns correspondences into a pose. Implementations must return
// ErrInsufficientCorrespondences (possibly wrapped) for degenerate input.
type Estimator interface {
	Estimate(corrs []Correspondence) (*Pose, error)
}

// checkCorrespondences rejects input no estimator can solve.
func checkCorrespondences(corrs []Correspondence) error {
	if len(corrs) < MinCorrespondences {
		return fmt.Errorf("%w: %d point pairs, need %d", ErrInsufficientCorrespondences, len(corrs), MinCorrespondences)
	}

	src := make([]geometry.Point, len(corrs))
	dst := make([]geometry.Point, len(corrs))
	for i, c := range corrs {
		if !c.Surface.IsFinite() || !c.Image.IsFinite() {
			return fmt.Errorf("%w: pair %d is not finite", ErrInsufficientCorrespondences, i)
		}
		src[i], dst[i] = c.Surface, c.Image
	}
	if geometry.Collinear(src, degeneracyTolerance) {
		return fmt.Errorf("%w: surface points are collinear", ErrInsufficientCorrespondences)
	}
	if geometry.Collinear(dst, degeneracyTolerance) {
		return fmt.Errorf("%w: image points are collinear", ErrInsufficientCorrespondences)
	}
	return nil
}

// newPose builds a pose from H and scores it against corrs.
func newPose(h Homography, corrs []Correspondence) (*Pose, error) {
	inv, err := h.Inverse()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInsufficientCorrespondences, err)
	}
	residual, ok := MeanReprojectionError(h, corrs)
	if !ok {
		return nil, fmt.Errorf("%w: surface maps to infinity", ErrInsufficientCorrespondences)
	}
	return &Pose{
		H:         h,
		Inverse:   inv,
		MarkerIDs: markerIDs(corrs),
		Points:    len(corrs),
		Inliers:   len(corrs),
		Residual:  residual,
	}, nil
}

// MeanReprojectionError maps every surface point through h and averages the
// distance to its observed image point.
func MeanReprojectionError(h Homography, corrs []Correspondence) (float64, bool) {
	if len(corrs) == 0 {
		return math.Inf(1), false
	}
	var total float64
	for _, c := range corrs {
		p, ok := h.Apply(c.Surface)
		if !ok {
			return math.Inf(1), false
		}
		total += p.Distance(c.Image)
	}
	return total / float64(len(corrs)), true
}

func markerIDs(corrs []Correspondence) []int {
	seen := make(map[int]bool)
	var ids []int
	for _, c := range corrs {
		if !seen[c.MarkerID] {
			seen[c.MarkerID] = true
			ids = append(ids, c.MarkerID)
		}
	}
	sort.Ints(ids)
	return ids
}

// ByName returns the estimator registered under name: "dlt", "ransac" or
// "opencv".
func ByName(name string) (Estimator, error) {
	switch name {
	case "", "dlt":
		return DLT{}, nil
	case "ransac":
		return NewRANSAC(200, 3), nil
	case "opencv":
		return NewOpenCV(), nil
	}
	return nil, fmt.Errorf("unknown estimator %q", name)
}
