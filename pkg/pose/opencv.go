package pose

import (
	"fmt"

	"gocv.io/x/gocv"
)

// OpenCV estimates the homography with cv::findHomography. Method selects
// plain least squares (HomographyMethodAllPoints), LMEDS or RANSAC.
type OpenCV struct {
	Method          gocv.HomographyMethod
	ReprojThreshold float64
	MaxIters        int
	Confidence      float64
}

// NewOpenCV returns an all-points OpenCV estimator.
func NewOpenCV() OpenCV {
	return OpenCV{
		Method:          gocv.HomographyMethodAllPoints,
		ReprojThreshold: 3,
		MaxIters:        2000,
		Confidence:      0.995,
	}
}

// Estimate implements Estimator.
func (o OpenCV) Estimate(corrs []Correspondence) (*Pose, error) {
	if err := checkCorrespondences(corrs); err != nil {
		return nil, err
	}

	n := len(corrs)
	src := gocv.NewMatWithSize(n, 1, gocv.MatTypeCV64FC2)
	defer src.Close()
	dst := gocv.NewMatWithSize(n, 1, gocv.MatTypeCV64FC2)
	defer dst.Close()
	for i, c := range corrs {
		src.SetDoubleAt(i, 0, c.Surface.X)
		src.SetDoubleAt(i, 1, c.Surface.Y)
		dst.SetDoubleAt(i, 0, c.Image.X)
		dst.SetDoubleAt(i, 1, c.Image.Y)
	}

	mask := gocv.NewMat()
	defer mask.Close()

	m := gocv.FindHomography(src, dst, o.Method, o.ReprojThreshold, &mask, o.MaxIters, o.Confidence)
	defer m.Close()
	if m.Empty() || m.Rows() != 3 || m.Cols() != 3 {
		return nil, fmt.Errorf("%w: findHomography returned no solution", ErrInsufficientCorrespondences)
	}

	var h Homography
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			h[r*3+c] = m.GetDoubleAt(r, c)
		}
	}
	if !h.finite() {
		return nil, fmt.Errorf("%w: non-finite homography", ErrInsufficientCorrespondences)
	}
	h = h.normalized()

	// Score only the pairs OpenCV kept.
	inliers := corrs
	if o.Method != gocv.HomographyMethodAllPoints && !mask.Empty() && mask.Rows() == n {
		kept := make([]Correspondence, 0, n)
		for i := 0; i < n; i++ {
			if mask.GetUCharAt(i, 0) != 0 {
				kept = append(kept, corrs[i])
			}
		}
		inliers = kept
		if len(inliers) < MinCorrespondences {
			return nil, fmt.Errorf("%w: %d inliers", ErrInsufficientCorrespondences, len(inliers))
		}
	}

	p, err := newPose(h, inliers)
	if err != nil {
		return nil, err
	}
	p.Points = n
	p.MarkerIDs = markerIDs(corrs)
	return p, nil
}
