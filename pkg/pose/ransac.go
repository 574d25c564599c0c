package pose

import (
	"fmt"
	"math/rand"
)

// RANSAC rejects outlier corners by scoring homographies fitted to random
// minimal samples, then refits on the largest consensus set.
type RANSAC struct {
	Iterations int       // Samples to draw (default 200)
	Threshold  float64   // Inlier reprojection distance in pixels (default 3)
	Refit      Estimator // Solver for samples and the final fit (default DLT)
	Seed       int64     // Sample seed; runs with the same seed are repeatable

	rng *rand.Rand
}

// NewRANSAC returns a RANSAC estimator with default settings.
func NewRANSAC(iterations int, threshold float64) *RANSAC {
	return &RANSAC{Iterations: iterations, Threshold: threshold, Refit: DLT{}, Seed: 1}
}

// Estimate implements Estimator. With only the minimal number of pairs there
// is nothing to vote on and the refit estimator is used directly.
func (r *RANSAC) Estimate(corrs []Correspondence) (*Pose, error) {
	refit := r.Refit
	if refit == nil {
		refit = DLT{}
	}
	if err := checkCorrespondences(corrs); err != nil {
		return nil, err
	}
	if len(corrs) <= MinCorrespondences {
		return refit.Estimate(corrs)
	}

	iterations := r.Iterations
	if iterations <= 0 {
		iterations = 200
	}
	threshold := r.Threshold
	if threshold <= 0 {
		threshold = 3
	}
	if r.rng == nil {
		r.rng = rand.New(rand.NewSource(r.Seed))
	}

	n := len(corrs)
	var bestInliers []int
	bestError := 0.0
	sample := make([]Correspondence, MinCorrespondences)

	for iter := 0; iter < iterations; iter++ {
		indices := r.rng.Perm(n)[:MinCorrespondences]
		for i, idx := range indices {
			sample[i] = corrs[idx]
		}

		candidate, err := refit.Estimate(sample)
		if err != nil {
			continue
		}

		var inliers []int
		var total float64
		for i, c := range corrs {
			p, ok := candidate.H.Apply(c.Surface)
			if !ok {
				continue
			}
			if d := p.Distance(c.Image); d < threshold {
				inliers = append(inliers, i)
				total += d
			}
		}

		if len(inliers) > len(bestInliers) ||
			(len(inliers) == len(bestInliers) && len(inliers) > 0 && total < bestError) {
			bestInliers = inliers
			bestError = total
		}
		if len(bestInliers) == n {
			break
		}
	}

	if len(bestInliers) < MinCorrespondences {
		return nil, fmt.Errorf("%w: RANSAC found %d inliers", ErrInsufficientCorrespondences, len(bestInliers))
	}

	// Recompute using all inliers
	inlierCorrs := make([]Correspondence, len(bestInliers))
	for i, idx := range bestInliers {
		inlierCorrs[i] = corrs[idx]
	}
	p, err := refit.Estimate(inlierCorrs)
	if err != nil {
		return nil, err
	}
	p.Points = n
	p.MarkerIDs = markerIDs(corrs)
	return p, nil
}
