package pose

import "errors"

// ErrInsufficientCorrespondences is returned when the correspondences cannot
// determine a homography: fewer than four pairs, collinear points, or a
// rank-deficient system. Callers must not fabricate a pose from it.
var ErrInsufficientCorrespondences = errors.New("pose: insufficient correspondences")
