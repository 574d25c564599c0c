package camera

import "errors"

var (
	// ErrInvalidCalibration is returned when intrinsics or distortion data are
	// missing or malformed.
	ErrInvalidCalibration = errors.New("camera: invalid calibration")

	// ErrBehindCamera is returned when projecting a ray with non-positive depth.
	ErrBehindCamera = errors.New("camera: point behind camera")

	// ErrNotConverged is returned when iterative undistortion fails to settle.
	ErrNotConverged = errors.New("camera: undistortion did not converge")
)
