package surface

import "errors"

var (
	// ErrInvalidSurfaceGeometry is returned when a surface definition cannot
	// admit a homography or its markers are wound the wrong way.
	ErrInvalidSurfaceGeometry = errors.New("surface: invalid surface geometry")

	// ErrDuplicateMarkerAssignment is returned when a marker id is already
	// owned by another surface.
	ErrDuplicateMarkerAssignment = errors.New("surface: marker already assigned to another surface")

	// ErrNotFound is returned when a surface uid is not registered.
	ErrNotFound = errors.New("surface: not found")
)
