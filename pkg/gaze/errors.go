package gaze

import "errors"

var (
	// ErrNoDetector is returned by ProcessFrame when no detector is configured.
	ErrNoDetector = errors.New("gaze: no marker detector configured")

	// ErrNoPose is returned when a surface has no usable pose.
	ErrNoPose = errors.New("gaze: surface not located")

	// ErrInvalidGaze is returned for samples marked invalid.
	ErrInvalidGaze = errors.New("gaze: invalid sample")
)
