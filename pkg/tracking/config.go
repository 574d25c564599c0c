package tracking

import "fmt"

// Config holds the tunable parameters for surface tracking
type Config struct {
	// Detections below this confidence are ignored (0-1)
	MinMarkerConfidence float64

	// Undistort detected corners through the camera model before
	// estimating. Disable only for frames that are already rectified.
	UndistortCorners bool

	// How many consecutive frames a surface may be reported Stale after
	// its markers disappear. 0 means no limit.
	MaxStaleFrames int
}

// DefaultConfig returns the configuration used by the gaze mapper
func DefaultConfig() Config {
	return Config{
		MinMarkerConfidence: 0.0,
		UndistortCorners:    true,
		MaxStaleFrames:      0,
	}
}

// StrictConfig bridges a single frame without markers with the last pose,
// then reports the surface Unresolved until its markers are seen again.
func StrictConfig() Config {
	cfg := DefaultConfig()
	cfg.MaxStaleFrames = 1
	return cfg
}

// Validate checks the config for out-of-range values.
func (c Config) Validate() error {
	if c.MinMarkerConfidence < 0 || c.MinMarkerConfidence > 1 {
		return fmt.Errorf("%w: MinMarkerConfidence %v outside [0, 1]", ErrInvalidConfig, c.MinMarkerConfidence)
	}
	if c.MaxStaleFrames < 0 {
		return fmt.Errorf("%w: MaxStaleFrames %d is negative", ErrInvalidConfig, c.MaxStaleFrames)
	}
	return nil
}
