// Package screengaze runs the gaze mapping pipeline over a recorded scene
// video and gaze stream.
package screengaze

import (
	"time"

	"github.com/teslashibe/go-screengaze/internal/config"
	"github.com/teslashibe/go-screengaze/pkg/pose"
	"github.com/teslashibe/go-screengaze/pkg/tracking"
	"github.com/teslashibe/go-screengaze/pkg/tracking/detection"
)

// Config holds all configuration for a pipeline run.
// Flag parsing is done in cmd/screengaze/main.go; this struct is data only.
type Config struct {
	// Debug enables verbose debug logging.
	Debug bool

	// Inputs.
	VideoPath    string // Scene camera video
	GazePath     string // Gaze CSV; empty runs detection only
	SurfacesPath string // Surface layouts JSON

	// VideoStart is the wall clock time of the first video frame.
	// Zero aligns the first frame with the first gaze sample.
	VideoStart time.Time

	// Calibration comes from CalibrationPath when set, otherwise from the
	// cloud service for Serial.
	CalibrationPath string
	Serial          string
	CacheDir        string
	CloudEndpoint   string

	// Estimator is "dlt", "ransac" or "opencv".
	Estimator string

	// DashboardPort serves the live dashboard; empty disables it.
	DashboardPort string

	Detector detection.Config
	Tracker  tracking.Config
}

// DefaultConfig returns sensible defaults for a pipeline run.
func DefaultConfig() Config {
	return Config{
		Serial:        config.DefaultSerial,
		CacheDir:      config.DefaultCacheDir,
		CloudEndpoint: config.DefaultCloudEndpoint,
		Estimator:     "dlt",
		Detector:      detection.DefaultConfig(),
		Tracker:       tracking.DefaultConfig(),
	}
}

// LoadEnvConfig fills settings that were left at their defaults from the
// environment. Call this after flag parsing.
func (c *Config) LoadEnvConfig() {
	if c.Serial == config.DefaultSerial {
		c.Serial = config.SceneCameraSerial()
	}
	if c.CacheDir == config.DefaultCacheDir {
		c.CacheDir = config.CacheDir()
	}
	if c.CloudEndpoint == config.DefaultCloudEndpoint {
		c.CloudEndpoint = config.CloudEndpoint()
	}
	if c.Tracker.MinMarkerConfidence == tracking.DefaultConfig().MinMarkerConfidence {
		c.Tracker.MinMarkerConfidence = config.Float("SCREENGAZE_MIN_MARKER_CONFIDENCE", c.Tracker.MinMarkerConfidence)
	}
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.VideoPath == "" {
		return &ConfigError{Field: "VideoPath", Message: "a scene video is required (-video)"}
	}
	if c.SurfacesPath == "" {
		return &ConfigError{Field: "SurfacesPath", Message: "a surfaces file is required (-surfaces)"}
	}
	if c.CalibrationPath == "" && c.Serial == "" {
		return &ConfigError{Field: "Serial", Message: "either -calibration or a scene camera serial is required"}
	}
	if _, err := pose.ByName(c.Estimator); err != nil {
		return &ConfigError{Field: "Estimator", Message: err.Error()}
	}
	if err := c.Tracker.Validate(); err != nil {
		return &ConfigError{Field: "Tracker", Message: err.Error()}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}
