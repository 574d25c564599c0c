package gaze

import (
	"log/slog"

	"github.com/teslashibe/go-screengaze/pkg/pose"
	"github.com/teslashibe/go-screengaze/pkg/tracking"
	"github.com/teslashibe/go-screengaze/pkg/tracking/detection"
)

// Option configures a Mapper.
type Option func(*Mapper)

// WithEstimator sets the pose estimator. The default is pose.DLT.
func WithEstimator(est pose.Estimator) Option {
	return func(m *Mapper) {
		if est != nil {
			m.estimator = est
		}
	}
}

// WithDetector sets the marker detector used by ProcessFrame. The mapper
// takes ownership and closes it in Close.
func WithDetector(d detection.Detector) Option {
	return func(m *Mapper) {
		m.detector = d
	}
}

// WithTrackerConfig overrides the surface tracker configuration.
func WithTrackerConfig(cfg tracking.Config) Option {
	return func(m *Mapper) {
		m.trackerConfig = cfg
	}
}

// WithLogger sets the logger for the mapper and its tracker.
func WithLogger(l *slog.Logger) Option {
	return func(m *Mapper) {
		if l != nil {
			m.logger = l
		}
	}
}
