// Package detection defines fiducial marker detections and the detector
// backends that produce them.
package detection

import (
	"errors"

	"github.com/teslashibe/go-screengaze/pkg/geometry"
)

// ErrEmptyFrame is returned when a frame cannot be decoded into an image.
var ErrEmptyFrame = errors.New("detection: empty frame")

// Marker is one detected fiducial marker.
type Marker struct {
	ID         int           `json:"id"`
	Corners    geometry.Quad `json:"corners"`    // Raw image pixels, TL, TR, BR, BL
	Confidence float64       `json:"confidence"` // Decoding confidence (0-1)
}

// Center returns the centroid of the marker corners.
func (m Marker) Center() geometry.Point {
	return m.Corners.Centroid()
}

// Detector is the interface for marker detection backends
type Detector interface {
	// Detect finds markers in an encoded image (JPEG/PNG)
	Detect(frame []byte) ([]Marker, error)

	// Close releases resources
	Close() error
}

// Config holds detector configuration
type Config struct {
	Family        string  // Tag family, e.g. "tag36h11"
	RefineCorners bool    // Sub-pixel corner refinement
	MinConfidence float64 // Drop detections below this confidence
}

// DefaultConfig returns production defaults for AprilTag tag36h11 markers.
func DefaultConfig() Config {
	return Config{
		Family:        "tag36h11",
		RefineCorners: true,
		MinConfidence: 0,
	}
}

// Dedupe keeps one detection per marker id, the one with the highest
// confidence. Order of first appearance is preserved.
func Dedupe(markers []Marker) []Marker {
	if len(markers) < 2 {
		return markers
	}

	pos := make(map[int]int, len(markers))
	out := make([]Marker, 0, len(markers))
	for _, m := range markers {
		i, seen := pos[m.ID]
		if !seen {
			pos[m.ID] = len(out)
			out = append(out, m)
			continue
		}
		if m.Confidence > out[i].Confidence {
			out[i] = m
		}
	}
	return out
}

// Filter drops detections below minConfidence.
func Filter(markers []Marker, minConfidence float64) []Marker {
	if minConfidence <= 0 {
		return markers
	}
	out := make([]Marker, 0, len(markers))
	for _, m := range markers {
		if m.Confidence >= minConfidence {
			out = append(out, m)
		}
	}
	return out
}
