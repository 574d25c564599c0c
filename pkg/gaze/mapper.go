// Package gaze maps gaze samples from the scene camera onto registered
// marker-tagged surfaces.
package gaze

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"github.com/teslashibe/go-screengaze/internal/log"
	"github.com/teslashibe/go-screengaze/pkg/camera"
	"github.com/teslashibe/go-screengaze/pkg/geometry"
	"github.com/teslashibe/go-screengaze/pkg/pose"
	"github.com/teslashibe/go-screengaze/pkg/surface"
	"github.com/teslashibe/go-screengaze/pkg/tracking"
	"github.com/teslashibe/go-screengaze/pkg/tracking/detection"
)

// Result is the outcome of processing one frame.
type Result struct {
	Frame     uint64                       `json:"frame"`
	Markers   []detection.Marker           `json:"markers"`
	Locations map[string]tracking.Location `json:"-"`

	// Every registered surface has a key. Surfaces without a pose map to
	// an empty list.
	Mapped map[string][]Mapped `json:"mapped"`
}

// Mapper ties the camera model, surface registry and tracker together.
// Its methods are serialized and safe for concurrent use.
type Mapper struct {
	mu sync.Mutex

	camera    *camera.Model
	registry  *surface.Registry
	tracker   *tracking.Tracker
	detector  detection.Detector
	estimator pose.Estimator
	logger    *slog.Logger

	trackerConfig tracking.Config
	last          Result
}

// NewMapper creates a mapper for a scene camera. An invalid calibration
// fails immediately with camera.ErrInvalidCalibration.
func NewMapper(cal camera.Calibration, opts ...Option) (*Mapper, error) {
	cam, err := camera.New(cal)
	if err != nil {
		return nil, err
	}

	m := &Mapper{
		camera:        cam,
		registry:      surface.NewRegistry(),
		estimator:     pose.DLT{},
		logger:        log.Component("gaze"),
		trackerConfig: tracking.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if err := m.trackerConfig.Validate(); err != nil {
		return nil, err
	}

	m.tracker = tracking.New(cam, m.registry, m.estimator, m.trackerConfig)
	m.tracker.SetLogger(m.logger.With("component", "tracking"))
	return m, nil
}

// Camera returns the scene camera model.
func (m *Mapper) Camera() *camera.Model {
	return m.camera
}

// AddSurface registers a surface from its markers' corners (surface units,
// origin top-left, clockwise from each marker's top-left corner).
func (m *Mapper) AddSurface(markers map[int]geometry.Quad, size geometry.Size, name string) (*surface.Definition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	def, err := m.registry.Register(name, markers, size)
	if err != nil {
		return nil, err
	}
	m.logger.Info("surface added", "surface", name, "uid", def.UID, "markers", def.MarkerIDs())
	return def, nil
}

// ReplaceSurface re-registers a surface under its uid. The tracker drops the
// surface's cached pose, so it stays unresolved until its markers are seen
// again.
func (m *Mapper) ReplaceSurface(uid string, markers map[int]geometry.Quad, size geometry.Size, name string) (*surface.Definition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	def, err := m.registry.Replace(uid, name, markers, size)
	if err != nil {
		return nil, err
	}
	// The last result was computed against the old geometry.
	if _, ok := m.last.Locations[uid]; ok {
		m.last.Locations = maps.Clone(m.last.Locations)
		delete(m.last.Locations, uid)
	}
	m.logger.Info("surface replaced", "surface", name, "uid", uid, "markers", def.MarkerIDs())
	return def, nil
}

// AddLayouts registers every layout, stopping at the first invalid one.
func (m *Mapper) AddLayouts(layouts []surface.Layout) ([]*surface.Definition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.registry.RegisterLayouts(layouts)
}

// RemoveSurface unregisters a surface and drops its cached pose.
func (m *Mapper) RemoveSurface(uid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.registry.Remove(uid); err != nil {
		return err
	}
	m.tracker.Forget(uid)
	return nil
}

// ClearSurfaces unregisters every surface.
func (m *Mapper) ClearSurfaces() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.registry.Clear()
	m.tracker.Reset()
}

// Surfaces returns the registered surfaces in registration order.
func (m *Mapper) Surfaces() []*surface.Definition {
	return m.registry.Surfaces()
}

// Last returns the most recent result.
func (m *Mapper) Last() Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// ProcessFrame detects markers in an encoded frame and maps the gaze
// samples. Only a detector failure is returned as an error.
func (m *Mapper) ProcessFrame(ctx context.Context, frame []byte, samples ...Point) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if m.detector == nil {
		return Result{}, ErrNoDetector
	}

	markers, err := m.detector.Detect(frame)
	if err != nil {
		return Result{}, fmt.Errorf("gaze: detect markers: %w", err)
	}
	return m.ProcessDetections(markers, samples...), nil
}

// ProcessDetections locates the surfaces from already detected markers and
// maps each valid gaze sample onto every located surface.
func (m *Mapper) ProcessDetections(markers []detection.Marker, samples ...Point) Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	locations := m.tracker.Update(markers)
	result := Result{
		Frame:     m.tracker.Frame(),
		Markers:   markers,
		Locations: locations,
		Mapped:    make(map[string][]Mapped, len(locations)),
	}

	undistorted := m.undistort(samples)
	for _, def := range m.registry.Surfaces() {
		loc, ok := locations[def.UID]
		mapped := make([]Mapped, 0, len(undistorted))
		if ok && loc.Resolved() {
			for _, u := range undistorted {
				if mg, ok := project(def, loc, u.pixel, u.base); ok {
					mapped = append(mapped, mg)
				}
			}
		}
		result.Mapped[def.UID] = mapped
	}

	m.last = result
	return result
}

// MapPoint maps a single sample onto one surface using the pose from the
// most recent frame.
func (m *Mapper) MapPoint(uid string, sample Point) (Mapped, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	def, err := m.registry.Get(uid)
	if err != nil {
		return Mapped{}, err
	}
	if !sample.Valid {
		return Mapped{}, ErrInvalidGaze
	}
	loc, ok := m.last.Locations[uid]
	if !ok || !loc.Resolved() {
		return Mapped{}, fmt.Errorf("%w: %s", ErrNoPose, uid)
	}

	u, err := m.camera.Undistort(sample.Pixel())
	if err != nil {
		return Mapped{}, err
	}
	mg, ok := project(def, loc, u, sample)
	if !ok {
		return Mapped{}, fmt.Errorf("%w: sample maps to infinity", ErrNoPose)
	}
	return mg, nil
}

// Close releases the detector.
func (m *Mapper) Close() error {
	if m.detector == nil {
		return nil
	}
	return m.detector.Close()
}

type undistortedSample struct {
	pixel geometry.Point
	base  Point
}

// undistort converts each valid sample once, skipping the rest.
func (m *Mapper) undistort(samples []Point) []undistortedSample {
	out := make([]undistortedSample, 0, len(samples))
	for _, s := range samples {
		if !s.Valid {
			continue
		}
		u, err := m.camera.Undistort(s.Pixel())
		if err != nil {
			m.logger.Debug("gaze sample dropped", "x", s.X, "y", s.Y, "error", err)
			continue
		}
		out = append(out, undistortedSample{pixel: u, base: s})
	}
	return out
}

// project maps an undistorted image point through a surface's inverse
// homography.
func project(def *surface.Definition, loc tracking.Location, pixel geometry.Point, base Point) (Mapped, bool) {
	onSurface, ok := loc.Pose.Inverse.Apply(pixel)
	if !ok {
		return Mapped{}, false
	}
	norm := def.Normalize(onSurface)
	return Mapped{
		SurfaceUID: def.UID,
		X:          norm.X,
		Y:          norm.Y,
		PixelX:     onSurface.X,
		PixelY:     onSurface.Y,
		OnSurface:  onUnitSquare(norm),
		Stale:      loc.Status == tracking.Stale,
		Base:       base,
	}, true
}
