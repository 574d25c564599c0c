// Package tracking locates registered surfaces in each frame from their
// detected markers and keeps the last valid pose per surface.
package tracking

import (
	"log/slog"

	"github.com/teslashibe/go-screengaze/internal/log"
	"github.com/teslashibe/go-screengaze/pkg/camera"
	"github.com/teslashibe/go-screengaze/pkg/geometry"
	"github.com/teslashibe/go-screengaze/pkg/pose"
	"github.com/teslashibe/go-screengaze/pkg/surface"
	"github.com/teslashibe/go-screengaze/pkg/tracking/detection"
)

// Tracker turns marker detections into surface locations.
//
// Update is the only method that mutates the pose cache; a Tracker must not
// be updated from more than one goroutine at a time.
type Tracker struct {
	config    Config
	camera    *camera.Model
	registry  *surface.Registry
	estimator pose.Estimator
	logger    *slog.Logger

	states map[string]*surfaceState
	frame  uint64
}

// New creates a tracker. A nil estimator defaults to the DLT estimator.
func New(cam *camera.Model, reg *surface.Registry, est pose.Estimator, cfg Config) *Tracker {
	if est == nil {
		est = pose.DLT{}
	}
	return &Tracker{
		config:    cfg,
		camera:    cam,
		registry:  reg,
		estimator: est,
		logger:    log.Component("tracking"),
		states:    make(map[string]*surfaceState),
	}
}

// SetLogger replaces the tracker's logger.
func (t *Tracker) SetLogger(l *slog.Logger) {
	if l != nil {
		t.logger = l
	}
}

// Config returns the tracker configuration.
func (t *Tracker) Config() Config {
	return t.config
}

// Frame returns the number of Update calls so far.
func (t *Tracker) Frame() uint64 {
	return t.frame
}

// Update locates every registered surface from one frame's detections.
// Every registered surface gets an entry in the result. Estimation failures
// are reported through Location.Err, never returned.
func (t *Tracker) Update(markers []detection.Marker) map[string]Location {
	t.frame++

	defs := t.registry.Surfaces()
	corrs := t.correspondences(markers)

	locations := make(map[string]Location, len(defs))
	live := make(map[string]bool, len(defs))
	for _, def := range defs {
		live[def.UID] = true
		locations[def.UID] = t.locate(def, corrs[def.UID])
	}

	// Surfaces removed from the registry lose their cache.
	for uid := range t.states {
		if !live[uid] {
			delete(t.states, uid)
		}
	}
	return locations
}

// LastValid returns the most recent successful pose for a surface.
func (t *Tracker) LastValid(uid string) (*pose.Pose, bool) {
	st, ok := t.states[uid]
	if !ok || st.lastValid == nil {
		return nil, false
	}
	if def, err := t.registry.Get(uid); err != nil || def.Revision != st.revision {
		return nil, false
	}
	return st.lastValid, true
}

// Forget drops the cached poses for a surface.
func (t *Tracker) Forget(uid string) {
	delete(t.states, uid)
}

// Reset drops every cached pose.
func (t *Tracker) Reset() {
	t.states = make(map[string]*surfaceState)
}

// correspondences groups usable detections by owning surface and pairs
// their corners with the registered ones.
func (t *Tracker) correspondences(markers []detection.Marker) map[string][]pose.Correspondence {
	markers = detection.Filter(detection.Dedupe(markers), t.config.MinMarkerConfidence)

	out := make(map[string][]pose.Correspondence)
	for _, m := range markers {
		def, ok := t.registry.Owner(m.ID)
		if !ok {
			continue
		}
		registered := def.Markers[m.ID]

		image, err := t.imageCorners(m)
		if err != nil {
			t.logger.Debug("marker corners dropped", "marker", m.ID, "error", err)
			continue
		}
		for i := range registered {
			out[def.UID] = append(out[def.UID], pose.Correspondence{
				Surface:  registered[i],
				Image:    image[i],
				Weight:   m.Confidence,
				MarkerID: m.ID,
			})
		}
	}
	return out
}

func (t *Tracker) imageCorners(m detection.Marker) ([]geometry.Point, error) {
	if !t.config.UndistortCorners || t.camera == nil {
		return m.Corners[:], nil
	}
	return t.camera.UndistortAll(m.Corners[:])
}

func (t *Tracker) locate(def *surface.Definition, corrs []pose.Correspondence) Location {
	st := t.state(def)
	loc := Location{SurfaceUID: def.UID}

	if len(corrs) == 0 {
		if p, ok := st.reuse(t.config.MaxStaleFrames); ok {
			loc.Status = Stale
			loc.Pose = p
			loc.StaleFrames = st.staleFrames
		}
		return loc
	}

	p, err := t.estimator.Estimate(corrs)
	if err != nil {
		st.failed()
		loc.Err = err
		t.logger.Debug("surface unresolved", "surface", def.Name, "uid", def.UID, "error", err)
		return loc
	}

	st.detected(p)
	loc.Status = Detected
	loc.Pose = p
	return loc
}

// state returns the cache entry for a surface, resetting it when the
// definition has been replaced since the poses were computed.
func (t *Tracker) state(def *surface.Definition) *surfaceState {
	st, ok := t.states[def.UID]
	if !ok || st.revision != def.Revision {
		st = &surfaceState{revision: def.Revision}
		t.states[def.UID] = st
	}
	return st
}
