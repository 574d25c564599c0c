package surface

import (
	"fmt"
	"maps"
	"sync"

	"github.com/google/uuid"

	"github.com/teslashibe/go-screengaze/pkg/geometry"
)

// Registry owns the surface definitions and the marker id → surface index
// used to route detections each frame.
type Registry struct {
	mu       sync.RWMutex
	defs     []*Definition
	index    map[int]int // marker id -> position in defs
	revision uint64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[int]int)}
}

// Register validates and adds a surface, returning its definition with a
// fresh uid. On error the registry is left unchanged.
func (r *Registry) Register(name string, markers map[int]geometry.Quad, size geometry.Size) (*Definition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	def, err := r.build(uuid.NewString(), name, markers, size)
	if err != nil {
		return nil, err
	}
	r.defs = append(r.defs, def)
	r.reindex()
	return def, nil
}

// Replace re-registers an existing surface under the same uid. The surface
// may keep its own marker ids; ids owned by other surfaces are rejected.
func (r *Registry) Replace(uid, name string, markers map[int]geometry.Quad, size geometry.Size) (*Definition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pos := r.position(uid)
	if pos < 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, uid)
	}
	def, err := r.build(uid, name, markers, size)
	if err != nil {
		return nil, err
	}
	r.defs[pos] = def
	r.reindex()
	return def, nil
}

// Remove deletes a surface and frees its marker ids.
func (r *Registry) Remove(uid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	pos := r.position(uid)
	if pos < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, uid)
	}
	r.defs = append(r.defs[:pos], r.defs[pos+1:]...)
	r.reindex()
	return nil
}

// Clear removes every surface.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defs = nil
	r.reindex()
}

// Surfaces returns the definitions in registration order.
func (r *Registry) Surfaces() []*Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Definition, len(r.defs))
	copy(out, r.defs)
	return out
}

// Len returns the number of registered surfaces.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.defs)
}

// Get returns the surface with the given uid.
func (r *Registry) Get(uid string) (*Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if pos := r.position(uid); pos >= 0 {
		return r.defs[pos], nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, uid)
}

// Owner returns the surface a marker id is registered to.
func (r *Registry) Owner(markerID int) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pos, ok := r.index[markerID]
	if !ok {
		return nil, false
	}
	return r.defs[pos], true
}

// build validates a layout against the current index. Caller holds the lock.
func (r *Registry) build(uid, name string, markers map[int]geometry.Quad, size geometry.Size) (*Definition, error) {
	if err := validateGeometry(markers, size); err != nil {
		return nil, err
	}
	for id := range markers {
		if pos, ok := r.index[id]; ok && r.defs[pos].UID != uid {
			return nil, fmt.Errorf("%w: marker %d belongs to surface %s", ErrDuplicateMarkerAssignment, id, r.defs[pos].UID)
		}
	}

	r.revision++
	return &Definition{
		UID:      uid,
		Name:     name,
		Size:     size,
		Markers:  maps.Clone(markers),
		Revision: r.revision,
	}, nil
}

func (r *Registry) position(uid string) int {
	for i, d := range r.defs {
		if d.UID == uid {
			return i
		}
	}
	return -1
}

func (r *Registry) reindex() {
	r.index = make(map[int]int, len(r.index))
	for i, d := range r.defs {
		for id := range d.Markers {
			r.index[id] = i
		}
	}
}
