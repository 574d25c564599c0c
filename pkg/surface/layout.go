package surface

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"

	"github.com/teslashibe/go-screengaze/pkg/geometry"
)

// Layout is the on-disk description of one surface.
type Layout struct {
	Name    string         `json:"name"`
	Width   float64        `json:"width" validate:"gt=0"`
	Height  float64        `json:"height" validate:"gt=0"`
	Markers []MarkerLayout `json:"markers" validate:"required,min=1,dive"`
}

// MarkerLayout places one marker on a surface. Corners are listed top-left,
// top-right, bottom-right, bottom-left in surface units.
type MarkerLayout struct {
	ID      int          `json:"id" validate:"min=0"`
	Corners [][2]float64 `json:"corners" validate:"len=4"`
}

// LayoutFile is the root of a surfaces JSON file.
type LayoutFile struct {
	Surfaces []Layout `json:"surfaces" validate:"required,min=1,dive"`
}

var validate = validator.New()

// Quads converts the marker list to the registry's map form.
func (l Layout) Quads() (map[int]geometry.Quad, error) {
	out := make(map[int]geometry.Quad, len(l.Markers))
	for _, m := range l.Markers {
		if _, dup := out[m.ID]; dup {
			return nil, fmt.Errorf("%w: marker %d listed twice in %q", ErrInvalidSurfaceGeometry, m.ID, l.Name)
		}
		if len(m.Corners) != 4 {
			return nil, fmt.Errorf("%w: marker %d has %d corners, want 4", ErrInvalidSurfaceGeometry, m.ID, len(m.Corners))
		}
		var q geometry.Quad
		for i, c := range m.Corners {
			q[i] = geometry.Pt(c[0], c[1])
		}
		out[m.ID] = q
	}
	return out, nil
}

// Size returns the layout's surface size.
func (l Layout) Size() geometry.Size {
	return geometry.Size{Width: l.Width, Height: l.Height}
}

// LoadLayouts reads and validates a surfaces JSON file.
func LoadLayouts(path string) ([]Layout, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read layouts: %w", err)
	}
	return ParseLayouts(data)
}

// ParseLayouts decodes and validates surface layouts.
func ParseLayouts(data []byte) ([]Layout, error) {
	var file LayoutFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode layouts: %w", err)
	}
	if err := validate.Struct(file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSurfaceGeometry, err)
	}
	return file.Surfaces, nil
}

// ParseLayout decodes and validates a single surface layout.
func ParseLayout(data []byte) (Layout, error) {
	var l Layout
	if err := json.Unmarshal(data, &l); err != nil {
		return Layout{}, fmt.Errorf("decode layout: %w", err)
	}
	if err := validate.Struct(l); err != nil {
		return Layout{}, fmt.Errorf("%w: %v", ErrInvalidSurfaceGeometry, err)
	}
	return l, nil
}

// RegisterLayouts registers every layout, stopping at the first failure.
func (r *Registry) RegisterLayouts(layouts []Layout) ([]*Definition, error) {
	defs := make([]*Definition, 0, len(layouts))
	for _, l := range layouts {
		quads, err := l.Quads()
		if err != nil {
			return defs, err
		}
		def, err := r.Register(l.Name, quads, l.Size())
		if err != nil {
			return defs, fmt.Errorf("register %q: %w", l.Name, err)
		}
		defs = append(defs, def)
	}
	return defs, nil
}
