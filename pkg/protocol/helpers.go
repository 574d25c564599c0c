package protocol

import (
	"github.com/teslashibe/go-screengaze/pkg/gaze"
	"github.com/teslashibe/go-screengaze/pkg/surface"
)

// =============================================================================
// Conversions
// =============================================================================

// Surfaces describes registered surface definitions.
func Surfaces(defs []*surface.Definition) SurfacesData {
	out := SurfacesData{Surfaces: make([]SurfaceInfo, 0, len(defs))}
	for _, d := range defs {
		out.Surfaces = append(out.Surfaces, SurfaceInfo{
			UID:     d.UID,
			Name:    d.Name,
			Width:   d.Size.Width,
			Height:  d.Size.Height,
			Markers: d.MarkerIDs(),
		})
	}
	return out
}

// Gaze converts a mapper result. Surfaces appear in the order of defs;
// surfaces missing from the result are skipped.
func Gaze(result gaze.Result, defs []*surface.Definition) GazeData {
	data := GazeData{
		Frame:    result.Frame,
		Markers:  make([]MarkerData, 0, len(result.Markers)),
		Surfaces: make([]SurfaceGaze, 0, len(defs)),
	}

	for _, m := range result.Markers {
		md := MarkerData{ID: m.ID, Confidence: m.Confidence}
		for i, c := range m.Corners {
			md.Corners[i] = [2]float64{c.X, c.Y}
		}
		data.Markers = append(data.Markers, md)
	}

	for _, d := range defs {
		mapped, ok := result.Mapped[d.UID]
		if !ok {
			continue
		}
		sg := SurfaceGaze{UID: d.UID, Name: d.Name, Gaze: make([]MappedGaze, 0, len(mapped))}
		if loc, ok := result.Locations[d.UID]; ok {
			sg.Status = loc.Status.String()
			if loc.Pose != nil {
				sg.Markers = loc.Pose.MarkerIDs
				sg.Residual = loc.Pose.Residual
			}
			if loc.Err != nil {
				sg.Error = loc.Err.Error()
			}
		}
		for _, g := range mapped {
			mg := MappedGaze{
				X:         g.X,
				Y:         g.Y,
				PixelX:    g.PixelX,
				PixelY:    g.PixelY,
				OnSurface: g.OnSurface,
				Stale:     g.Stale,
			}
			if !g.Base.Timestamp.IsZero() {
				mg.Timestamp = g.Base.Timestamp.UnixNano()
				if data.Timestamp == 0 {
					data.Timestamp = mg.Timestamp
				}
			}
			sg.Gaze = append(sg.Gaze, mg)
		}
		data.Surfaces = append(data.Surfaces, sg)
	}
	return data
}

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewGazeMessage creates a gaze message from a mapper result
func NewGazeMessage(result gaze.Result, defs []*surface.Definition) (*Message, error) {
	return NewMessage(TypeGaze, Gaze(result, defs))
}

// NewSurfacesMessage creates a surface list message
func NewSurfacesMessage(defs []*surface.Definition) (*Message, error) {
	return NewMessage(TypeSurfaces, Surfaces(defs))
}

// NewStatusMessage creates a status message
func NewStatusMessage(status StatusData) (*Message, error) {
	return NewMessage(TypeStatus, status)
}

// NewPingMessage creates a ping message
func NewPingMessage(id string) (*Message, error) {
	return NewMessage(TypePing, PingData{ID: id})
}

// NewPongMessage creates a pong response message
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

// =============================================================================
// Helper functions for parsing messages
// =============================================================================

// GetGazeData extracts gaze data from a message
func (m *Message) GetGazeData() (*GazeData, error) {
	var data GazeData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetSurfacesData extracts the surface list from a message
func (m *Message) GetSurfacesData() (*SurfacesData, error) {
	var data SurfacesData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetStatusData extracts status from a message
func (m *Message) GetStatusData() (*StatusData, error) {
	var data StatusData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPingData extracts ping data from a message
func (m *Message) GetPingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPongData extracts pong data from a message
func (m *Message) GetPongData() (*PongData, error) {
	var data PongData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
