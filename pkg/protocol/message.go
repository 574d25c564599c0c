// Package protocol defines the JSON messages streamed to dashboard clients
// and written by the command line runner.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType identifies the type of a message
type MessageType string

const (
	TypeGaze     MessageType = "gaze"     // Per-frame surface locations and mapped gaze
	TypeSurfaces MessageType = "surfaces" // Registered surface list changed
	TypeStatus   MessageType = "status"   // Pipeline status

	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Message is the envelope for every message
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data any) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into v
func (m *Message) ParseData(v any) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	return &msg, nil
}

// =============================================================================
// Payloads
// =============================================================================

// GazeData is one processed frame
type GazeData struct {
	Frame     uint64        `json:"frame"`
	Timestamp int64         `json:"frame_ts,omitempty"` // Unix nanoseconds of the first gaze sample
	Markers   []MarkerData  `json:"markers"`
	Surfaces  []SurfaceGaze `json:"surfaces"`
}

// MarkerData is a detected marker
type MarkerData struct {
	ID         int           `json:"id"`
	Corners    [4][2]float64 `json:"corners"` // Image pixels, clockwise from top-left
	Confidence float64       `json:"confidence"`
}

// SurfaceGaze is a surface's location and the gaze mapped onto it
type SurfaceGaze struct {
	UID      string       `json:"uid"`
	Name     string       `json:"name"`
	Status   string       `json:"status"` // "detected", "stale" or "unresolved"
	Markers  []int        `json:"markers,omitempty"`
	Residual float64      `json:"residual,omitempty"` // Mean reprojection error, pixels
	Error    string       `json:"error,omitempty"`
	Gaze     []MappedGaze `json:"gaze"`
}

// MappedGaze is one gaze sample on a surface
type MappedGaze struct {
	X         float64 `json:"x"` // Normalized
	Y         float64 `json:"y"`
	PixelX    float64 `json:"pixel_x"`
	PixelY    float64 `json:"pixel_y"`
	OnSurface bool    `json:"on_surface"`
	Stale     bool    `json:"stale,omitempty"`
	Timestamp int64   `json:"ts,omitempty"` // Unix nanoseconds of the source sample
}

// SurfacesData lists the registered surfaces
type SurfacesData struct {
	Surfaces []SurfaceInfo `json:"surfaces"`
}

// SurfaceInfo describes a registered surface
type SurfaceInfo struct {
	UID     string  `json:"uid"`
	Name    string  `json:"name"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Markers []int   `json:"markers"`
}

// StatusData contains pipeline status
type StatusData struct {
	Running   bool   `json:"running"`
	Frames    uint64 `json:"frames"`
	Surfaces  int    `json:"surfaces"`
	Located   int    `json:"located"` // Surfaces with a pose in the last frame
	Clients   int    `json:"clients"`
	Estimator string `json:"estimator,omitempty"`
	Uptime    string `json:"uptime,omitempty"`
}

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
