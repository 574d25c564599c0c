package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-screengaze/pkg/camera"
	"github.com/teslashibe/go-screengaze/pkg/gaze"
	"github.com/teslashibe/go-screengaze/pkg/geometry"
	"github.com/teslashibe/go-screengaze/pkg/protocol"
	"github.com/teslashibe/go-screengaze/pkg/tracking/detection"
)

const monitorLayout = `{
	"surfaces": [
		{
			"name": "Monitor",
			"width": 1920,
			"height": 1080,
			"markers": [
				{"id": 0, "corners": [[32, 32], [96, 32], [96, 96], [32, 96]]}
			]
		}
	]
}`

func newTestServer(t *testing.T, port string) (*Server, *gaze.Mapper) {
	t.Helper()
	mapper, err := gaze.NewMapper(camera.Calibration{
		FX: 800, FY: 800, CX: 640, CY: 360,
		DistCoeffs: []float64{0, 0, 0, 0},
	})
	if err != nil {
		t.Fatalf("NewMapper: %v", err)
	}
	return NewServer(port, mapper), mapper
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		t.Fatalf("decode %q: %v", body, err)
	}
}

func TestStatusEndpoint(t *testing.T) {
	s, _ := newTestServer(t, "0")
	s.SetEstimator("dlt")

	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status code = %d, want 200", resp.StatusCode)
	}

	var status protocol.StatusData
	decode(t, resp, &status)
	if status.Estimator != "dlt" {
		t.Errorf("Estimator = %q, want dlt", status.Estimator)
	}
	if status.Frames != 0 || status.Surfaces != 0 {
		t.Errorf("unexpected status %+v", status)
	}
}

func TestSurfaceEndpoints(t *testing.T) {
	s, mapper := newTestServer(t, "0")
	app := s.App()

	req := httptest.NewRequest(http.MethodPost, "/api/surfaces", strings.NewReader(monitorLayout))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST status = %d, want 201", resp.StatusCode)
	}

	var added protocol.SurfacesData
	decode(t, resp, &added)
	if len(added.Surfaces) != 1 || added.Surfaces[0].Name != "Monitor" {
		t.Fatalf("added = %+v", added)
	}
	uid := added.Surfaces[0].UID

	// Same marker again conflicts.
	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/api/surfaces", strings.NewReader(monitorLayout)))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate POST status = %d, want 409", resp.StatusCode)
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/api/surfaces", strings.NewReader(`{"surfaces": []}`)))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty POST status = %d, want 400", resp.StatusCode)
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/surfaces", nil))
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	var listed protocol.SurfacesData
	decode(t, resp, &listed)
	if len(listed.Surfaces) != 1 || listed.Surfaces[0].UID != uid {
		t.Errorf("listed = %+v", listed)
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodDelete, "/api/surfaces/"+uid, nil))
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("DELETE status = %d, want 204", resp.StatusCode)
	}
	if len(mapper.Surfaces()) != 0 {
		t.Error("surface should be removed")
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodDelete, "/api/surfaces/"+uid, nil))
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("second DELETE status = %d, want 404", resp.StatusCode)
	}
}

func TestReplaceSurfaceEndpoint(t *testing.T) {
	s, mapper := newTestServer(t, "0")
	app := s.App()

	def, err := mapper.AddSurface(map[int]geometry.Quad{0: {
		geometry.Pt(32, 32), geometry.Pt(96, 32), geometry.Pt(96, 96), geometry.Pt(32, 96),
	}}, geometry.Size{Width: 1920, Height: 1080}, "Monitor")
	if err != nil {
		t.Fatalf("AddSurface: %v", err)
	}
	if _, err := mapper.AddSurface(map[int]geometry.Quad{1: {
		geometry.Pt(0, 0), geometry.Pt(10, 0), geometry.Pt(10, 10), geometry.Pt(0, 10),
	}}, geometry.Size{Width: 100, Height: 100}, "Tablet"); err != nil {
		t.Fatalf("AddSurface: %v", err)
	}

	marker := detection.Marker{ID: 0, Confidence: 1, Corners: geometry.Quad{
		geometry.Pt(310, 200), geometry.Pt(410, 200), geometry.Pt(410, 300), geometry.Pt(310, 300),
	}}
	mapper.ProcessDetections([]detection.Marker{marker})

	put := func(t *testing.T, uid, body string) *http.Response {
		t.Helper()
		req := httptest.NewRequest(http.MethodPut, "/api/surfaces/"+uid, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("PUT: %v", err)
		}
		return resp
	}

	resp := put(t, def.UID, `{"name": "Monitor v2", "width": 1920, "height": 1080,
		"markers": [{"id": 0, "corners": [[0, 0], [1920, 0], [1920, 1080], [0, 1080]]}]}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("PUT status = %d, want 200", resp.StatusCode)
	}
	var replaced protocol.SurfacesData
	decode(t, resp, &replaced)
	if len(replaced.Surfaces) != 1 || replaced.Surfaces[0].UID != def.UID || replaced.Surfaces[0].Name != "Monitor v2" {
		t.Fatalf("replaced = %+v", replaced)
	}

	// The pose cached for the old layout is gone.
	result := mapper.ProcessDetections(nil, gaze.NewPoint(360, 250))
	if n := len(result.Mapped[def.UID]); n != 0 {
		t.Errorf("mapped %d samples through a pose from the old layout", n)
	}

	tests := []struct {
		name string
		uid  string
		body string
		want int
	}{
		{"unknown surface", "missing", `{"name": "x", "width": 1, "height": 1, "markers": [{"id": 5, "corners": [[0, 0], [1, 0], [1, 1], [0, 1]]}]}`, http.StatusNotFound},
		{"marker owned elsewhere", def.UID, `{"name": "x", "width": 100, "height": 100, "markers": [{"id": 1, "corners": [[0, 0], [10, 0], [10, 10], [0, 10]]}]}`, http.StatusConflict},
		{"no markers", def.UID, `{"name": "x", "width": 100, "height": 100, "markers": []}`, http.StatusBadRequest},
		{"not json", def.UID, `nope`, http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if resp := put(t, tc.uid, tc.body); resp.StatusCode != tc.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tc.want)
			}
		})
	}
}

func TestGazeWSRequiresUpgrade(t *testing.T) {
	s, _ := newTestServer(t, "0")

	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/ws/gaze", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusUpgradeRequired {
		t.Errorf("status code = %d, want 426", resp.StatusCode)
	}
}

func readMessage(t *testing.T, ws *websocket.Conn) *protocol.Message {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return msg
}

func TestGazeWebSocket(t *testing.T) {
	s, mapper := newTestServer(t, "18090")

	def, err := mapper.AddSurface(map[int]geometry.Quad{0: {
		geometry.Pt(32, 32), geometry.Pt(96, 32), geometry.Pt(96, 96), geometry.Pt(32, 96),
	}}, geometry.Size{Width: 1920, Height: 1080}, "Monitor")
	if err != nil {
		t.Fatalf("AddSurface: %v", err)
	}

	s.StartAsync()
	defer s.Shutdown()
	time.Sleep(100 * time.Millisecond)

	ws, _, err := websocket.DefaultDialer.Dial("ws://localhost:18090/ws/gaze", nil)
	if err != nil {
		t.Fatalf("WebSocket dial error: %v", err)
	}
	defer ws.Close()

	first := readMessage(t, ws)
	if first.Type != protocol.TypeSurfaces {
		t.Fatalf("first message type = %v, want surfaces", first.Type)
	}

	// Wait for the client to be registered
	time.Sleep(50 * time.Millisecond)
	if s.GetGazeHub().ClientCount() != 1 {
		t.Errorf("ClientCount = %d, want 1", s.GetGazeHub().ClientCount())
	}

	marker := detection.Marker{ID: 0, Confidence: 1, Corners: geometry.Quad{
		geometry.Pt(310, 200), geometry.Pt(410, 200), geometry.Pt(410, 300), geometry.Pt(310, 300),
	}}
	result := mapper.ProcessDetections([]detection.Marker{marker}, gaze.NewPoint(360, 250))
	if err := s.Publish(result); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	msg := readMessage(t, ws)
	if msg.Type != protocol.TypeGaze {
		t.Fatalf("message type = %v, want gaze", msg.Type)
	}
	data, err := msg.GetGazeData()
	if err != nil {
		t.Fatalf("GetGazeData: %v", err)
	}
	if len(data.Surfaces) != 1 || data.Surfaces[0].UID != def.UID {
		t.Fatalf("surfaces = %+v", data.Surfaces)
	}
	got := data.Surfaces[0]
	if got.Status != "detected" || len(got.Gaze) != 1 {
		t.Fatalf("surface = %+v", got)
	}
	if d := got.Gaze[0].PixelX - 64; d > 1e-6 || d < -1e-6 {
		t.Errorf("PixelX = %v, want 64", got.Gaze[0].PixelX)
	}

	status := s.Status()
	if status.Frames != 1 || status.Located != 1 {
		t.Errorf("status = %+v", status)
	}
}

func TestParseTopics(t *testing.T) {
	tests := []struct {
		raw  string
		want []protocol.MessageType
		skip []protocol.MessageType
	}{
		{"", []protocol.MessageType{protocol.TypeGaze, protocol.TypeStatus, protocol.TypeSurfaces}, nil},
		{"gaze", []protocol.MessageType{protocol.TypeGaze}, []protocol.MessageType{protocol.TypeStatus, protocol.TypeSurfaces}},
		{"status, surfaces", []protocol.MessageType{protocol.TypeStatus, protocol.TypeSurfaces}, []protocol.MessageType{protocol.TypeGaze}},
		{"bogus,gaze", []protocol.MessageType{protocol.TypeGaze}, []protocol.MessageType{protocol.TypeStatus}},
	}

	for _, tc := range tests {
		topics := parseTopics(tc.raw)
		for _, typ := range tc.want {
			if !topics.Wants(typ) {
				t.Errorf("parseTopics(%q) should want %s", tc.raw, typ)
			}
		}
		for _, typ := range tc.skip {
			if topics.Wants(typ) {
				t.Errorf("parseTopics(%q) should not want %s", tc.raw, typ)
			}
		}
	}
}

func TestGazeWebSocket_TopicFilter(t *testing.T) {
	s, _ := newTestServer(t, "18091")

	s.StartAsync()
	defer s.Shutdown()
	time.Sleep(100 * time.Millisecond)

	ws, _, err := websocket.DefaultDialer.Dial("ws://localhost:18091/ws/gaze?topics=status", nil)
	if err != nil {
		t.Fatalf("WebSocket dial error: %v", err)
	}
	defer ws.Close()

	// Wait for the client to be registered
	time.Sleep(50 * time.Millisecond)

	// The surfaces snapshot is filtered out; the next status is delivered.
	s.SetRunning(true)

	msg := readMessage(t, ws)
	if msg.Type != protocol.TypeStatus {
		t.Fatalf("message type = %v, want status", msg.Type)
	}
	data, err := msg.GetStatusData()
	if err != nil {
		t.Fatalf("GetStatusData: %v", err)
	}
	if !data.Running {
		t.Errorf("status = %+v, want running", data)
	}
}
