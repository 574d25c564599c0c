package detection

import "sync"

// MockDetector replays scripted detections, one slice per Detect call.
type MockDetector struct {
	mu     sync.Mutex
	frames [][]Marker
	err    error
	calls  int
	closed bool
}

// NewMock creates a mock detector that returns frames in order and then
// keeps returning the last one.
func NewMock(frames ...[]Marker) *MockDetector {
	return &MockDetector{frames: frames}
}

// SetError makes subsequent Detect calls fail.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Detect implements Detector.
func (m *MockDetector) Detect(frame []byte) ([]Marker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if len(m.frames) == 0 {
		return nil, nil
	}
	i := m.calls - 1
	if i >= len(m.frames) {
		i = len(m.frames) - 1
	}
	out := make([]Marker, len(m.frames[i]))
	copy(out, m.frames[i])
	return out, nil
}

// Calls returns how many times Detect was called.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Closed reports whether Close was called.
func (m *MockDetector) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Close implements Detector.
func (m *MockDetector) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
