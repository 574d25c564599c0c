package tracking

import "github.com/teslashibe/go-screengaze/pkg/pose"

// surfaceState is the per-surface pose cache
type surfaceState struct {
	revision    uint64     // Definition revision the poses were computed for
	current     *pose.Pose // Pose from the latest frame, nil if none
	lastValid   *pose.Pose // Most recent successful estimate
	staleFrames int        // Consecutive frames lastValid has been reused
}

// detected records a fresh estimate.
func (s *surfaceState) detected(p *pose.Pose) {
	s.current = p
	s.lastValid = p
	s.staleFrames = 0
}

// failed clears the current pose but keeps the last valid one.
func (s *surfaceState) failed() {
	s.current = nil
}

// reuse returns the last valid pose if it may still be used.
func (s *surfaceState) reuse(maxStale int) (*pose.Pose, bool) {
	s.current = nil
	if s.lastValid == nil {
		return nil, false
	}
	if maxStale > 0 && s.staleFrames >= maxStale {
		return nil, false
	}
	s.staleFrames++
	return s.lastValid, true
}
