package tracking

import (
	"fmt"

	"github.com/teslashibe/go-screengaze/pkg/pose"
)

// Status describes how a surface's pose was obtained this frame.
type Status int

const (
	// Unresolved means no pose is available.
	Unresolved Status = iota
	// Detected means the pose was estimated from this frame's markers.
	Detected
	// Stale means none of the surface's markers were seen and the last
	// valid pose is reused.
	Stale
)

var statusNames = map[Status]string{
	Unresolved: "unresolved",
	Detected:   "detected",
	Stale:      "stale",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Location is a surface's tracking result for one frame.
type Location struct {
	SurfaceUID  string
	Status      Status
	Pose        *pose.Pose // nil when Unresolved
	StaleFrames int        // Consecutive frames the pose has been reused
	Err         error      // Estimator failure this frame, if any
}

// Resolved reports whether the location carries a pose.
func (l Location) Resolved() bool {
	return l.Pose != nil
}
