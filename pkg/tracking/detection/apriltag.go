package detection

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-screengaze/internal/log"
	"github.com/teslashibe/go-screengaze/pkg/geometry"
)

// cornerRefineSubpix selects cv::aruco::CORNER_REFINE_SUBPIX.
const cornerRefineSubpix = 1

var families = map[string]gocv.ArucoDictionaryCode{
	"tag16h5":  gocv.ArucoDictAprilTag_16h5,
	"tag25h9":  gocv.ArucoDictAprilTag_25h9,
	"tag36h10": gocv.ArucoDictAprilTag_36h10,
	"tag36h11": gocv.ArucoDictAprilTag_36h11,
}

// AprilTagDetector finds AprilTag markers with OpenCV's ArUco module.
// Corners come back clockwise from the tag's top-left, matching the
// registered surface convention.
type AprilTagDetector struct {
	detector gocv.ArucoDetector
	config   Config
	mu       sync.Mutex // Protects inference
}

// NewAprilTag creates a detector for the configured tag family.
func NewAprilTag(cfg Config) (*AprilTagDetector, error) {
	dict, ok := families[cfg.Family]
	if !ok {
		return nil, fmt.Errorf("unsupported tag family %q", cfg.Family)
	}

	params := gocv.NewArucoDetectorParameters()
	if cfg.RefineCorners {
		params.SetCornerRefinementMethod(cornerRefineSubpix)
	}

	return &AprilTagDetector{
		detector: gocv.NewArucoDetectorWithParams(gocv.GetPredefinedDictionary(dict), params),
		config:   cfg,
	}, nil
}

// Detect finds markers in an encoded image.
func (d *AprilTagDetector) Detect(frame []byte) ([]Marker, error) {
	img, err := gocv.IMDecode(frame, gocv.IMReadGrayScale)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	defer img.Close()

	return d.DetectMat(img)
}

// DetectMat finds markers in a decoded BGR or grayscale image.
func (d *AprilTagDetector) DetectMat(img gocv.Mat) ([]Marker, error) {
	if img.Empty() {
		return nil, ErrEmptyFrame
	}

	gray := img
	if img.Channels() > 1 {
		gray = gocv.NewMat()
		defer gray.Close()
		gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)
	}

	d.mu.Lock()
	corners, ids, _ := d.detector.DetectMarkers(gray)
	d.mu.Unlock()

	markers := make([]Marker, 0, len(ids))
	for i, id := range ids {
		if i >= len(corners) || len(corners[i]) != 4 {
			continue
		}
		var q geometry.Quad
		for c, p := range corners[i] {
			q[c] = geometry.Pt(float64(p.X), float64(p.Y))
		}
		// ArUco reports no decoding margin; every accepted tag is certain.
		markers = append(markers, Marker{ID: id, Corners: q, Confidence: 1})
	}

	markers = Filter(Dedupe(markers), d.config.MinConfidence)
	if len(markers) > 0 {
		log.Debug("apriltag markers detected", "count", len(markers))
	}
	return markers, nil
}

// Close releases the detector resources
func (d *AprilTagDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.detector.Close()
	return nil
}
