package screengaze

import (
	"context"
	"fmt"
	"io"
	"time"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-screengaze/pkg/tracking/detection"
)

// Frame is one video frame's marker detections.
type Frame struct {
	Index   int
	Offset  time.Duration // Position in the video
	Markers []detection.Marker
}

// FrameSource yields frames in order and io.EOF after the last one.
type FrameSource interface {
	Next(ctx context.Context) (Frame, error)
	Close() error
}

// VideoSource decodes a video file with gocv and detects markers in each frame.
type VideoSource struct {
	capture  *gocv.VideoCapture
	detector *detection.AprilTagDetector
	img      gocv.Mat
	index    int
}

// OpenVideo opens a video file for marker detection.
func OpenVideo(path string, cfg detection.Config) (*VideoSource, error) {
	detector, err := detection.NewAprilTag(cfg)
	if err != nil {
		return nil, err
	}
	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		detector.Close()
		return nil, fmt.Errorf("open video %s: %w", path, err)
	}
	return &VideoSource{
		capture:  capture,
		detector: detector,
		img:      gocv.NewMat(),
	}, nil
}

// Next implements FrameSource.
func (v *VideoSource) Next(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	if ok := v.capture.Read(&v.img); !ok || v.img.Empty() {
		return Frame{}, io.EOF
	}

	offset := time.Duration(v.capture.Get(gocv.VideoCapturePosMsec) * float64(time.Millisecond))
	markers, err := v.detector.DetectMat(v.img)
	if err != nil {
		return Frame{}, fmt.Errorf("frame %d: %w", v.index, err)
	}

	f := Frame{Index: v.index, Offset: offset, Markers: markers}
	v.index++
	return f, nil
}

// Close releases the capture and detector.
func (v *VideoSource) Close() error {
	v.img.Close()
	v.detector.Close()
	return v.capture.Close()
}
