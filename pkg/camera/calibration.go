// Package camera models the scene camera: intrinsic calibration and
// pixel/ray conversion with radial and tangential lens distortion.
package camera

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
)

// Accepted distortion vector lengths (OpenCV order k1,k2,p1,p2[,k3[,k4,k5,k6]]).
var validDistortionLengths = map[int]bool{4: true, 5: true, 8: true}

// Calibration holds the intrinsics of the scene camera.
type Calibration struct {
	FX, FY float64 // Focal lengths in pixels
	CX, CY float64 // Principal point in pixels

	// DistCoeffs in OpenCV order: k1, k2, p1, p2[, k3[, k4, k5, k6]].
	DistCoeffs []float64

	// Image resolution. Zero means unknown.
	Width, Height int
}

// Validate checks the calibration and returns a list of problems, or nil if valid.
func (c Calibration) Validate() []string {
	var problems []string

	for _, v := range []float64{c.FX, c.FY, c.CX, c.CY} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			problems = append(problems, "intrinsics must be finite")
			break
		}
	}
	if c.FX <= 0 || c.FY <= 0 {
		problems = append(problems, "focal lengths must be positive")
	}
	if !validDistortionLengths[len(c.DistCoeffs)] {
		problems = append(problems, fmt.Sprintf("distortion vector must have 4, 5 or 8 coefficients, got %d", len(c.DistCoeffs)))
	}
	for _, k := range c.DistCoeffs {
		if math.IsNaN(k) || math.IsInf(k, 0) {
			problems = append(problems, "distortion coefficients must be finite")
			break
		}
	}
	if c.Width < 0 || c.Height < 0 {
		problems = append(problems, "resolution must not be negative")
	}

	return problems
}

// distortion returns the coefficients padded to the 8-term rational model.
func (c Calibration) distortion() [8]float64 {
	var d [8]float64
	copy(d[:], c.DistCoeffs)
	return d
}

// Record is the JSON intrinsics document served by the cloud calibration
// endpoint and stored in the local cache.
type Record struct {
	CameraMatrix [][]float64 `json:"camera_matrix" validate:"required,len=3,dive,len=3"`
	DistCoefs    [][]float64 `json:"dist_coefs" validate:"required,min=1,dive,min=1"`
	Rotation     [][]float64 `json:"rotation_matrix,omitempty"`
	SerialNumber string      `json:"serial_number,omitempty"`
	Version      string      `json:"version,omitempty"`
	Resolution   []int       `json:"resolution,omitempty" validate:"omitempty,len=2"`
}

var validate = validator.New()

// Calibration converts the record into a Calibration and validates it.
func (r Record) Calibration() (Calibration, error) {
	if err := validate.Struct(r); err != nil {
		return Calibration{}, fmt.Errorf("%w: %v", ErrInvalidCalibration, err)
	}

	var dist []float64
	for _, row := range r.DistCoefs {
		dist = append(dist, row...)
	}

	cal := Calibration{
		FX:         r.CameraMatrix[0][0],
		FY:         r.CameraMatrix[1][1],
		CX:         r.CameraMatrix[0][2],
		CY:         r.CameraMatrix[1][2],
		DistCoeffs: dist,
	}
	if len(r.Resolution) == 2 {
		cal.Width, cal.Height = r.Resolution[0], r.Resolution[1]
	}

	if problems := cal.Validate(); len(problems) > 0 {
		return Calibration{}, fmt.Errorf("%w: %v", ErrInvalidCalibration, problems)
	}
	return cal, nil
}

// LoadCalibration reads an intrinsics record from a JSON file.
func LoadCalibration(path string) (Calibration, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Calibration{}, fmt.Errorf("read calibration: %w", err)
	}
	return ParseCalibration(data)
}

// ParseCalibration decodes an intrinsics record. Both the bare record and the
// cloud envelope {"result": {...}} are accepted.
func ParseCalibration(data []byte) (Calibration, error) {
	var envelope struct {
		Result *Record `json:"result"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return Calibration{}, fmt.Errorf("%w: %v", ErrInvalidCalibration, err)
	}
	if envelope.Result != nil {
		return envelope.Result.Calibration()
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Calibration{}, fmt.Errorf("%w: %v", ErrInvalidCalibration, err)
	}
	return rec.Calibration()
}
