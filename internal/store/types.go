package store

import (
	"fmt"
	"time"

	"github.com/tuxbotix/hulk/internal/geometry"
)

// Measurement is one persisted calibration capture: the detected center
// circle of a single frame together with the context needed to feed the
// calibration solver later.
//
// Only the detection output is saved, not the edge image or the raw frame.
// Captures are small JSON documents, and the calibration solver only needs
// the correspondences; anyone debugging a capture re-runs the detector on
// the recorded frame instead.
type Measurement struct {
	// ID uniquely identifies the capture.
	ID string `json:"id"`

	// Camera names the source camera ("top" or "bottom").
	Camera string `json:"camera"`

	// CenterPixel is the detected circle center in image coordinates.
	CenterPixel geometry.Point[geometry.Pixel] `json:"centerPixel"`

	// Points are the image-plane inliers supporting the detection.
	Points []geometry.Point[geometry.Pixel] `json:"points"`

	// Score is the detection score in [0, 1].
	Score float64 `json:"score"`

	// Timestamp records when the capture was taken.
	Timestamp time.Time `json:"timestamp"`
}

// Validate checks the structural integrity of a measurement before it is
// persisted or consumed.
func (m *Measurement) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("measurement ID cannot be empty")
	}
	if m.Camera == "" {
		return fmt.Errorf("measurement camera cannot be empty")
	}
	if m.Score < 0 || m.Score > 1 {
		return fmt.Errorf("measurement score %v outside [0, 1]", m.Score)
	}
	return nil
}

// Store persists calibration measurements.
type Store interface {
	// SaveMeasurement persists a measurement under its ID.
	SaveMeasurement(measurement *Measurement) error

	// LoadMeasurement retrieves a measurement by ID.
	LoadMeasurement(id string) (*Measurement, error)

	// ListMeasurements returns the IDs of all persisted measurements.
	ListMeasurements() ([]string, error)

	// DeleteMeasurement removes a measurement by ID.
	DeleteMeasurement(id string) error
}
