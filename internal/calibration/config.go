package calibration

import (
	"fmt"

	"github.com/tuxbotix/hulk/internal/edge"
	"github.com/tuxbotix/hulk/internal/geometry"
)

// FieldDimensions carries the parts of the field model the detector needs.
type FieldDimensions struct {
	// CenterCircleDiameter in meters.
	CenterCircleDiameter float64
	// LineWidth in meters.
	LineWidth float64
}

// DefaultFieldDimensions returns the standard SPL field values.
func DefaultFieldDimensions() FieldDimensions {
	return FieldDimensions{
		CenterCircleDiameter: 1.5,
		LineWidth:            0.05,
	}
}

// LineData is the optional external line-detection channel: ground-plane
// line segments observed in the same frame.
type LineData []geometry.LineSegment[geometry.Ground]

// Config holds every tunable of the detection pipeline.
type Config struct {
	// Edge extraction.
	SourceType      edge.EdgeSourceType
	GaussianSigma   float32
	CannyLow        float32
	CannyHigh       float32
	UseSegmentEdges bool

	// Circle search.
	RansacMaxCircles      int
	RansacIterations      int
	RansacInlierThreshold float64
	// RansacSampleFraction overrides the per-attempt scoring sample
	// fraction when in (0, 1]; zero keeps the default.
	RansacSampleFraction  float64
	MinCircumferenceRatio float64

	// Documented deviations from the fixed algorithm.
	RadiusVarianceFactor float64
	RadiusRatioLimit     float64
	ChordRejectAny       bool

	// Refinement.
	RefineEnable                bool
	RefineLineExclusionDistance float64
	RefineRansacIterations      int
	RefineMaxScoreDistance      float64
	RefineMaxInclusionDistance  float64

	// Optional fine-tune polish of the fitted circle.
	FineTunePolish   bool
	PolishIterations int
	PolishPopulation int
	PolishSeed       int64
}

// DefaultConfig returns the tuning used on the robots.
func DefaultConfig() Config {
	return Config{
		SourceType:                  edge.EdgeSourceLumaMinusRGBRange,
		GaussianSigma:               2.0,
		CannyLow:                    20.0,
		CannyHigh:                   50.0,
		RansacMaxCircles:            5,
		RansacIterations:            500,
		RansacInlierThreshold:       0.1,
		MinCircumferenceRatio:       0.5,
		RefineEnable:                true,
		RefineLineExclusionDistance: 10.0,
		RefineRansacIterations:      200,
		RefineMaxScoreDistance:      5.0,
		RefineMaxInclusionDistance:  10.0,
		PolishIterations:            60,
		PolishPopulation:            20,
		PolishSeed:                  42,
	}
}

// Validate checks the structural constraints of the configuration.
func (c Config) Validate() error {
	if c.GaussianSigma <= 0 {
		return fmt.Errorf("calibration: gaussian sigma %v must be positive", c.GaussianSigma)
	}
	if c.CannyLow > c.CannyHigh {
		return fmt.Errorf("calibration: canny low %v exceeds high %v", c.CannyLow, c.CannyHigh)
	}
	if c.RansacMaxCircles <= 0 || c.RansacIterations <= 0 {
		return fmt.Errorf("calibration: ransac iteration counts must be positive")
	}
	if c.RansacInlierThreshold <= 0 {
		return fmt.Errorf("calibration: inlier threshold %v must be positive", c.RansacInlierThreshold)
	}
	if c.RansacSampleFraction < 0 || c.RansacSampleFraction > 1 {
		return fmt.Errorf("calibration: sample fraction %v outside (0, 1]", c.RansacSampleFraction)
	}
	if c.MinCircumferenceRatio < 0 || c.MinCircumferenceRatio > 1 {
		return fmt.Errorf("calibration: circumference ratio %v outside [0, 1]", c.MinCircumferenceRatio)
	}
	if c.RefineEnable && c.RefineLineExclusionDistance <= 0 {
		return fmt.Errorf("calibration: line exclusion distance %v must be positive", c.RefineLineExclusionDistance)
	}
	return nil
}
