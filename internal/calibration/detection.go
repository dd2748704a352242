package calibration

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sort"

	"github.com/tuxbotix/hulk/internal/edge"
	"github.com/tuxbotix/hulk/internal/geometry"
	"github.com/tuxbotix/hulk/internal/opt"
	"github.com/tuxbotix/hulk/internal/projection"
	"github.com/tuxbotix/hulk/internal/ransac"
)

// Input bundles the per-frame data handed to the detector. Image is
// required unless UseSegmentEdges selects the segment source, in which case
// Segments must be set. Lines is the optional external line channel used by
// the refiner's preferred path.
type Input struct {
	Image    *edge.YCbCr422Image
	Segments *edge.ScanGrid
	Lines    LineData
}

// Detection is the best center-circle candidate of one frame.
type Detection struct {
	// CenterPixel is the circle center in the image plane. After
	// refinement it lies on the detected midfield line.
	CenterPixel geometry.Point[geometry.Pixel]
	// Points are the image-plane inliers supporting the candidate.
	Points []geometry.Point[geometry.Pixel]
	// Score is the aggregated RANSAC score in [0, 1].
	Score float64
	// MidLine is the detected midfield line segment. With refinement
	// enabled it is nil only when the candidate had too few inliers to
	// refine; candidates whose midline search fails are dropped.
	MidLine *geometry.LineSegment[geometry.Pixel]
}

// DetectCenterCircle runs the full pipeline on one frame and returns the
// best candidate, or nil when nothing acceptable was found. The caller owns
// rng; identical seeds on identical inputs produce identical detections.
func DetectCenterCircle(
	input Input,
	proj projection.Projection,
	field FieldDimensions,
	cfg Config,
	rng *rand.Rand,
) (*Detection, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	horizonY := 0.0
	if y, ok := proj.HorizonYMinimum(); ok {
		horizonY = y
	}

	var points []geometry.Point[geometry.Pixel]
	switch {
	case cfg.UseSegmentEdges:
		if input.Segments == nil {
			return nil, fmt.Errorf("calibration: segment edge source selected but no segments provided")
		}
		points = edge.PointsFromScanGrid(input.Segments, horizonY)
	default:
		if input.Image == nil {
			return nil, fmt.Errorf("calibration: no image provided")
		}
		points = edge.CannyEdgePoints(input.Image, edge.CannyParams{
			Source:        cfg.SourceType,
			GaussianSigma: cfg.GaussianSigma,
			LowThreshold:  cfg.CannyLow,
			HighThreshold: cfg.CannyHigh,
		}, int(horizonY))
	}

	candidates := detectAndFilterCircles(points, input.Lines, proj, field, cfg, rng)
	slog.Debug("center circle detection complete",
		"edge_points", len(points),
		"candidates", len(candidates),
	)
	if len(candidates) == 0 {
		return nil, nil
	}

	best := candidates[0]
	return &best, nil
}

// detectAndFilterCircles drives the circle RANSAC and applies the candidate
// filters, returning survivors ordered by descending inlier count.
func detectAndFilterCircles(
	edgePoints []geometry.Point[geometry.Pixel],
	lineData LineData,
	proj projection.Projection,
	field FieldDimensions,
	cfg Config,
	rng *rand.Rand,
) []Detection {
	transform := func(p geometry.Point[geometry.Pixel]) (geometry.Point[geometry.Ground], bool) {
		ground, err := proj.PixelToGround(p)
		return ground, err == nil
	}

	search := ransac.NewCircleWithTransformation(
		field.CenterCircleDiameter/2,
		cfg.RansacInlierThreshold,
		edgePoints,
		transform,
		ransac.CircleOptions{
			SampleFraction:       cfg.RansacSampleFraction,
			RadiusVarianceFactor: cfg.RadiusVarianceFactor,
			RadiusRatioLimit:     cfg.RadiusRatioLimit,
			ChordRejectAny:       cfg.ChordRejectAny,
		},
	)

	_, imageHeight := proj.ImageSize()
	horizonY := 0.0
	if y, ok := proj.HorizonYMinimum(); ok {
		horizonY = y
	}

	var polisher opt.Optimizer
	if cfg.FineTunePolish {
		polisher = opt.NewMayfly(cfg.PolishIterations, cfg.PolishPopulation, cfg.PolishSeed)
	}

	var accepted []Detection
	for i := 0; i < cfg.RansacMaxCircles; i++ {
		result := search.NextCandidate(rng, cfg.RansacIterations)
		if result == nil {
			continue
		}

		if polisher != nil {
			result.Circle = PolishCircle(result.Circle, result.UsedPointsTransformed, polisher, field.LineWidth)
		}

		centerPixel, err := proj.GroundToPixel(result.Circle.Center)
		if err != nil {
			continue
		}
		if centerPixel.Y < horizonY || centerPixel.Y >= float64(imageHeight) {
			continue
		}

		// The circumference filter centers on the algebraic fit when it
		// converges; the consensus center otherwise.
		filterCenter := result.Circle.Center
		if fitted, err := FitCircleKasa(result.UsedPointsTransformed); err == nil {
			filterCenter = fitted.Center
		}
		if !CircumferenceFilter(filterCenter, result.UsedPointsTransformed, cfg.MinCircumferenceRatio) {
			continue
		}

		detection := Detection{
			CenterPixel: centerPixel,
			Points:      result.UsedPointsOriginal,
			Score:       result.Score,
		}
		if cfg.RefineEnable {
			refined, skipped := refineCenterCircle(
				result, centerPixel, search.UnusedPointsOriginal,
				lineData, field, proj, cfg, rng,
			)
			switch {
			case refined != nil:
				detection.CenterPixel = refined.Center
				detection.Points = refined.Points
				midline := refined.MidLine
				detection.MidLine = &midline
			case !skipped:
				// No midfield line could be established; the candidate is
				// discarded rather than passed through unrefined.
				continue
			}
		}

		accepted = append(accepted, detection)
	}

	sort.SliceStable(accepted, func(a, b int) bool {
		return len(accepted[a].Points) > len(accepted[b].Points)
	})
	return accepted
}
