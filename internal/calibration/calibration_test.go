package calibration

import (
	"math"
	"math/rand"
	"testing"

	"github.com/tuxbotix/hulk/internal/edge"
	"github.com/tuxbotix/hulk/internal/geometry"
	"github.com/tuxbotix/hulk/internal/projection"
	"github.com/tuxbotix/hulk/internal/ransac"
)

func groundCirclePoints(center geometry.Point[geometry.Ground], radius float64, count int) []geometry.Point[geometry.Ground] {
	points := make([]geometry.Point[geometry.Ground], count)
	for i := range points {
		angle := 2 * math.Pi * float64(i) / float64(count)
		points[i] = geometry.Pt[geometry.Ground](
			center.X+radius*math.Cos(angle),
			center.Y+radius*math.Sin(angle),
		)
	}
	return points
}

func pixelCirclePoints(center geometry.Point[geometry.Pixel], radius float64, count int) []geometry.Point[geometry.Pixel] {
	points := make([]geometry.Point[geometry.Pixel], count)
	for i := range points {
		angle := 2 * math.Pi * float64(i) / float64(count)
		points[i] = geometry.Pt[geometry.Pixel](
			center.X+radius*math.Cos(angle),
			center.Y+radius*math.Sin(angle),
		)
	}
	return points
}

func TestCircumferenceFilter(t *testing.T) {
	center := geometry.Pt[geometry.Ground](0, 0)

	tests := []struct {
		name     string
		points   []geometry.Point[geometry.Ground]
		minRatio float64
		want     bool
	}{
		{"full circle passes", groundCirclePoints(center, 0.75, 120), 0.8, true},
		{"half circle fails strict ratio", groundCirclePoints(center, 0.75, 120)[:60], 0.8, false},
		{"half circle passes loose ratio", groundCirclePoints(center, 0.75, 120)[:60], 0.3, true},
		{"empty input fails", nil, 0.1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CircumferenceFilter(center, tt.points, tt.minRatio); got != tt.want {
				t.Errorf("CircumferenceFilter = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFitCircleKasa(t *testing.T) {
	center := geometry.Pt[geometry.Ground](2.0, 1.5)
	points := groundCirclePoints(center, 0.75, 40)

	circle, err := FitCircleKasa(points)
	if err != nil {
		t.Fatalf("FitCircleKasa failed: %v", err)
	}
	if math.Abs(circle.Center.X-center.X) > 1e-9 || math.Abs(circle.Center.Y-center.Y) > 1e-9 {
		t.Errorf("center = (%v, %v), want (2, 1.5)", circle.Center.X, circle.Center.Y)
	}
	if math.Abs(circle.Radius-0.75) > 1e-9 {
		t.Errorf("radius = %v, want 0.75", circle.Radius)
	}
}

func TestFitCircleKasaTooFewPoints(t *testing.T) {
	_, err := FitCircleKasa(groundCirclePoints(geometry.Pt[geometry.Ground](0, 0), 1, 2))
	if err == nil {
		t.Error("expected an error for fewer than three points")
	}
}

// pickBetterOptimizer is a deterministic optimizer stub that evaluates a
// fixed set of candidate offsets and returns the cheapest.
type pickBetterOptimizer struct {
	candidates [][]float64
}

func (o *pickBetterOptimizer) Run(eval func([]float64) float64, lower, upper []float64, dim int) ([]float64, float64) {
	best := make([]float64, dim)
	bestCost := eval(best)
	for _, c := range o.candidates {
		if cost := eval(c); cost < bestCost {
			best, bestCost = c, cost
		}
	}
	return best, bestCost
}

func TestPolishCircleImproves(t *testing.T) {
	truth := geometry.Circle[geometry.Ground]{Center: geometry.Pt[geometry.Ground](1, 1), Radius: 0.75}
	points := groundCirclePoints(truth.Center, truth.Radius, 50)

	initial := geometry.Circle[geometry.Ground]{
		Center: geometry.Pt[geometry.Ground](1.01, 0.99),
		Radius: 0.75,
	}
	optimizer := &pickBetterOptimizer{candidates: [][]float64{
		{-0.01, 0.01, 0},
		{0.02, 0.02, 0.01},
	}}

	polished := PolishCircle(initial, points, optimizer, 0.05)
	if math.Abs(polished.Center.X-1) > 1e-12 || math.Abs(polished.Center.Y-1) > 1e-12 {
		t.Errorf("polished center = (%v, %v), want (1, 1)", polished.Center.X, polished.Center.Y)
	}
}

func TestPolishCircleKeepsInitialWhenNoImprovement(t *testing.T) {
	truth := geometry.Circle[geometry.Ground]{Center: geometry.Pt[geometry.Ground](0, 0), Radius: 0.75}
	points := groundCirclePoints(truth.Center, truth.Radius, 30)

	optimizer := &pickBetterOptimizer{candidates: [][]float64{{0.3, 0.3, 0.2}}}
	polished := PolishCircle(truth, points, optimizer, 0.5)
	if polished != truth {
		t.Errorf("polished = %+v, want unchanged initial", polished)
	}
}

func refineTestConfig() Config {
	cfg := DefaultConfig()
	cfg.RefineLineExclusionDistance = 6.0
	cfg.RefineRansacIterations = 200
	cfg.RefineMaxScoreDistance = 3.0
	cfg.RefineMaxInclusionDistance = 3.0
	return cfg
}

func TestRefinementRejectsCrossingLine(t *testing.T) {
	camera := projection.NewPlanarCamera(640, 480, 100)
	pixelCenter := geometry.Pt[geometry.Pixel](322, 243)

	rimPoints := pixelCirclePoints(geometry.Pt[geometry.Pixel](320, 240), 75, 100)
	var linePoints []geometry.Point[geometry.Pixel]
	for x := 245.0; x <= 395; x += 2 {
		linePoints = append(linePoints, geometry.Pt[geometry.Pixel](x, 240))
	}

	result := &ransac.CircleResult{
		Circle: geometry.Circle[geometry.Ground]{
			Center: geometry.Pt[geometry.Ground](0.02, 0.03),
			Radius: 0.75,
		},
		UsedPointsOriginal: append(append([]geometry.Point[geometry.Pixel]{}, rimPoints...), linePoints[:20]...),
		Score:              0.8,
	}

	rng := rand.New(rand.NewSource(5))
	refined, skipped := refineCenterCircle(
		result, pixelCenter, linePoints, nil,
		DefaultFieldDimensions(), camera, refineTestConfig(), rng,
	)
	if skipped {
		t.Fatal("refinement unexpectedly skipped")
	}
	if refined == nil {
		t.Fatal("refinement did not find the crossing line")
	}

	// The cleaned center lies on the detected midfield line.
	if math.Abs(refined.Center.Y-240) > 1e-6 {
		t.Errorf("cleaned center y = %v, want 240", refined.Center.Y)
	}

	// No retained point is within the exclusion distance of the line.
	line := geometry.Line[geometry.Pixel]{
		Point:     geometry.Pt[geometry.Pixel](320, 240),
		Direction: geometry.Vec[geometry.Pixel](1, 0),
	}
	for _, p := range refined.Points {
		if line.DistanceTo(p) <= 6 {
			t.Errorf("retained point (%v, %v) within exclusion distance of the midline", p.X, p.Y)
		}
	}
	if len(refined.Points) >= len(result.UsedPointsOriginal) {
		t.Error("refinement removed no points")
	}
}

func TestRefinementSkipsOnTooFewInliers(t *testing.T) {
	camera := projection.NewPlanarCamera(640, 480, 100)
	result := &ransac.CircleResult{
		Circle:             geometry.Circle[geometry.Ground]{Center: geometry.Pt[geometry.Ground](0, 0), Radius: 0.75},
		UsedPointsOriginal: pixelCirclePoints(geometry.Pt[geometry.Pixel](320, 240), 75, 4),
	}

	rng := rand.New(rand.NewSource(5))
	refined, skipped := refineCenterCircle(
		result, geometry.Pt[geometry.Pixel](320, 240), nil, nil,
		DefaultFieldDimensions(), camera, refineTestConfig(), rng,
	)
	if refined != nil {
		t.Error("expected refinement skip for fewer than five inliers")
	}
	if !skipped {
		t.Error("too few inliers must report the skip, not a midline failure")
	}
}

func TestRefinementFailsWithoutMidline(t *testing.T) {
	// Enough inliers to refine, but no remaining points and no line data:
	// neither midline path can succeed and the failure must not read as a
	// skip.
	camera := projection.NewPlanarCamera(640, 480, 100)
	result := &ransac.CircleResult{
		Circle: geometry.Circle[geometry.Ground]{
			Center: geometry.Pt[geometry.Ground](0, 0),
			Radius: 0.75,
		},
		UsedPointsOriginal: pixelCirclePoints(geometry.Pt[geometry.Pixel](320, 240), 75, 100),
	}

	rng := rand.New(rand.NewSource(5))
	refined, skipped := refineCenterCircle(
		result, geometry.Pt[geometry.Pixel](320, 240), nil, nil,
		DefaultFieldDimensions(), camera, refineTestConfig(), rng,
	)
	if refined != nil {
		t.Fatal("expected no refinement without any midline source")
	}
	if skipped {
		t.Error("midline failure must not report a skip")
	}
}

func TestRefinementPrefersLineData(t *testing.T) {
	camera := projection.NewPlanarCamera(640, 480, 100)
	pixelCenter := geometry.Pt[geometry.Pixel](322, 243)

	result := &ransac.CircleResult{
		Circle: geometry.Circle[geometry.Ground]{
			Center: geometry.Pt[geometry.Ground](0.02, 0.03),
			Radius: 0.75,
		},
		UsedPointsOriginal: pixelCirclePoints(geometry.Pt[geometry.Pixel](320, 240), 75, 100),
	}

	// A ground line passing 1 cm from the ground center; its projection is
	// the horizontal pixel line y = 241.
	lineData := LineData{
		{A: geometry.Pt[geometry.Ground](-1, 0.01), B: geometry.Pt[geometry.Ground](1, 0.01)},
	}

	rng := rand.New(rand.NewSource(5))
	refined, skipped := refineCenterCircle(
		result, pixelCenter, nil, lineData,
		DefaultFieldDimensions(), camera, refineTestConfig(), rng,
	)
	if refined == nil || skipped {
		t.Fatal("refinement failed with line data available")
	}
	if math.Abs(refined.Center.Y-241) > 1e-6 {
		t.Errorf("cleaned center y = %v, want 241", refined.Center.Y)
	}
	if len(refined.RejectionLines) != 3 {
		t.Errorf("rejection set size = %d, want midline plus two edges", len(refined.RejectionLines))
	}
}

// circleScanGrid builds a vertical-scan segmentation whose segment
// boundaries trace a pixel circle.
func circleScanGrid(cx, cy, radius float64) *edge.ScanGrid {
	var grid edge.ScanGrid
	for x := int(cx - radius); x <= int(cx+radius); x++ {
		dx := float64(x) - cx
		span := radius*radius - dx*dx
		if span < 0 {
			continue
		}
		dy := math.Sqrt(span)
		grid.VerticalScanLines = append(grid.VerticalScanLines, edge.VerticalScanLine{
			Position: x,
			Segments: []edge.ScanSegment{
				{Start: int(math.Round(cy - dy)), End: int(math.Round(cy + dy))},
			},
		})
	}
	return &grid
}

func TestDetectCenterCircleFromSegments(t *testing.T) {
	camera := projection.NewPlanarCamera(640, 480, 100)
	grid := circleScanGrid(320, 240, 75)

	cfg := DefaultConfig()
	cfg.UseSegmentEdges = true
	cfg.RefineEnable = false
	cfg.RansacIterations = 300
	cfg.RansacMaxCircles = 3

	rng := rand.New(rand.NewSource(17))
	detection, err := DetectCenterCircle(
		Input{Segments: grid}, camera, DefaultFieldDimensions(), cfg, rng,
	)
	if err != nil {
		t.Fatalf("DetectCenterCircle failed: %v", err)
	}
	if detection == nil {
		t.Fatal("no detection on a clean synthetic circle")
	}

	if math.Abs(detection.CenterPixel.X-320) > 2 || math.Abs(detection.CenterPixel.Y-240) > 2 {
		t.Errorf("center = (%v, %v), want near (320, 240)",
			detection.CenterPixel.X, detection.CenterPixel.Y)
	}
	if detection.Score <= 0 {
		t.Errorf("score = %v, want positive", detection.Score)
	}
	if len(detection.Points) < 100 {
		t.Errorf("inliers = %d, want most of the rim", len(detection.Points))
	}
}

func TestDetectCenterCircleDropsCandidateWithoutMidline(t *testing.T) {
	// A clean rim with refinement enabled: every edge point becomes an
	// inlier, so no points remain for the fallback line search and no line
	// data exists. The candidate must be discarded, not passed through
	// unrefined.
	camera := projection.NewPlanarCamera(640, 480, 100)
	grid := circleScanGrid(320, 240, 75)

	cfg := DefaultConfig()
	cfg.UseSegmentEdges = true
	cfg.RansacIterations = 300

	rng := rand.New(rand.NewSource(17))
	detection, err := DetectCenterCircle(
		Input{Segments: grid}, camera, DefaultFieldDimensions(), cfg, rng,
	)
	if err != nil {
		t.Fatalf("DetectCenterCircle failed: %v", err)
	}
	if detection != nil {
		t.Errorf("expected no detection when the midline search fails, got %+v", detection)
	}
}

func TestDetectCenterCircleRefinesWithCrossingLine(t *testing.T) {
	// A rim plus a horizontal line through the center: the line's interior
	// points stay unused, feed the fallback line search, and the surviving
	// detection carries the midline with its center on it.
	camera := projection.NewPlanarCamera(640, 480, 100)
	grid := circleScanGrid(320, 240, 75)
	for x := 251; x <= 389; x++ {
		grid.VerticalScanLines = append(grid.VerticalScanLines, edge.VerticalScanLine{
			Position: x,
			Segments: []edge.ScanSegment{{Start: 240, End: 240}},
		})
	}

	cfg := DefaultConfig()
	cfg.UseSegmentEdges = true
	cfg.RansacIterations = 300

	rng := rand.New(rand.NewSource(17))
	detection, err := DetectCenterCircle(
		Input{Segments: grid}, camera, DefaultFieldDimensions(), cfg, rng,
	)
	if err != nil {
		t.Fatalf("DetectCenterCircle failed: %v", err)
	}
	if detection == nil {
		t.Fatal("no detection despite a refinable candidate")
	}
	if detection.MidLine == nil {
		t.Fatal("refined detection must carry the midfield line")
	}
	if math.Abs(detection.CenterPixel.Y-240) > 1 {
		t.Errorf("refined center y = %v, want on the midline near 240", detection.CenterPixel.Y)
	}
}

func TestDetectCenterCircleDeterministic(t *testing.T) {
	camera := projection.NewPlanarCamera(640, 480, 100)
	grid := circleScanGrid(320, 240, 75)

	cfg := DefaultConfig()
	cfg.UseSegmentEdges = true
	cfg.RefineEnable = false
	cfg.RansacIterations = 100

	run := func() *Detection {
		rng := rand.New(rand.NewSource(23))
		detection, err := DetectCenterCircle(
			Input{Segments: grid}, camera, DefaultFieldDimensions(), cfg, rng,
		)
		if err != nil {
			t.Fatalf("DetectCenterCircle failed: %v", err)
		}
		return detection
	}

	first, second := run(), run()
	if (first == nil) != (second == nil) {
		t.Fatal("determinism violated: one run found a circle, the other did not")
	}
	if first == nil {
		return
	}
	if first.CenterPixel != second.CenterPixel || first.Score != second.Score {
		t.Errorf("runs differ: %+v vs %+v", first, second)
	}
	if len(first.Points) != len(second.Points) {
		t.Errorf("inlier counts differ: %d vs %d", len(first.Points), len(second.Points))
	}
}

func TestDetectCenterCircleEmptyInput(t *testing.T) {
	camera := projection.NewPlanarCamera(640, 480, 100)
	cfg := DefaultConfig()
	cfg.UseSegmentEdges = true

	rng := rand.New(rand.NewSource(1))
	detection, err := DetectCenterCircle(
		Input{Segments: &edge.ScanGrid{}}, camera, DefaultFieldDimensions(), cfg, rng,
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if detection != nil {
		t.Errorf("expected no detection on empty input, got %+v", detection)
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"non-positive sigma", func(c *Config) { c.GaussianSigma = 0 }},
		{"low above high", func(c *Config) { c.CannyLow = 100; c.CannyHigh = 10 }},
		{"zero iterations", func(c *Config) { c.RansacIterations = 0 }},
		{"negative threshold", func(c *Config) { c.RansacInlierThreshold = -1 }},
		{"ratio above one", func(c *Config) { c.MinCircumferenceRatio = 1.5 }},
		{"zero exclusion distance", func(c *Config) { c.RefineLineExclusionDistance = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}

	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}
