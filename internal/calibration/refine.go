package calibration

import (
	"math"
	"math/rand"
	"sort"

	"github.com/tuxbotix/hulk/internal/geometry"
	"github.com/tuxbotix/hulk/internal/projection"
	"github.com/tuxbotix/hulk/internal/ransac"
)

// The refiner removes the midfield line crossing the circle from the inlier
// set. Left in place, those points drag the calibration residuals towards
// the line instead of the rim, and the fitted center drifts.

const (
	roiPadding = 10.0
	// minimumRefineInliers below which refinement is skipped and the
	// candidate passes through unmodified.
	minimumRefineInliers = 5
	// centerFractionOfROI scales the minimum-dimension-derived limit on how
	// far a candidate midline may pass from the circle center.
	centerFractionOfROI = 0.20
	// fallbackLineCandidates drawn from the line RANSAC before clustering.
	fallbackLineCandidates = 5
)

// refinedCircle is the outcome of a successful refinement pass.
type refinedCircle struct {
	Center         geometry.Point[geometry.Pixel]
	Points         []geometry.Point[geometry.Pixel]
	MidLine        geometry.LineSegment[geometry.Pixel]
	RejectionLines []geometry.Line[geometry.Pixel]
}

// refineCenterCircle isolates the midfield line crossing the candidate and
// drops inliers too close to it. A nil result comes with skipped=true when
// the candidate has too few inliers for refinement (the caller keeps it
// unmodified), and skipped=false when no crossing line could be
// established (the caller discards the candidate).
func refineCenterCircle(
	result *ransac.CircleResult,
	circleCenter geometry.Point[geometry.Pixel],
	remainingPoints []geometry.Point[geometry.Pixel],
	lineData LineData,
	field FieldDimensions,
	proj projection.Projection,
	cfg Config,
	rng *rand.Rand,
) (refined *refinedCircle, skipped bool) {
	circlePoints := result.UsedPointsOriginal
	if len(circlePoints) < minimumRefineInliers {
		return nil, true
	}

	roi, ok := geometry.BoundingBox(circlePoints, roiPadding)
	if !ok {
		return nil, true
	}
	minDim := math.Min(roi.Width(), roi.Height())
	minDistanceFromCenter := (minDim - roiPadding) * centerFractionOfROI

	roiPoints := make([]geometry.Point[geometry.Pixel], 0, len(remainingPoints))
	for _, p := range remainingPoints {
		if roi.Contains(p) {
			roiPoints = append(roiPoints, p)
		}
	}

	midline, rejection, ok := midlineFromLineData(result.Circle.Center, lineData, field, proj)
	if !ok {
		midline, rejection, ok = midlineFromRansac(circleCenter, roiPoints, minDistanceFromCenter, cfg, rng)
	}
	if !ok {
		return nil, false
	}

	exclusion := math.Abs(cfg.RefineLineExclusionDistance)
	cleanedCenter := midline.ClosestPoint(circleCenter)

	filtered := make([]geometry.Point[geometry.Pixel], 0, len(circlePoints))
	for _, p := range circlePoints {
		tooClose := false
		for _, line := range rejection {
			if line.DistanceTo(p) <= exclusion {
				tooClose = true
				break
			}
		}
		if !tooClose {
			filtered = append(filtered, p)
		}
	}

	halfSpan := midline.Direction.Normalize().Scale(minDim / 2)
	return &refinedCircle{
		Center: cleanedCenter,
		Points: filtered,
		MidLine: geometry.LineSegment[geometry.Pixel]{
			A: cleanedCenter.Add(halfSpan.Neg()),
			B: cleanedCenter.Add(halfSpan),
		},
		RejectionLines: rejection,
	}, false
}

// midlineFromLineData uses the external line channel: the ground line
// closest to the circle center within four line half-widths becomes the
// midline, and its two parallel offsets at one half-width to either side
// complete the rejection set.
func midlineFromLineData(
	groundCenter geometry.Point[geometry.Ground],
	lineData LineData,
	field FieldDimensions,
	proj projection.Projection,
) (geometry.Line[geometry.Pixel], []geometry.Line[geometry.Pixel], bool) {
	lineThickness := field.LineWidth / 2
	maxCenterDistance := lineThickness * 4

	candidates := make([]int, 0, len(lineData))
	for i, segment := range lineData {
		if segment.Line().DistanceTo(groundCenter) <= maxCenterDistance {
			candidates = append(candidates, i)
		}
	}
	sort.Slice(candidates, func(a, b int) bool {
		return lineData[candidates[a]].Line().DistanceTo(groundCenter) <
			lineData[candidates[b]].Line().DistanceTo(groundCenter)
	})

	for _, idx := range candidates {
		segment := lineData[idx]
		a, errA := proj.GroundToPixel(segment.A)
		b, errB := proj.GroundToPixel(segment.B)
		if errA != nil || errB != nil {
			continue
		}
		midline := geometry.Line[geometry.Pixel]{
			Point:     a,
			Direction: b.Sub(a).Normalize(),
		}
		rejection := []geometry.Line[geometry.Pixel]{midline}

		direction := segment.Direction().Normalize()
		orthogonal := geometry.Vec[geometry.Ground](direction.Y*lineThickness, -direction.X*lineThickness)
		centerOnLine := segment.Line().ClosestPoint(groundCenter)
		lengthened := direction.Scale(segment.Length() / 2.2)

		for _, shifted := range []geometry.Point[geometry.Ground]{
			centerOnLine.Add(orthogonal),
			centerOnLine.Add(orthogonal.Neg()),
		} {
			first, errFirst := proj.GroundToPixel(shifted)
			second, errSecond := proj.GroundToPixel(shifted.Add(lengthened))
			if errFirst != nil || errSecond != nil {
				continue
			}
			rejection = append(rejection, geometry.LineFromPoints(first, second))
		}

		return midline, rejection, true
	}

	return geometry.Line[geometry.Pixel]{}, nil, false
}

// midlineFromRansac is the fallback when no line channel is available: a
// handful of line-RANSAC candidates over the ROI points, clustered by
// direction and mutual distance, with the heaviest cluster averaged into
// the midline.
func midlineFromRansac(
	circleCenter geometry.Point[geometry.Pixel],
	roiPoints []geometry.Point[geometry.Pixel],
	minDistanceFromCenter float64,
	cfg Config,
	rng *rand.Rand,
) (geometry.Line[geometry.Pixel], []geometry.Line[geometry.Pixel], bool) {
	type scoredLine struct {
		line      geometry.Line[geometry.Pixel]
		usedCount int
	}

	search := ransac.NewLine(append([]geometry.Point[geometry.Pixel]{}, roiPoints...))
	var lines []scoredLine
	for i := 0; i < fallbackLineCandidates; i++ {
		result := search.NextLine(rng, cfg.RefineRansacIterations, cfg.RefineMaxScoreDistance, cfg.RefineMaxInclusionDistance)
		if result == nil {
			continue
		}
		lines = append(lines, scoredLine{line: result.Line, usedCount: len(result.UsedPoints)})
	}
	sort.SliceStable(lines, func(a, b int) bool { return lines[a].usedCount < lines[b].usedCount })

	maxCenterDistanceSquared := minDistanceFromCenter * minDistanceFromCenter
	nearCenter := lines[:0]
	for _, candidate := range lines {
		if candidate.line.SquaredDistanceTo(circleCenter) < maxCenterDistanceSquared {
			nearCenter = append(nearCenter, candidate)
		}
	}
	if len(nearCenter) == 0 {
		return geometry.Line[geometry.Pixel]{}, nil, false
	}
	if len(nearCenter) == 1 {
		only := nearCenter[0].line
		return only, []geometry.Line[geometry.Pixel]{only}, true
	}

	maxLineToLineDistance := math.Max(5, cfg.RefineMaxInclusionDistance*4)
	directionSimilarity := math.Cos(10 * math.Pi / 180)

	// Greedy clustering from the highest-inlier candidate down.
	remaining := nearCenter
	type cluster struct {
		members   []scoredLine
		totalUsed int
	}
	var clusters []cluster
	for len(remaining) > 0 {
		seed := remaining[len(remaining)-1]
		remaining = remaining[:len(remaining)-1]
		current := cluster{members: []scoredLine{seed}, totalUsed: seed.usedCount}
		seedDirection := seed.line.Direction.Normalize()

		kept := remaining[:0]
		for _, other := range remaining {
			otherCenterPoint := other.line.ClosestPoint(circleCenter)
			sameDirection := math.Abs(seedDirection.Dot(other.line.Direction.Normalize())) >= directionSimilarity
			closeEnough := seed.line.DistanceTo(otherCenterPoint) <= maxLineToLineDistance
			if sameDirection && closeEnough {
				current.members = append(current.members, other)
				current.totalUsed += other.usedCount
			} else {
				kept = append(kept, other)
			}
		}
		remaining = kept
		clusters = append(clusters, current)
	}

	best := clusters[0]
	for _, c := range clusters[1:] {
		if c.totalUsed > best.totalUsed {
			best = c
		}
	}

	// Average the member lines, aligning direction signs to the first
	// member so opposite-signed two-point fits do not cancel.
	reference := best.members[0].line.Direction.Normalize()
	var sumPoint geometry.Vector[geometry.Pixel]
	var sumDirection geometry.Vector[geometry.Pixel]
	for _, member := range best.members {
		onLine := member.line.ClosestPoint(circleCenter)
		sumPoint = sumPoint.Add(geometry.Vec[geometry.Pixel](onLine.X, onLine.Y))
		direction := member.line.Direction.Normalize()
		if direction.Dot(reference) < 0 {
			direction = direction.Neg()
		}
		sumDirection = sumDirection.Add(direction)
	}
	count := float64(len(best.members))
	midline := geometry.Line[geometry.Pixel]{
		Point:     geometry.Pt[geometry.Pixel](sumPoint.X/count, sumPoint.Y/count),
		Direction: sumDirection.Scale(1 / count).Normalize(),
	}

	rejection := make([]geometry.Line[geometry.Pixel], 0, len(best.members))
	for _, member := range best.members {
		rejection = append(rejection, member.line)
	}
	return midline, rejection, true
}
