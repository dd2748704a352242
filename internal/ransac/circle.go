package ransac

import (
	"math"
	"math/rand"

	"github.com/tuxbotix/hulk/internal/geometry"
)

// Circle search by repeated three-point fits against a known target radius.
// The search runs in a transformed frame (the field plane), because the
// center circle only is a circle after reprojection; in the image plane it
// is an ellipse.

// minimumArcAngle is the arc subtended by the minimum-chord rejection:
// triples spanning less than a 45 degree arc fit unreliable circles.
const minimumArcAngle = math.Pi / 4

const (
	defaultSampleFraction       = 0.15
	minimumSampledPopulation    = 100
	defaultRadiusVarianceFactor = 1.5
)

// CircleOptions are the documented tunables around the fixed algorithm.
// Zero values select the defaults.
type CircleOptions struct {
	// SampleFraction is the fraction of the remaining points scored per
	// attempt. The fractional sample is only used when it exceeds the
	// minimum population of 100; otherwise every point is scored.
	SampleFraction float64

	// RadiusVarianceFactor scales the fast radius gate:
	// (r−R)² > factor·threshold rejects the fit. Default 1.5.
	RadiusVarianceFactor float64

	// RadiusRatioLimit, when positive, replaces the variance gate with the
	// ratio form: r−R > limit·R rejects the fit.
	RadiusRatioLimit float64

	// ChordRejectAny rejects a triple when any pairwise distance falls
	// below the minimum chord. The default only rejects when all three do.
	ChordRejectAny bool
}

// CircleResult is one accepted candidate circle with its inliers in both
// frames and the aggregated score in [0, 1].
type CircleResult struct {
	Circle                geometry.Circle[geometry.Ground]
	UsedPointsOriginal    []geometry.Point[geometry.Pixel]
	UsedPointsTransformed []geometry.Point[geometry.Ground]
	Score                 float64
}

// CircleWithTransformation owns the remaining candidate points in both the
// original (pixel) and transformed (ground) frames. Points whose
// transformation fails are dropped at construction. Successive
// NextCandidate calls consume inliers from the remaining set.
type CircleWithTransformation struct {
	UnusedPointsOriginal []geometry.Point[geometry.Pixel]

	unusedPointsTransformed []geometry.Point[geometry.Ground]
	radius                  float64
	inlierThreshold         float64
	minimumChordSquared     float64
	options                 CircleOptions

	sampleScratch []int
}

// NewCircleWithTransformation partitions the input by the transformer and
// prepares the search for a circle of the given radius. The threshold is
// the inlier acceptance bound on the absolute squared-form residual.
func NewCircleWithTransformation(
	radius float64,
	inlierThreshold float64,
	points []geometry.Point[geometry.Pixel],
	transform func(geometry.Point[geometry.Pixel]) (geometry.Point[geometry.Ground], bool),
	options CircleOptions,
) *CircleWithTransformation {
	if options.SampleFraction <= 0 || options.SampleFraction > 1 {
		options.SampleFraction = defaultSampleFraction
	}
	if options.RadiusVarianceFactor <= 0 {
		options.RadiusVarianceFactor = defaultRadiusVarianceFactor
	}

	original := make([]geometry.Point[geometry.Pixel], 0, len(points))
	transformed := make([]geometry.Point[geometry.Ground], 0, len(points))
	for _, p := range points {
		ground, ok := transform(p)
		if !ok {
			continue
		}
		original = append(original, p)
		transformed = append(transformed, ground)
	}

	minimumChord := 2 * radius * math.Sin(minimumArcAngle/2)

	return &CircleWithTransformation{
		UnusedPointsOriginal:    original,
		unusedPointsTransformed: transformed,
		radius:                  radius,
		inlierThreshold:         inlierThreshold,
		minimumChordSquared:     minimumChord * minimumChord,
		options:                 options,
	}
}

// RemainingCount returns the number of points still available to the
// search.
func (r *CircleWithTransformation) RemainingCount() int {
	return len(r.unusedPointsTransformed)
}

// NextCandidate runs the configured number of fit attempts and returns the
// best candidate, or nil when no attempt produced an acceptable circle.
// Returned inliers are removed from the remaining set. The caller owns the
// random source; identical seeds yield identical candidate sequences.
func (r *CircleWithTransformation) NextCandidate(rng *rand.Rand, iterations int) *CircleResult {
	n := len(r.unusedPointsTransformed)
	if n < 3 {
		return nil
	}

	population := n
	if fractional := r.options.SampleFraction * float64(n); fractional > minimumSampledPopulation {
		population = int(fractional)
	}

	radiusSquared := r.radius * r.radius

	bestScore := math.Inf(-1)
	var bestCircle geometry.Circle[geometry.Ground]
	found := false

	for iter := 0; iter < iterations; iter++ {
		sample := r.samplePoints(rng, n, population)
		a := r.unusedPointsTransformed[sample[0]]
		b := r.unusedPointsTransformed[sample[1]]
		c := r.unusedPointsTransformed[sample[2]]

		if r.rejectByChord(a, b, c) {
			continue
		}

		candidate := CircleFromThreePoints(a, b, c)
		if math.IsNaN(candidate.Radius) || math.IsInf(candidate.Radius, 0) || r.rejectByRadius(candidate.Radius) {
			continue
		}

		var score float64
		for _, idx := range sample {
			residual := math.Abs(r.unusedPointsTransformed[idx].Sub(candidate.Center).NormSquared() - radiusSquared)
			if residual <= r.inlierThreshold {
				score += 1 - residual/r.inlierThreshold
			}
		}

		// NaN-safe maximum: a NaN score never wins.
		if score > bestScore {
			bestScore = score
			bestCircle = candidate
			found = true
		}
	}

	if !found {
		return nil
	}

	// Re-evaluate the winner against every remaining point to build the
	// aligned inlier mask and the final score.
	mask := make([]bool, n)
	var score float64
	inliers := 0
	for i, p := range r.unusedPointsTransformed {
		residual := math.Abs(p.Sub(bestCircle.Center).NormSquared() - radiusSquared)
		if residual <= r.inlierThreshold {
			mask[i] = true
			score += 1 - residual/r.inlierThreshold
			inliers++
		}
	}

	result := &CircleResult{
		Circle:                bestCircle,
		UsedPointsOriginal:    make([]geometry.Point[geometry.Pixel], 0, inliers),
		UsedPointsTransformed: make([]geometry.Point[geometry.Ground], 0, inliers),
		Score:                 score / float64(n),
	}

	keptOriginal := r.UnusedPointsOriginal[:0]
	keptTransformed := r.unusedPointsTransformed[:0]
	for i, isInlier := range mask {
		if isInlier {
			result.UsedPointsOriginal = append(result.UsedPointsOriginal, r.UnusedPointsOriginal[i])
			result.UsedPointsTransformed = append(result.UsedPointsTransformed, r.unusedPointsTransformed[i])
		} else {
			keptOriginal = append(keptOriginal, r.UnusedPointsOriginal[i])
			keptTransformed = append(keptTransformed, r.unusedPointsTransformed[i])
		}
	}
	r.UnusedPointsOriginal = keptOriginal
	r.unusedPointsTransformed = keptTransformed

	return result
}

// samplePoints draws `count` distinct indices from [0, n) by a partial
// Fisher-Yates shuffle over a reusable scratch slice.
func (r *CircleWithTransformation) samplePoints(rng *rand.Rand, n, count int) []int {
	if cap(r.sampleScratch) < n {
		r.sampleScratch = make([]int, n)
	}
	scratch := r.sampleScratch[:n]
	for i := range scratch {
		scratch[i] = i
	}
	for i := 0; i < count; i++ {
		j := i + rng.Intn(n-i)
		scratch[i], scratch[j] = scratch[j], scratch[i]
	}
	return scratch[:count]
}

func (r *CircleWithTransformation) rejectByChord(a, b, c geometry.Point[geometry.Ground]) bool {
	ab := a.Sub(b).NormSquared()
	bc := b.Sub(c).NormSquared()
	ca := c.Sub(a).NormSquared()
	if r.options.ChordRejectAny {
		return ab < r.minimumChordSquared || bc < r.minimumChordSquared || ca < r.minimumChordSquared
	}
	return ab < r.minimumChordSquared && bc < r.minimumChordSquared && ca < r.minimumChordSquared
}

func (r *CircleWithTransformation) rejectByRadius(radius float64) bool {
	if r.options.RadiusRatioLimit > 0 {
		return radius-r.radius > r.options.RadiusRatioLimit*r.radius
	}
	deviation := radius - r.radius
	return deviation*deviation > r.options.RadiusVarianceFactor*r.inlierThreshold
}

// CircleFromThreePoints fits the unique circle through three points as the
// intersection of the perpendicular bisectors of ab and bc. Collinear
// triples produce non-finite results, which NextCandidate rejects before
// scoring.
func CircleFromThreePoints[F any](a, b, c geometry.Point[F]) geometry.Circle[F] {
	ba := b.Sub(a)
	cb := c.Sub(b)
	abMid := a.Mid(b)
	bcMid := b.Mid(c)

	abSlope := -(ba.X / ba.Y)
	bcSlope := -(cb.X / cb.Y)

	centerX := ((bcMid.Y - abMid.Y) + abSlope*abMid.X - bcSlope*bcMid.X) / (abSlope - bcSlope)
	centerY := abSlope*(centerX-abMid.X) + abMid.Y

	center := geometry.Point[F]{X: centerX, Y: centerY}
	return geometry.Circle[F]{
		Center: center,
		Radius: a.Sub(center).Norm(),
	}
}
