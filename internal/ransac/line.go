package ransac

import (
	"math"
	"math/rand"

	"github.com/tuxbotix/hulk/internal/geometry"
)

// LineResult is one accepted line with the points it consumed.
type LineResult[F any] struct {
	Line       geometry.Line[F]
	UsedPoints []geometry.Point[F]
}

// Line searches for lines by repeated two-point sampling. Like the circle
// search it owns its remaining points and consumes inliers per call.
type Line[F any] struct {
	UnusedPoints []geometry.Point[F]
}

// NewLine wraps the candidate points for line search. The slice is owned by
// the returned value.
func NewLine[F any](points []geometry.Point[F]) *Line[F] {
	return &Line[F]{UnusedPoints: points}
}

// NextLine runs the given number of two-point fit attempts. Scoring sums
// the soft inlier weight 1 − d/maxScoreDistance over points within the
// score distance; the winner's inliers are the points within the inclusion
// distance, which are removed from the remaining set. Returns nil when
// fewer than two points remain or no attempt scored.
func (l *Line[F]) NextLine(rng *rand.Rand, iterations int, maxScoreDistance, maxInclusionDistance float64) *LineResult[F] {
	n := len(l.UnusedPoints)
	if n < 2 {
		return nil
	}

	bestScore := math.Inf(-1)
	var bestLine geometry.Line[F]
	found := false

	for iter := 0; iter < iterations; iter++ {
		i := rng.Intn(n)
		j := rng.Intn(n - 1)
		if j >= i {
			j++
		}
		a, b := l.UnusedPoints[i], l.UnusedPoints[j]
		if a.Sub(b).NormSquared() == 0 {
			continue
		}
		candidate := geometry.LineFromPoints(a, b)

		var score float64
		for _, p := range l.UnusedPoints {
			d := candidate.DistanceTo(p)
			if d <= maxScoreDistance {
				score += 1 - d/maxScoreDistance
			}
		}
		if score > bestScore {
			bestScore = score
			bestLine = candidate
			found = true
		}
	}

	if !found {
		return nil
	}

	used := make([]geometry.Point[F], 0, n)
	kept := l.UnusedPoints[:0]
	for _, p := range l.UnusedPoints {
		if bestLine.DistanceTo(p) <= maxInclusionDistance {
			used = append(used, p)
		} else {
			kept = append(kept, p)
		}
	}
	l.UnusedPoints = kept

	return &LineResult[F]{Line: bestLine, UsedPoints: used}
}
