package calibration

import (
	"math"

	"github.com/tuxbotix/hulk/internal/geometry"
)

// defaultCircumferenceBins caps the angular histogram resolution.
const defaultCircumferenceBins = 66

// CircumferenceFilter guards against half-circle false positives from
// parallel field lines: the inlier angles around the center are binned into
// min(N/2, 66) equal-angle bins and the candidate passes when the filled
// fraction reaches minimumOccupancyRatio (clamped to [0, 1]).
func CircumferenceFilter(
	center geometry.Point[geometry.Ground],
	points []geometry.Point[geometry.Ground],
	minimumOccupancyRatio float64,
) bool {
	bins := len(points) / 2
	if bins > defaultCircumferenceBins {
		bins = defaultCircumferenceBins
	}
	if bins == 0 {
		return false
	}

	binFactor := 2 * math.Pi / float64(bins)
	filled := make(map[int]struct{}, bins)
	for _, p := range points {
		angle := math.Atan2(center.Y-p.Y, center.X-p.X)
		filled[int(math.Ceil(angle/binFactor))] = struct{}{}
	}

	ratio := math.Min(math.Max(minimumOccupancyRatio, 0), 1)
	return float64(len(filled))/float64(bins) >= ratio
}
