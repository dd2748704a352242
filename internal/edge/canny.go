package edge

import (
	"log/slog"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/tuxbotix/hulk/internal/conv"
	"github.com/tuxbotix/hulk/internal/geometry"
)

// CannyParams holds the edge-extraction configuration.
type CannyParams struct {
	Source        EdgeSourceType
	GaussianSigma float32
	LowThreshold  float32
	HighThreshold float32
}

// Pixel states during non-maximum suppression and hysteresis.
const (
	stateNone uint8 = iota
	stateWeak
	stateKept
)

// CannyEdgePoints runs the full edge pipeline on a camera frame: source
// extraction, box-filter Gaussian blur, both Sobel axes, non-maximum
// suppression with hysteresis, and horizon filtering. Points with
// y < horizonY are discarded; pass 0 to keep everything.
func CannyEdgePoints(img *YCbCr422Image, params CannyParams, horizonY int) []geometry.Point[geometry.Pixel] {
	source := EdgeSourceImage(img, params.Source)
	transposed := GrayToTransposed(source)
	blurred := GaussianBlur(transposed, params.GaussianSigma)

	gx := conv.NewMatrix[int16](blurred.Rows, blurred.Cols)
	gy := conv.NewMatrix[int16](blurred.Rows, blurred.Cols)

	// The two axes write disjoint outputs, so running them concurrently
	// keeps the result deterministic.
	var group errgroup.Group
	group.Go(func() error {
		SobelGradientXInto(blurred, gx, make([]int16, blurred.Len()))
		return nil
	})
	group.Go(func() error {
		SobelGradientYInto(blurred, gy, make([]int16, blurred.Len()))
		return nil
	})
	if err := group.Wait(); err != nil {
		// The workers never fail; a non-nil error here is a bug.
		panic(err)
	}

	points := NonMaximumSuppression(gx, gy, params.LowThreshold, params.HighThreshold)
	if horizonY > 0 {
		points = filterAboveHorizon(points, float64(horizonY))
	}

	slog.Debug("canny edge extraction complete",
		"source", params.Source.String(),
		"sigma", params.GaussianSigma,
		"edge_points", len(points),
		"horizon_y", horizonY,
	)
	return points
}

// NonMaximumSuppression thins the gradient response to single-pixel edges
// and applies hysteresis. Both gradients must share the same shape. The L1
// magnitude |gx|+|gy| is compared against the thresholds; a pixel at or
// above the high threshold survives when it is a local maximum along its
// quantized gradient direction, and weaker pixels between the thresholds
// are promoted when 8-connected to a surviving pixel. A one-pixel border is
// discarded.
func NonMaximumSuppression(gx, gy *conv.Matrix[int16], low, high float32) []geometry.Point[geometry.Pixel] {
	if gx.Rows != gy.Rows || gx.Cols != gy.Cols {
		panic("edge: gradient shapes differ")
	}
	rows, cols := gx.Rows, gx.Cols
	state := make([]uint8, rows*cols)

	var queue []int
	for c := 1; c < cols-1; c++ {
		for r := 1; r < rows-1; r++ {
			xv := int32(gx.At(r, c))
			yv := int32(gy.At(r, c))
			l1 := absInt32(xv) + absInt32(yv)
			if float32(l1) < low || l1 == 0 {
				continue
			}
			if float32(l1) < high {
				state[c*rows+r] = stateWeak
				continue
			}

			n1, n2 := directionNeighbors(xv, yv, r, c)
			if l1 >= l1Magnitude(gx, gy, n1) && l1 >= l1Magnitude(gx, gy, n2) {
				state[c*rows+r] = stateKept
				queue = append(queue, c*rows+r)
			}
		}
	}

	// Hysteresis: iterative flood from the kept strong pixels over their
	// 8-connected weak neighbors.
	for len(queue) > 0 {
		idx := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		c, r := idx/rows, idx%rows
		for dc := -1; dc <= 1; dc++ {
			for dr := -1; dr <= 1; dr++ {
				if dc == 0 && dr == 0 {
					continue
				}
				nc, nr := c+dc, r+dr
				if nc < 1 || nc >= cols-1 || nr < 1 || nr >= rows-1 {
					continue
				}
				ni := nc*rows + nr
				if state[ni] == stateWeak {
					state[ni] = stateKept
					queue = append(queue, ni)
				}
			}
		}
	}

	var points []geometry.Point[geometry.Pixel]
	for c := 1; c < cols-1; c++ {
		for r := 1; r < rows-1; r++ {
			if state[c*rows+r] == stateKept {
				points = append(points, geometry.Pt[geometry.Pixel](float64(c), float64(r)))
			}
		}
	}
	return points
}

type neighbor struct {
	r, c int
}

// directionNeighbors quantizes the gradient angle to one of four bins and
// returns the two neighbors along the gradient direction.
func directionNeighbors(gxv, gyv int32, r, c int) (neighbor, neighbor) {
	deg := math.Atan2(float64(gyv), float64(gxv)) * 180 / math.Pi
	if deg < 0 {
		deg += 180
	}
	switch {
	case deg < 22.5 || deg >= 157.5:
		return neighbor{r, c - 1}, neighbor{r, c + 1}
	case deg < 67.5:
		return neighbor{r - 1, c - 1}, neighbor{r + 1, c + 1}
	case deg < 112.5:
		return neighbor{r - 1, c}, neighbor{r + 1, c}
	default:
		return neighbor{r - 1, c + 1}, neighbor{r + 1, c - 1}
	}
}

func l1Magnitude(gx, gy *conv.Matrix[int16], n neighbor) int32 {
	return absInt32(int32(gx.At(n.r, n.c))) + absInt32(int32(gy.At(n.r, n.c)))
}

func absInt32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

func filterAboveHorizon(points []geometry.Point[geometry.Pixel], horizonY float64) []geometry.Point[geometry.Pixel] {
	filtered := points[:0]
	for _, p := range points {
		if p.Y >= horizonY {
			filtered = append(filtered, p)
		}
	}
	return filtered
}
