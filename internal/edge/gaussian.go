package edge

import (
	"math"

	"github.com/tuxbotix/hulk/internal/conv"
)

// Box-filter Gaussian approximation: three successive box passes of an
// identical odd width derived from sigma. Each pass is a separable
// piecewise convolution with a ones kernel and scale = width per axis, so
// the whole blur costs six right-shifts and no floating point.

const boxFilterPasses = 3

// boxFilterWidth derives the box width for the three-pass approximation,
// w = max(3, odd(round(sqrt(12σ²/3 + 1)))).
func boxFilterWidth(sigma float32) int {
	s := float64(sigma)
	w := int(math.Round(math.Sqrt(12*s*s/boxFilterPasses + 1)))
	if w%2 == 0 {
		w++
	}
	if w < 3 {
		w = 3
	}
	return w
}

// GaussianBlur approximates a Gaussian of the given sigma over src and
// returns a fresh matrix. src is not modified.
func GaussianBlur(src *conv.Matrix[int16], sigma float32) *conv.Matrix[int16] {
	out := conv.NewMatrix[int16](src.Rows, src.Cols)
	scratch := make([]int16, src.Len())
	GaussianBlurInto(src, out, scratch, sigma)
	return out
}

// GaussianBlurInto is GaussianBlur with caller-provided destination and
// scratch buffers, so per-frame invocations can reuse their allocations.
// dst and scratch must each hold src.Len() elements and must not alias.
func GaussianBlurInto(src, dst *conv.Matrix[int16], scratch []int16, sigma float32) {
	width := boxFilterWidth(sigma)
	kernel := make([]int32, width)
	for i := range kernel {
		kernel[i] = 1
	}

	copy(dst.Data, src.Data)
	for pass := 0; pass < boxFilterPasses; pass++ {
		// The horizontal pass leaves scratch borders untouched and the
		// vertical pass reads them back, so stale scratch content must not
		// leak between passes.
		for i := range scratch {
			scratch[i] = 0
		}
		conv.Piecewise2DInto(dst, dst.Data, scratch, kernel, kernel, uint32(width))
	}
}
