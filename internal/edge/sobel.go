package edge

import (
	"github.com/tuxbotix/hulk/internal/conv"
)

// Separable Sobel operators, [1,2,1] smoothing against [-1,0,1] derivative,
// divisor 1. Inputs are blurred int16 matrices; outputs are signed and
// unscaled, so the maximum magnitude per axis is 4·255.

var (
	sobelSmooth     = []int32{1, 2, 1}
	sobelDerivative = []int32{-1, 0, 1}
)

// SobelGradientX computes the horizontal (across-column) gradient.
func SobelGradientX(src *conv.Matrix[int16]) *conv.Matrix[int16] {
	out := conv.NewMatrix[int16](src.Rows, src.Cols)
	SobelGradientXInto(src, out, make([]int16, src.Len()))
	return out
}

// SobelGradientXInto writes the horizontal gradient into dst using scratch
// for the intermediate smoothing pass.
func SobelGradientXInto(src, dst *conv.Matrix[int16], scratch []int16) {
	conv.Piecewise2DInto(src, dst.Data, scratch, sobelSmooth, sobelDerivative, 1)
}

// SobelGradientY computes the vertical (within-column) gradient.
func SobelGradientY(src *conv.Matrix[int16]) *conv.Matrix[int16] {
	out := conv.NewMatrix[int16](src.Rows, src.Cols)
	SobelGradientYInto(src, out, make([]int16, src.Len()))
	return out
}

// SobelGradientYInto writes the vertical gradient into dst using scratch
// for the intermediate derivative pass.
func SobelGradientYInto(src, dst *conv.Matrix[int16], scratch []int16) {
	conv.Piecewise2DInto(src, dst.Data, scratch, sobelDerivative, sobelSmooth, 1)
}
