package conv

// Integer 2D convolution over transposed column-major matrices.
//
// All entry points share the same output contract:
//   - accumulation happens in int32,
//   - the accumulated sum is divided by the scale value via an arithmetic
//     right shift of ceil(log2(scale)) bits,
//   - the shifted value is clamped to the output element range,
//   - a border (kernel-half wide on the convolved axes) is left untouched,
//     so the caller must hand in a zeroed destination when it needs a clean
//     output.
//
// The piecewise passes decompose a separable K×K kernel into two length-K
// vectors: the horizontal pass slides the vector along the contiguous
// within-column axis, the vertical pass combines K adjacent columns and is
// the cache-critical one, so it accumulates in fixed-size column chunks.

import (
	"fmt"
	"math"
	"math/bits"
)

// columnChunkSize is the number of rows accumulated per chunk in the
// vertical pass.
const columnChunkSize = 16

// Kernel is a square convolution kernel with column-major flat weights:
// weight (r, c) lives at Weights[c*Size+r]. Size must be odd and at least 3.
type Kernel struct {
	Size    int
	Weights []int32
}

// NewKernel validates and wraps a flat column-major weight slice.
func NewKernel(size int, weights []int32) Kernel {
	if size < 3 || size%2 == 0 {
		panic(fmt.Sprintf("conv: kernel size %d must be odd and >= 3", size))
	}
	if len(weights) != size*size {
		panic(fmt.Sprintf("conv: kernel weights length %d does not match %dx%d", len(weights), size, size))
	}
	return Kernel{Size: size, Weights: weights}
}

// OuterProduct builds the K×K kernel u·vᵀ, with u indexing the within-column
// axis and v the across-column axis. Both vectors must share the same odd
// length.
func OuterProduct(u, v []int32) Kernel {
	if len(u) != len(v) {
		panic(fmt.Sprintf("conv: outer product of mismatched lengths %d and %d", len(u), len(v)))
	}
	k := len(u)
	weights := make([]int32, k*k)
	for c := 0; c < k; c++ {
		for r := 0; r < k; r++ {
			weights[c*k+r] = u[r] * v[c]
		}
	}
	return NewKernel(k, weights)
}

// shiftForScale maps a positive scale value to the bit shift that replaces
// the division: the shift of the next power of two, zero for scale 1.
func shiftForScale(scale uint32) uint {
	if scale == 0 {
		panic("conv: scale must be non-zero")
	}
	if scale <= 1 {
		return 0
	}
	return uint(bits.Len32(scale - 1))
}

// outputLimits returns the clamp range of the output element type as int32.
func outputLimits[T Integer]() (lo, hi int32) {
	var v T
	switch any(v).(type) {
	case int8:
		return math.MinInt8, math.MaxInt8
	case int16:
		return math.MinInt16, math.MaxInt16
	case int32:
		return math.MinInt32, math.MaxInt32
	case uint8:
		return 0, math.MaxUint8
	case uint16:
		return 0, math.MaxUint16
	}
	panic("conv: unsupported output type")
}

func checkDst[IN, OUT Integer](src *Matrix[IN], dst []OUT) {
	if len(dst) < src.Len() {
		panic(fmt.Sprintf("conv: dst length %d smaller than src length %d", len(dst), src.Len()))
	}
}

func clampShift(acc int32, shift uint, lo, hi int32) int32 {
	v := acc >> shift
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// DirectConvolution applies the full K×K kernel to src and writes into dst,
// leaving a kernel-half border untouched on all four sides.
func DirectConvolution[IN, OUT Integer](src *Matrix[IN], dst []OUT, kernel Kernel, scale uint32) {
	checkDst(src, dst)

	k := kernel.Size
	half := k / 2
	rows, cols := src.Rows, src.Cols
	shift := shiftForScale(scale)
	lo, hi := outputLimits[OUT]()

	for c := half; c < cols-half; c++ {
		topLeftCol := c - half
		out := dst[c*rows+half : c*rows+rows-half]
		for i := range out {
			var acc int32
			for kc := 0; kc < k; kc++ {
				srcCol := src.Data[(topLeftCol+kc)*rows+i : (topLeftCol+kc)*rows+i+k]
				weights := kernel.Weights[kc*k : kc*k+k]
				for kr := 0; kr < k; kr++ {
					acc += weights[kr] * int32(srcCol[kr])
				}
			}
			out[i] = OUT(clampShift(acc, shift, lo, hi))
		}
	}
}

// PiecewiseHorizontal applies a length-K kernel along the contiguous
// within-column axis of src. Every column is processed; the first and last
// kernel-half rows of each output column are left untouched.
func PiecewiseHorizontal[IN, OUT Integer](src *Matrix[IN], dst []OUT, kernel []int32, scale uint32) {
	checkDst(src, dst)

	k := len(kernel)
	half := k / 2
	rows := src.Rows
	shift := shiftForScale(scale)
	lo, hi := outputLimits[OUT]()

	for c := 0; c < src.Cols; c++ {
		col := src.Column(c)
		out := dst[c*rows+half : c*rows+rows-half]
		for i := range out {
			var acc int32
			window := col[i : i+k]
			for ki, w := range kernel {
				acc += w * int32(window[ki])
			}
			out[i] = OUT(clampShift(acc, shift, lo, hi))
		}
	}
}

// isKernelSymmetric reports whether the first half of the kernel mirrors the
// second half, which permits summing mirrored columns before the multiply.
func isKernelSymmetric(kernel []int32) bool {
	k := len(kernel)
	for i := 0; i < k/2; i++ {
		if kernel[i] != kernel[k-1-i] {
			return false
		}
	}
	return true
}

// PiecewiseVertical applies a length-K kernel across adjacent columns of
// src. Output columns within kernel-half of the left and right edge are left
// untouched; every row of the processed columns is written, except a final
// partial chunk shorter than kernel-half rows, which is skipped. Accumulation
// runs over fixed-size row chunks with an explicit remainder tail, and
// symmetric kernels pair mirrored columns before the single multiply.
func PiecewiseVertical[IN, OUT Integer](src *Matrix[IN], dst []OUT, kernel []int32, scale uint32) {
	checkDst(src, dst)

	k := len(kernel)
	half := k / 2
	rows, cols := src.Rows, src.Cols
	shift := shiftForScale(scale)
	lo, hi := outputLimits[OUT]()
	symmetric := isKernelSymmetric(kernel)

	remainder := rows % columnChunkSize
	fullChunks := rows / columnChunkSize

	columns := make([][]IN, k)
	var acc [columnChunkSize]int32

	for c := half; c < cols-half; c++ {
		for i := range columns {
			columns[i] = src.Column(c - half + i)
		}
		out := dst[c*rows : (c+1)*rows]

		for chunk := 0; chunk < fullChunks; chunk++ {
			start := chunk * columnChunkSize
			end := start + columnChunkSize
			acc = [columnChunkSize]int32{}

			if symmetric {
				// Middle column, then mirrored pairs summed before the
				// multiply. The pairing fixes rounding: the pair sum sees a
				// single multiply, never two.
				mid := columns[half][start:end]
				w := kernel[half]
				for i := range acc {
					acc[i] += int32(mid[i]) * w
				}
				for p := 0; p < half; p++ {
					left := columns[p][start:end]
					right := columns[k-1-p][start:end]
					w := kernel[p]
					for i := range acc {
						acc[i] += (int32(left[i]) + int32(right[i])) * w
					}
				}
			} else {
				for ki, w := range kernel {
					col := columns[ki][start:end]
					for i := range acc {
						acc[i] += int32(col[i]) * w
					}
				}
			}

			outChunk := out[start:end]
			for i := range outChunk {
				outChunk[i] = OUT(clampShift(acc[i], shift, lo, hi))
			}
		}

		// The tail shorter than a chunk; skipped entirely when it fits
		// inside the untouched bottom border.
		if remainder != 0 && remainder >= half {
			start := rows - remainder
			tail := make([]int32, remainder)
			for ki, w := range kernel {
				col := columns[ki][start:]
				for i := range tail {
					tail[i] += int32(col[i]) * w
				}
			}
			outTail := out[start:]
			for i := range outTail {
				outTail[i] = OUT(clampShift(tail[i], shift, lo, hi))
			}
		}
	}
}

// Piecewise2D runs the horizontal pass with the first vector and the
// vertical pass with the second, allocating the intermediate buffer.
func Piecewise2D[IN, OUT Integer](src *Matrix[IN], dst []OUT, horizontal, vertical []int32, scale uint32) {
	scratch := make([]OUT, src.Len())
	Piecewise2DInto(src, dst, scratch, horizontal, vertical, scale)
}

// Piecewise2DInto is Piecewise2D with a caller-provided scratch buffer for
// the intermediate horizontal result, so repeated invocations can reuse
// their allocations. scratch and dst must not alias, and scratch must be
// zeroed by the caller when a clean output border is required: the vertical
// pass reads the untouched border rows of the intermediate result.
func Piecewise2DInto[IN, OUT Integer](src *Matrix[IN], dst, scratch []OUT, horizontal, vertical []int32, scale uint32) {
	checkDst(src, dst)
	if len(scratch) < src.Len() {
		panic(fmt.Sprintf("conv: scratch length %d smaller than src length %d", len(scratch), src.Len()))
	}
	if len(horizontal) != len(vertical) {
		panic(fmt.Sprintf("conv: piecewise kernel lengths differ: %d vs %d", len(horizontal), len(vertical)))
	}

	PiecewiseHorizontal(src, scratch, horizontal, scale)
	intermediate := MatrixFromSlice(src.Rows, src.Cols, scratch[:src.Len()])
	PiecewiseVertical(intermediate, dst, vertical, scale)
}
