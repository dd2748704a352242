package conv

import (
	"testing"
)

// deterministicMatrix fills a rows×cols matrix with a fixed pseudo-pattern.
func deterministicMatrix(rows, cols int) *Matrix[int16] {
	m := NewMatrix[int16](rows, cols)
	for c := 0; c < cols; c++ {
		for r := 0; r < rows; r++ {
			m.Set(r, c, int16((r*31+c*17+r*c)%251))
		}
	}
	return m
}

func TestShiftForScale(t *testing.T) {
	tests := []struct {
		scale uint32
		want  uint
	}{
		{1, 0},
		{2, 1},
		{3, 2},
		{4, 2},
		{16, 4},
		{27, 5},
	}
	for _, tt := range tests {
		if got := shiftForScale(tt.scale); got != tt.want {
			t.Errorf("shiftForScale(%d) = %d, want %d", tt.scale, got, tt.want)
		}
	}
}

func TestShiftForScaleZeroPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for zero scale")
		}
	}()
	shiftForScale(0)
}

func TestDirectConvolutionImpulse(t *testing.T) {
	// An impulse reproduces the flipped kernel around its position, which
	// pins down the kernel orientation.
	weights := []int32{
		1, 2, 3,
		4, 5, 6,
		7, 8, 9,
	}
	kernel := NewKernel(3, weights)

	src := NewMatrix[int16](7, 7)
	src.Set(3, 3, 1)
	dst := make([]int16, src.Len())
	DirectConvolution(src, dst, kernel, 1)

	out := MatrixFromSlice(7, 7, dst)
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			want := int16(weights[(1-dc)*3+(1-dr)])
			if got := out.At(3+dr, 3+dc); got != want {
				t.Errorf("out(%d,%d) = %d, want %d", 3+dr, 3+dc, got, want)
			}
		}
	}
}

func TestDirectConvolutionBorderUntouched(t *testing.T) {
	src := deterministicMatrix(8, 6)
	dst := make([]int16, src.Len())
	for i := range dst {
		dst[i] = -77
	}
	DirectConvolution(src, dst, OuterProduct([]int32{1, 2, 1}, []int32{1, 2, 1}), 16)

	out := MatrixFromSlice(8, 6, dst)
	for c := 0; c < 6; c++ {
		for r := 0; r < 8; r++ {
			onBorder := r == 0 || r == 7 || c == 0 || c == 5
			if onBorder && out.At(r, c) != -77 {
				t.Errorf("border element (%d,%d) modified: %d", r, c, out.At(r, c))
			}
		}
	}
}

func TestUniformImageKernelPairing(t *testing.T) {
	// 5x5 of uniform 100 under [1,2,1]⊗[1,2,1] with scale 16: the interior
	// must come back unchanged.
	src := NewMatrix[uint8](5, 5)
	for i := range src.Data {
		src.Data[i] = 100
	}
	dst := make([]int16, src.Len())
	DirectConvolution(src, dst, OuterProduct([]int32{1, 2, 1}, []int32{1, 2, 1}), 16)

	out := MatrixFromSlice(5, 5, dst)
	for c := 1; c < 4; c++ {
		for r := 1; r < 4; r++ {
			if got := out.At(r, c); got != 100 {
				t.Errorf("interior (%d,%d) = %d, want 100", r, c, got)
			}
		}
	}
}

func TestPiecewiseMatchesDirect(t *testing.T) {
	// Separable decomposition must match the full outer-product kernel on
	// the interior (borders excluded, scale 1 so no intermediate shift).
	tests := []struct {
		name string
		u, v []int32
	}{
		{"sobel smoothing x derivative", []int32{1, 2, 1}, []int32{-1, 0, 1}},
		{"derivative x smoothing", []int32{-1, 0, 1}, []int32{1, 2, 1}},
		{"box", []int32{1, 1, 1}, []int32{1, 1, 1}},
		{"asymmetric", []int32{1, -3, 2}, []int32{2, 1, -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := deterministicMatrix(24, 9)
			k := len(tt.u)
			half := k / 2

			direct := make([]int16, src.Len())
			DirectConvolution(src, direct, OuterProduct(tt.u, tt.v), 1)

			piecewise := make([]int16, src.Len())
			Piecewise2D(src, piecewise, tt.u, tt.v, 1)

			directM := MatrixFromSlice(src.Rows, src.Cols, direct)
			piecewiseM := MatrixFromSlice(src.Rows, src.Cols, piecewise)
			for c := half; c < src.Cols-half; c++ {
				for r := half; r < src.Rows-half; r++ {
					if directM.At(r, c) != piecewiseM.At(r, c) {
						t.Fatalf("(%d,%d): direct %d != piecewise %d",
							r, c, directM.At(r, c), piecewiseM.At(r, c))
					}
				}
			}
		})
	}
}

// naiveVertical is a reference for the vertical pass without chunking or
// symmetric pairing.
func naiveVertical(src *Matrix[int16], kernel []int32, scale uint32) []int16 {
	k := len(kernel)
	half := k / 2
	shift := shiftForScale(scale)
	lo, hi := outputLimits[int16]()
	dst := make([]int16, src.Len())
	for c := half; c < src.Cols-half; c++ {
		for r := 0; r < src.Rows; r++ {
			var acc int32
			for ki, w := range kernel {
				acc += w * int32(src.At(r, c-half+ki))
			}
			dst[c*src.Rows+r] = int16(clampShift(acc, shift, lo, hi))
		}
	}
	return dst
}

func TestSymmetricPairingBitIdentical(t *testing.T) {
	tests := []struct {
		name   string
		kernel []int32
		rows   int
	}{
		{"sobel smoothing", []int32{1, 2, 1}, 40},
		{"box", []int32{1, 1, 1}, 33},
		{"five tap", []int32{1, 4, 6, 4, 1}, 50},
		{"chunk remainder", []int32{1, 2, 1}, 37},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !isKernelSymmetric(tt.kernel) {
				t.Fatalf("test kernel %v is not symmetric", tt.kernel)
			}
			src := deterministicMatrix(tt.rows, 11)
			got := make([]int16, src.Len())
			PiecewiseVertical(src, got, tt.kernel, 4)
			want := naiveVertical(src, tt.kernel, 4)

			half := len(tt.kernel) / 2
			remainder := tt.rows % columnChunkSize
			processedRows := tt.rows
			if remainder != 0 && remainder < half {
				processedRows -= remainder
			}
			for c := half; c < src.Cols-half; c++ {
				for r := 0; r < processedRows; r++ {
					i := c*src.Rows + r
					if got[i] != want[i] {
						t.Fatalf("(%d,%d): paired %d != naive %d", r, c, got[i], want[i])
					}
				}
			}
		})
	}
}

func TestKernelSymmetryDetection(t *testing.T) {
	if !isKernelSymmetric([]int32{1, 2, 1}) {
		t.Error("[1,2,1] should be symmetric")
	}
	if !isKernelSymmetric([]int32{1, 4, 6, 4, 1}) {
		t.Error("[1,4,6,4,1] should be symmetric")
	}
	if isKernelSymmetric([]int32{-1, 0, 1}) {
		t.Error("[-1,0,1] should not be symmetric")
	}
	if isKernelSymmetric([]int32{1, 2, 3, 2, 4}) {
		t.Error("[1,2,3,2,4] should not be symmetric")
	}
}

func TestSaturationClamps(t *testing.T) {
	src := NewMatrix[int16](5, 5)
	for i := range src.Data {
		src.Data[i] = 30000
	}
	dst := make([]int8, src.Len())
	DirectConvolution(src, dst, OuterProduct([]int32{1, 1, 1}, []int32{1, 1, 1}), 1)

	out := MatrixFromSlice(5, 5, dst)
	if got := out.At(2, 2); got != 127 {
		t.Errorf("positive saturation = %d, want 127", got)
	}

	for i := range src.Data {
		src.Data[i] = -30000
	}
	DirectConvolution(src, dst, OuterProduct([]int32{1, 1, 1}, []int32{1, 1, 1}), 1)
	if got := out.At(2, 2); got != -128 {
		t.Errorf("negative saturation = %d, want -128", got)
	}
}

func TestDstTooSmallPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for undersized dst")
		}
	}()
	src := NewMatrix[uint8](4, 4)
	dst := make([]int16, 3)
	PiecewiseHorizontal(src, dst, []int32{1, 2, 1}, 1)
}
