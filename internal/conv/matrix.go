package conv

import "fmt"

// Integer constrains the pixel and output element types the convolution
// engine operates on. The accumulator is always int32; every kernel shipped
// by this module keeps K² · max|kernel| · max|input| inside int32 range.
type Integer interface {
	int8 | int16 | int32 | uint8 | uint16
}

// Matrix is a transposed, column-major image buffer: Rows is the image
// height, Cols the image width, and element (r, c) lives at Data[c*Rows+r].
// A column is therefore one contiguous image column, which is what the
// vertical convolution pass tiles over.
type Matrix[T Integer] struct {
	Rows, Cols int
	Data       []T
}

// NewMatrix allocates a zeroed rows×cols matrix.
func NewMatrix[T Integer](rows, cols int) *Matrix[T] {
	if rows <= 0 || cols <= 0 {
		panic(fmt.Sprintf("conv: invalid matrix shape %dx%d", rows, cols))
	}
	return &Matrix[T]{
		Rows: rows,
		Cols: cols,
		Data: make([]T, rows*cols),
	}
}

// MatrixFromSlice wraps data as a rows×cols matrix without copying. The
// slice length must be exactly rows*cols.
func MatrixFromSlice[T Integer](rows, cols int, data []T) *Matrix[T] {
	if len(data) != rows*cols {
		panic(fmt.Sprintf("conv: data length %d does not match %dx%d", len(data), rows, cols))
	}
	return &Matrix[T]{Rows: rows, Cols: cols, Data: data}
}

// At returns element (r, c).
func (m *Matrix[T]) At(r, c int) T {
	return m.Data[c*m.Rows+r]
}

// Set writes element (r, c).
func (m *Matrix[T]) Set(r, c int, v T) {
	m.Data[c*m.Rows+r] = v
}

// Len returns the number of elements.
func (m *Matrix[T]) Len() int {
	return len(m.Data)
}

// Column returns the contiguous backing slice of column c.
func (m *Matrix[T]) Column(c int) []T {
	return m.Data[c*m.Rows : (c+1)*m.Rows]
}
