package edge

import (
	"fmt"
	"image/color"

	"github.com/tuxbotix/hulk/internal/conv"
)

// EdgeSourceType selects how the single-channel edge source is derived from
// the camera image.
type EdgeSourceType int

const (
	// EdgeSourceLuma uses the Y channel as-is.
	EdgeSourceLuma EdgeSourceType = iota
	// EdgeSourceLumaMinusRGBRange subtracts the per-pixel RGB spread from
	// the gray value, which suppresses strongly colored regions and keeps
	// the white field lines.
	EdgeSourceLumaMinusRGBRange
)

func (t EdgeSourceType) String() string {
	switch t {
	case EdgeSourceLuma:
		return "luma"
	case EdgeSourceLumaMinusRGBRange:
		return "luma-minus-rgb-range"
	default:
		return "unknown"
	}
}

// YCbCr422Image is a packed 4:2:2 camera frame. Every four bytes encode two
// horizontally adjacent pixels as Y0, Cb, Y1, Cr. Width must be even and the
// buffer length exactly Width*Height*2.
type YCbCr422Image struct {
	Width, Height int
	Buffer        []uint8
}

// NewYCbCr422Image validates the buffer shape and wraps it.
func NewYCbCr422Image(width, height int, buffer []uint8) *YCbCr422Image {
	if width <= 0 || height <= 0 || width%2 != 0 {
		panic(fmt.Sprintf("edge: invalid 4:2:2 image size %dx%d", width, height))
	}
	if len(buffer) != width*height*2 {
		panic(fmt.Sprintf("edge: 4:2:2 buffer length %d does not match %dx%d", len(buffer), width, height))
	}
	return &YCbCr422Image{Width: width, Height: height, Buffer: buffer}
}

// GrayImage is a row-major single-channel 8-bit image.
type GrayImage struct {
	Width, Height int
	Pix           []uint8
}

// NewGrayImage allocates a zeroed W×H image.
func NewGrayImage(width, height int) *GrayImage {
	if width <= 0 || height <= 0 {
		panic(fmt.Sprintf("edge: invalid gray image size %dx%d", width, height))
	}
	return &GrayImage{Width: width, Height: height, Pix: make([]uint8, width*height)}
}

// At returns the pixel at (x, y).
func (g *GrayImage) At(x, y int) uint8 {
	return g.Pix[y*g.Width+x]
}

// EdgeSourceImage extracts the single-channel edge source from a packed
// 4:2:2 frame according to the selected policy.
func EdgeSourceImage(img *YCbCr422Image, sourceType EdgeSourceType) *GrayImage {
	switch sourceType {
	case EdgeSourceLumaMinusRGBRange:
		return lumaMinusRGBRange(img)
	default:
		return luminance(img)
	}
}

// luminance emits the two Y samples of every group unchanged.
func luminance(img *YCbCr422Image) *GrayImage {
	out := NewGrayImage(img.Width, img.Height)
	for i, o := 0, 0; i < len(img.Buffer); i += 4 {
		out.Pix[o] = img.Buffer[i]
		out.Pix[o+1] = img.Buffer[i+2]
		o += 2
	}
	return out
}

// lumaMinusRGBRange reconstructs RGB per pixel and emits
// clamp(gray − (max−min), 0, 255) with gray = (R+G+B)/3.
func lumaMinusRGBRange(img *YCbCr422Image) *GrayImage {
	out := NewGrayImage(img.Width, img.Height)
	for i, o := 0, 0; i < len(img.Buffer); i += 4 {
		y0, cb, y1, cr := img.Buffer[i], img.Buffer[i+1], img.Buffer[i+2], img.Buffer[i+3]
		out.Pix[o] = grayMinusSpread(y0, cb, cr)
		out.Pix[o+1] = grayMinusSpread(y1, cb, cr)
		o += 2
	}
	return out
}

func grayMinusSpread(y, cb, cr uint8) uint8 {
	r, g, b := color.YCbCrToRGB(y, cb, cr)
	gray := (int16(r) + int16(g) + int16(b)) / 3
	spread := int16(max8(r, g, b)) - int16(min8(r, g, b))
	v := gray - spread
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

func max8(a, b, c uint8) uint8 {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}

func min8(a, b, c uint8) uint8 {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

// GrayToTransposed copies a row-major gray image into a transposed
// column-major int16 matrix for the convolution engine.
func GrayToTransposed(img *GrayImage) *conv.Matrix[int16] {
	m := conv.NewMatrix[int16](img.Height, img.Width)
	for y := 0; y < img.Height; y++ {
		row := img.Pix[y*img.Width : (y+1)*img.Width]
		for x, v := range row {
			m.Data[x*img.Height+y] = int16(v)
		}
	}
	return m
}
