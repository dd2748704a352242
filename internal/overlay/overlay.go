package overlay

import (
	"image"
	"image/color"
	"math"

	"github.com/tuxbotix/hulk/internal/calibration"
	"github.com/tuxbotix/hulk/internal/geometry"
)

// Debug rendering of detections onto a camera frame. Used by the CLI to
// produce annotated output images.

var (
	pointColor   = color.NRGBA{255, 64, 64, 255}
	circleColor  = color.NRGBA{64, 220, 64, 255}
	midLineColor = color.NRGBA{80, 120, 255, 255}
	centerColor  = color.NRGBA{255, 255, 0, 255}
)

// DrawDetection paints the detection onto img: inlier points, the center
// cross, and the midfield line when refinement produced one.
func DrawDetection(img *image.NRGBA, detection *calibration.Detection) {
	if detection == nil {
		return
	}

	for _, p := range detection.Points {
		drawSquare(img, p, 1, pointColor)
	}
	if detection.MidLine != nil {
		drawSegment(img, *detection.MidLine, midLineColor)
	}
	drawCross(img, detection.CenterPixel, 6, centerColor)
}

// DrawCircle paints a circle outline by sampling the circumference at
// roughly one-pixel arc steps.
func DrawCircle(img *image.NRGBA, center geometry.Point[geometry.Pixel], radius float64) {
	if radius <= 0 {
		return
	}
	steps := int(math.Ceil(2 * math.Pi * radius))
	if steps < 16 {
		steps = 16
	}
	for i := 0; i < steps; i++ {
		angle := 2 * math.Pi * float64(i) / float64(steps)
		setPixel(img,
			int(math.Round(center.X+radius*math.Cos(angle))),
			int(math.Round(center.Y+radius*math.Sin(angle))),
			circleColor)
	}
}

func drawSquare(img *image.NRGBA, p geometry.Point[geometry.Pixel], halfSize int, c color.NRGBA) {
	cx, cy := int(math.Round(p.X)), int(math.Round(p.Y))
	for dy := -halfSize; dy <= halfSize; dy++ {
		for dx := -halfSize; dx <= halfSize; dx++ {
			setPixel(img, cx+dx, cy+dy, c)
		}
	}
}

func drawCross(img *image.NRGBA, p geometry.Point[geometry.Pixel], armLength int, c color.NRGBA) {
	cx, cy := int(math.Round(p.X)), int(math.Round(p.Y))
	for d := -armLength; d <= armLength; d++ {
		setPixel(img, cx+d, cy, c)
		setPixel(img, cx, cy+d, c)
	}
}

// drawSegment rasterizes a line segment by stepping along its longer axis.
func drawSegment(img *image.NRGBA, segment geometry.LineSegment[geometry.Pixel], c color.NRGBA) {
	dx := segment.B.X - segment.A.X
	dy := segment.B.Y - segment.A.Y
	steps := int(math.Ceil(math.Max(math.Abs(dx), math.Abs(dy))))
	if steps == 0 {
		setPixel(img, int(math.Round(segment.A.X)), int(math.Round(segment.A.Y)), c)
		return
	}
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		setPixel(img,
			int(math.Round(segment.A.X+t*dx)),
			int(math.Round(segment.A.Y+t*dy)),
			c)
	}
}

func setPixel(img *image.NRGBA, x, y int, c color.NRGBA) {
	if !(image.Point{X: x, Y: y}).In(img.Rect) {
		return
	}
	img.SetNRGBA(x, y, c)
}
