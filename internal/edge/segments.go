package edge

import (
	"github.com/tuxbotix/hulk/internal/geometry"
)

// Alternate edge source: a pre-computed vertical-scan segmentation, as
// produced by the image segmenter. Segment boundaries stand in for edge
// points when the full Canny pass is too expensive.

// ScanSegment is one segment of a vertical scan line, spanning the y range
// [Start, End].
type ScanSegment struct {
	Start, End int
}

// VerticalScanLine carries the segments found along image column Position.
type VerticalScanLine struct {
	Position int
	Segments []ScanSegment
}

// ScanGrid is the vertical-scan segmentation of one frame.
type ScanGrid struct {
	VerticalScanLines []VerticalScanLine
}

// PointsFromScanGrid emits the start and end of every segment whose center
// lies below horizonY as edge points.
func PointsFromScanGrid(grid *ScanGrid, horizonY float64) []geometry.Point[geometry.Pixel] {
	var points []geometry.Point[geometry.Pixel]
	for _, scanLine := range grid.VerticalScanLines {
		x := float64(scanLine.Position)
		for _, segment := range scanLine.Segments {
			center := float64(segment.Start+segment.End) / 2
			if center <= horizonY {
				continue
			}
			points = append(points,
				geometry.Pt[geometry.Pixel](x, float64(segment.Start)),
				geometry.Pt[geometry.Pixel](x, float64(segment.End)),
			)
		}
	}
	return points
}
