package geometry

// Circle is a circle with a positive radius.
type Circle[F any] struct {
	Center Point[F]
	Radius float64
}

// Residual returns the squared-form residual of p against the circle,
// ||p − c||² − r². Negative inside, positive outside, zero on the rim.
func (c Circle[F]) Residual(p Point[F]) float64 {
	return p.Sub(c.Center).NormSquared() - c.Radius*c.Radius
}

// Rectangle is an axis-aligned rectangle given by its minimum and maximum
// corners.
type Rectangle[F any] struct {
	Min, Max Point[F]
}

// BoundingBox computes the axis-aligned bounding box of points, grown by
// padding on every side. Returns false when points is empty.
func BoundingBox[F any](points []Point[F], padding float64) (Rectangle[F], bool) {
	if len(points) == 0 {
		return Rectangle[F]{}, false
	}
	minX, minY := points[0].X, points[0].Y
	maxX, maxY := minX, minY
	for _, p := range points[1:] {
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	return Rectangle[F]{
		Min: Point[F]{X: minX - padding, Y: minY - padding},
		Max: Point[F]{X: maxX + padding, Y: maxY + padding},
	}, true
}

// Contains reports whether p lies inside the rectangle, borders included.
func (r Rectangle[F]) Contains(p Point[F]) bool {
	return p.X >= r.Min.X && p.X <= r.Max.X && p.Y >= r.Min.Y && p.Y <= r.Max.Y
}

// Width returns the horizontal extent of the rectangle.
func (r Rectangle[F]) Width() float64 {
	return r.Max.X - r.Min.X
}

// Height returns the vertical extent of the rectangle.
func (r Rectangle[F]) Height() float64 {
	return r.Max.Y - r.Min.Y
}
