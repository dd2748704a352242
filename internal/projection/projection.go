package projection

import (
	"errors"

	"github.com/tuxbotix/hulk/internal/geometry"
)

// Projection maps between the image plane and the field plane. Both
// directions may fail per point (for example when a pixel ray never hits
// the ground); callers drop such points locally.
type Projection interface {
	PixelToGround(geometry.Point[geometry.Pixel]) (geometry.Point[geometry.Ground], error)
	GroundToPixel(geometry.Point[geometry.Ground]) (geometry.Point[geometry.Pixel], error)

	// ImageSize returns the frame dimensions in pixels.
	ImageSize() (width, height int)

	// HorizonYMinimum returns the smallest image y at or below the
	// projected horizon; content strictly above it carries no ground
	// information. The second value is false when no horizon is available.
	HorizonYMinimum() (float64, bool)
}

// ErrNotProjectable is returned for points outside the projectable region.
var ErrNotProjectable = errors.New("projection: point not projectable")

// PlanarCamera is a simple affine pixel↔ground mapping for tests and
// offline tooling: ground = (pixel − principal) / pixelsPerMeter, with an
// optional horizon row above which projection fails.
type PlanarCamera struct {
	Width, Height  int
	PixelsPerMeter float64
	PrincipalX     float64
	PrincipalY     float64
	HorizonY       float64
	HasHorizon     bool
}

// NewPlanarCamera builds a planar camera with the principal point at the
// image center.
func NewPlanarCamera(width, height int, pixelsPerMeter float64) *PlanarCamera {
	return &PlanarCamera{
		Width:          width,
		Height:         height,
		PixelsPerMeter: pixelsPerMeter,
		PrincipalX:     float64(width) / 2,
		PrincipalY:     float64(height) / 2,
	}
}

func (c *PlanarCamera) PixelToGround(p geometry.Point[geometry.Pixel]) (geometry.Point[geometry.Ground], error) {
	if c.HasHorizon && p.Y < c.HorizonY {
		return geometry.Point[geometry.Ground]{}, ErrNotProjectable
	}
	return geometry.Pt[geometry.Ground](
		(p.X-c.PrincipalX)/c.PixelsPerMeter,
		(p.Y-c.PrincipalY)/c.PixelsPerMeter,
	), nil
}

func (c *PlanarCamera) GroundToPixel(p geometry.Point[geometry.Ground]) (geometry.Point[geometry.Pixel], error) {
	return geometry.Pt[geometry.Pixel](
		p.X*c.PixelsPerMeter+c.PrincipalX,
		p.Y*c.PixelsPerMeter+c.PrincipalY,
	), nil
}

func (c *PlanarCamera) ImageSize() (int, int) {
	return c.Width, c.Height
}

func (c *PlanarCamera) HorizonYMinimum() (float64, bool) {
	return c.HorizonY, c.HasHorizon
}
