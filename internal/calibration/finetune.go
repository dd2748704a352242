package calibration

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/tuxbotix/hulk/internal/geometry"
	"github.com/tuxbotix/hulk/internal/opt"
)

// FitCircleKasa fits a circle to the points by the algebraic least-squares
// formulation: x² + y² + Dx + Ey + F = 0 solved for (D, E, F). It is cheap,
// has no iteration, and is good enough to re-center the circumference
// filter; it is not a replacement for the RANSAC consensus.
func FitCircleKasa(points []geometry.Point[geometry.Ground]) (geometry.Circle[geometry.Ground], error) {
	n := len(points)
	if n < 3 {
		return geometry.Circle[geometry.Ground]{}, fmt.Errorf("calibration: need at least 3 points, have %d", n)
	}

	a := mat.NewDense(n, 3, nil)
	b := mat.NewVecDense(n, nil)
	for i, p := range points {
		a.Set(i, 0, p.X)
		a.Set(i, 1, p.Y)
		a.Set(i, 2, 1)
		b.SetVec(i, -(p.X*p.X + p.Y*p.Y))
	}

	var solution mat.VecDense
	if err := solution.SolveVec(a, b); err != nil {
		return geometry.Circle[geometry.Ground]{}, fmt.Errorf("calibration: circle fit is singular: %w", err)
	}

	d, e, f := solution.AtVec(0), solution.AtVec(1), solution.AtVec(2)
	center := geometry.Pt[geometry.Ground](-d/2, -e/2)
	radiusSquared := center.X*center.X + center.Y*center.Y - f
	if radiusSquared <= 0 || math.IsNaN(radiusSquared) {
		return geometry.Circle[geometry.Ground]{}, fmt.Errorf("calibration: degenerate circle fit")
	}

	return geometry.Circle[geometry.Ground]{Center: center, Radius: math.Sqrt(radiusSquared)}, nil
}

// PolishCircle refines a circle by minimizing the summed squared radial
// residual over a small box around the initial estimate. The polished
// circle is returned only when it actually improves on the initial cost.
func PolishCircle(
	initial geometry.Circle[geometry.Ground],
	points []geometry.Point[geometry.Ground],
	optimizer opt.Optimizer,
	searchRadius float64,
) geometry.Circle[geometry.Ground] {
	if len(points) < 3 || searchRadius <= 0 {
		return initial
	}

	cost := func(offsets []float64) float64 {
		center := geometry.Pt[geometry.Ground](initial.Center.X+offsets[0], initial.Center.Y+offsets[1])
		radius := initial.Radius + offsets[2]
		if radius <= 0 {
			return math.Inf(1)
		}
		var sum float64
		for _, p := range points {
			residual := p.Sub(center).Norm() - radius
			sum += residual * residual
		}
		return sum
	}

	lower := []float64{-searchRadius, -searchRadius, -searchRadius}
	upper := []float64{searchRadius, searchRadius, searchRadius}
	best, bestCost := optimizer.Run(cost, lower, upper, 3)

	if bestCost >= cost([]float64{0, 0, 0}) {
		return initial
	}
	return geometry.Circle[geometry.Ground]{
		Center: geometry.Pt[geometry.Ground](initial.Center.X+best[0], initial.Center.Y+best[1]),
		Radius: initial.Radius + best[2],
	}
}
