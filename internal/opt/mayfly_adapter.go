package opt

import (
	"math"
	"math/rand"

	"github.com/cwbudde/mayfly"
)

// MayflyAdapter wraps the external mayfly library to conform to the
// Optimizer interface. The calibration polish stage uses it to squeeze the
// last fraction of a pixel out of a RANSAC circle candidate.
type MayflyAdapter struct {
	maxIters int
	popSize  int
	seed     int64
}

// NewMayfly creates a mayfly optimizer with the standard variant. The
// library requires a population size of at least 20.
func NewMayfly(maxIters, popSize int, seed int64) Optimizer {
	return &MayflyAdapter{
		maxIters: maxIters,
		popSize:  popSize,
		seed:     seed,
	}
}

// Run executes the mayfly optimization. The library takes scalar bounds, so
// the widest per-dimension box is handed over and eval is expected to cope
// with slightly loose bounds.
func (m *MayflyAdapter) Run(eval func([]float64) float64, lower, upper []float64, dim int) ([]float64, float64) {
	config := mayfly.NewDefaultConfig()
	config.ObjectiveFunc = eval
	config.ProblemSize = dim
	config.MaxIterations = m.maxIters
	config.NPop = m.popSize
	lo, hi := lower[0], upper[0]
	for i := 1; i < dim; i++ {
		lo = math.Min(lo, lower[i])
		hi = math.Max(hi, upper[i])
	}
	config.LowerBound = lo
	config.UpperBound = hi
	config.Rand = rand.New(rand.NewSource(m.seed))

	result, err := mayfly.Optimize(config)
	if err != nil {
		fallback := make([]float64, dim)
		return fallback, eval(fallback)
	}

	return result.GlobalBest.Position, result.GlobalBest.Cost
}
