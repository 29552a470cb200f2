package biplot

import (
	"math"
	"math/rand"

	"gllvmord/domain/core"

	"gonum.org/v1/gonum/mat"
)

// Jitter returns a copy of points with Uniform(-amount, amount) added to
// every coordinate. It only declumps the drawing; scaled coordinates used
// for ellipses stay untouched. amount 0 returns an exact copy.
func Jitter(points *mat.Dense, amount float64, rng *rand.Rand) (*mat.Dense, error) {
	if amount < 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return nil, core.NewInvalidParameterError("jitter", "must be a finite value >= 0")
	}
	out := mat.DenseCopyOf(points)
	if amount == 0 {
		return out, nil
	}
	if rng == nil {
		return nil, core.NewInvalidParameterError("jitter", "a seeded random source is required")
	}
	r, c := out.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Set(i, j, out.At(i, j)+(2*rng.Float64()-1)*amount)
		}
	}
	return out, nil
}
