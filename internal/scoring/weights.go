package scoring

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// DefaultTolerance is the slack allowed on the simplex normalization.
const DefaultTolerance = 1e-6

// WeightVector holds the coefficients of a linear utility function. Valid
// vectors lie on the probability simplex: non-negative and summing to 1.
type WeightVector []float64

// Uniform returns the barycentre of the m-simplex.
func Uniform(m int) WeightVector {
	w := make(WeightVector, m)
	for i := range w {
		w[i] = 1 / float64(m)
	}
	return w
}

// Sum returns the total of all weights.
func (w WeightVector) Sum() float64 {
	return floats.Sum(w)
}

// Utility scores a under the linear model w.
func (w WeightVector) Utility(a Alternative) (float64, error) {
	if err := CheckDim(len(w), len(a)); err != nil {
		return 0, err
	}
	return floats.Dot(w, a), nil
}

// Validate checks that weights sum to 1 within tol and none are negative.
func (w WeightVector) Validate(tol float64) error {
	if len(w) == 0 {
		return fmt.Errorf("empty weight vector")
	}
	for i, v := range w {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("weight %d: %w", i, ErrNonFinite)
		}
		if v < -tol {
			return fmt.Errorf("negative weight %d: %f", i, v)
		}
	}
	if math.Abs(w.Sum()-1.0) > tol {
		return fmt.Errorf("weights sum to %.6f, must sum to 1.0", w.Sum())
	}
	return nil
}

// Clone returns an independent copy.
func (w WeightVector) Clone() WeightVector {
	out := make(WeightVector, len(w))
	copy(out, w)
	return out
}
