package scoring

import (
	"fmt"
	"math"
	"math/rand"
)

// Weights is a linear utility function: the utility of a tuple p is Weights·p.
type Weights Vector

// RandomWeights draws a utility with every weight uniform in [0, 1).
func RandomWeights(dimension int, rng *rand.Rand) Weights {
	w := make(Weights, dimension)
	for i := range w {
		w[i] = rng.Float64()
	}
	return w
}

// Pad extends w with zero weights up to dimension. Longer utilities are
// returned unchanged so that Validate can reject them.
func (w Weights) Pad(dimension int) Weights {
	if len(w) >= dimension {
		return w
	}
	out := make(Weights, dimension)
	copy(out, w)
	return out
}

// Score returns the utility of p.
func (w Weights) Score(p Vector) float64 {
	return Vector(w).Dot(p)
}

// Validate checks that w matches the dimension and holds only finite values.
func (w Weights) Validate(dimension int) error {
	if len(w) != dimension {
		return fmt.Errorf("utility has %d weights, dataset dimension is %d", len(w), dimension)
	}
	for i, v := range w {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("utility weight %d is not finite: %f", i, v)
		}
	}
	return nil
}
