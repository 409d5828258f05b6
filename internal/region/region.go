package region

import (
	"fmt"

	"github.com/MikeSquared-Agency/Elicit/internal/scoring"
)

// Delta expresses every "strict" inequality of the model: sign boxes are
// [Delta, 1] or [-1, -Delta] and learned constraints demand a Delta margin.
const Delta = 1e-6

// Box returns the sign-box bounds of weight coordinate i.
func Box(i int, negative scoring.NegativeSet) (lo, hi float64) {
	if negative.Contains(i) {
		return -1, -Delta
	}
	return Delta, 1
}

// Region is the feasible set of utility weights: the sign box, the scale
// constraint -1 <= Σw <= 1 and every constraint learned so far. Constraints
// are only ever added, so the region never grows.
type Region struct {
	dimension   int
	negative    scoring.NegativeSet
	constraints []Constraint
}

// New creates the initial region for the given dimension, holding only the
// scale constraint.
func New(dimension int, negative scoring.NegativeSet) (*Region, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("region dimension must be positive, got %d", dimension)
	}
	for i := range negative {
		if i < 0 || i >= dimension {
			return nil, fmt.Errorf("negative attribute index %d out of range [0, %d)", i, dimension)
		}
	}

	ones := make(scoring.Vector, dimension)
	for i := range ones {
		ones[i] = 1
	}
	return &Region{
		dimension:   dimension,
		negative:    negative,
		constraints: []Constraint{Between(ones, -1, 1)},
	}, nil
}

// Dimension returns the number of weight coordinates.
func (r *Region) Dimension() int { return r.dimension }

// Len returns the number of constraints, including the scale constraint.
func (r *Region) Len() int { return len(r.constraints) }

// Add appends c to the region.
func (r *Region) Add(c Constraint) error {
	if c.Dimension() != r.dimension {
		return fmt.Errorf("constraint dimension %d does not match region dimension %d", c.Dimension(), r.dimension)
	}
	r.constraints = append(r.constraints, c)
	return nil
}

// Constraints returns the current constraint list. The slice is clipped to its
// length, so appending to it never writes into the region.
func (r *Region) Constraints() []Constraint {
	return r.constraints[:len(r.constraints):len(r.constraints)]
}

// Contains reports whether w lies in the region within tol.
func (r *Region) Contains(w scoring.Vector, tol float64) bool {
	if len(w) != r.dimension {
		return false
	}
	for i, v := range w {
		lo, hi := Box(i, r.negative)
		if v < lo-tol || v > hi+tol {
			return false
		}
	}
	for _, c := range r.constraints {
		if !c.SatisfiedBy(w, tol) {
			return false
		}
	}
	return true
}
