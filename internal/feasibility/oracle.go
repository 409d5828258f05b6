package feasibility

import (
	"errors"

	"github.com/MikeSquared-Agency/Elicit/internal/region"
	"github.com/MikeSquared-Agency/Elicit/internal/scoring"
)

// ErrSolverUnavailable indicates the feasibility solver could not be built or
// failed in a way that leaves the answer unknown. It is always fatal.
var ErrSolverUnavailable = errors.New("feasibility solver unavailable")

// Oracle answers whether a weight region is non-empty: the sign box for the
// given dimension and negative attributes intersected with every constraint.
// Implementations must be deterministic and keep no state between calls.
type Oracle interface {
	Feasible(dimension int, constraints []region.Constraint, negative scoring.NegativeSet) (bool, error)
}

// Func adapts a plain function to the Oracle interface.
type Func func(dimension int, constraints []region.Constraint, negative scoring.NegativeSet) (bool, error)

// Feasible calls f.
func (f Func) Feasible(dimension int, constraints []region.Constraint, negative scoring.NegativeSet) (bool, error) {
	return f(dimension, constraints, negative)
}
