package region

import (
	"strconv"

	"github.com/MikeSquared-Agency/Elicit/internal/scoring"
)

// Constraint is the linear interval Lower <= Coefficients·w <= Upper over the
// weight space. A nil bound leaves that side unconstrained. Constraints are
// immutable once built; the constructors copy their coefficients.
type Constraint struct {
	Coefficients scoring.Vector
	Lower        *float64
	Upper        *float64
}

// AtLeast returns the constraint coeffs·w >= lb.
func AtLeast(coeffs scoring.Vector, lb float64) Constraint {
	return Constraint{Coefficients: coeffs.Clone(), Lower: &lb}
}

// AtMost returns the constraint coeffs·w <= ub.
func AtMost(coeffs scoring.Vector, ub float64) Constraint {
	return Constraint{Coefficients: coeffs.Clone(), Upper: &ub}
}

// Between returns the constraint lb <= coeffs·w <= ub.
func Between(coeffs scoring.Vector, lb, ub float64) Constraint {
	return Constraint{Coefficients: coeffs.Clone(), Lower: &lb, Upper: &ub}
}

// Dimension returns the number of coefficients.
func (c Constraint) Dimension() int {
	return len(c.Coefficients)
}

// SatisfiedBy reports whether w satisfies c within tol.
func (c Constraint) SatisfiedBy(w scoring.Vector, tol float64) bool {
	v := c.Coefficients.Dot(w)
	if c.Lower != nil && v < *c.Lower-tol {
		return false
	}
	if c.Upper != nil && v > *c.Upper+tol {
		return false
	}
	return true
}

func (c Constraint) String() string {
	return bound(c.Lower) + " <= " + c.Coefficients.String() + " <= " + bound(c.Upper)
}

func bound(b *float64) string {
	if b == nil {
		return "None"
	}
	return strconv.FormatFloat(*b, 'g', -1, 64)
}
