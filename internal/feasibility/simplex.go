package feasibility

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/MikeSquared-Agency/Elicit/internal/region"
	"github.com/MikeSquared-Agency/Elicit/internal/scoring"
)

// DefaultTolerance is the simplex tolerance used when none is configured. It
// stays well below region.Delta so boundary points are not reported feasible.
const DefaultTolerance = 1e-9

// Simplex checks feasibility with gonum's simplex solver. The weight vector is
// a free variable bounded by its sign box; there is no objective.
type Simplex struct {
	tol    float64
	logger *slog.Logger
}

// NewSimplex creates a Simplex oracle. The tolerance must be finite, non-negative
// and at most region.Delta/10.
func NewSimplex(tol float64, logger *slog.Logger) (*Simplex, error) {
	if math.IsNaN(tol) || math.IsInf(tol, 0) || tol < 0 || tol > region.Delta/10 {
		return nil, fmt.Errorf("%w: tolerance %g must be in [0, %g]", ErrSolverUnavailable, tol, region.Delta/10)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Simplex{tol: tol, logger: logger}, nil
}

// Feasible builds the inequality system G·x <= h and reports whether any x
// satisfies it. Only a solver-reported infeasibility yields false.
func (s *Simplex) Feasible(dimension int, constraints []region.Constraint, negative scoring.NegativeSet) (ok bool, err error) {
	if dimension <= 0 {
		return false, fmt.Errorf("%w: dimension must be positive, got %d", ErrSolverUnavailable, dimension)
	}

	g, h, err := buildSystem(dimension, constraints, negative)
	if err != nil {
		return false, err
	}

	defer func() {
		if r := recover(); r != nil {
			ok, err = false, fmt.Errorf("%w: %v", ErrSolverUnavailable, r)
		}
	}()

	c := make([]float64, dimension)
	cNew, aNew, bNew := lp.Convert(c, g, h, nil, nil)
	_, _, solveErr := lp.Simplex(cNew, aNew, bNew, s.tol, nil)
	switch {
	case solveErr == nil:
		return true, nil
	case errors.Is(solveErr, lp.ErrInfeasible):
		return false, nil
	default:
		s.logger.Debug("solver returned non-infeasible status, treating as feasible",
			"status", solveErr.Error(),
			"dimension", dimension,
			"constraints", len(constraints),
		)
		return true, nil
	}
}

// buildSystem lays out one row per finite bound: the sign box first, then
// each constraint's upper and lower side.
func buildSystem(dimension int, constraints []region.Constraint, negative scoring.NegativeSet) (*mat.Dense, []float64, error) {
	rows := 2 * dimension
	for i, c := range constraints {
		if c.Dimension() != dimension {
			return nil, nil, fmt.Errorf("constraint %d has dimension %d, expected %d", i, c.Dimension(), dimension)
		}
		if c.Upper != nil {
			rows++
		}
		if c.Lower != nil {
			rows++
		}
	}

	g := mat.NewDense(rows, dimension, nil)
	h := make([]float64, rows)
	r := 0
	for i := 0; i < dimension; i++ {
		lo, hi := region.Box(i, negative)
		g.Set(r, i, 1)
		h[r] = hi
		r++
		g.Set(r, i, -1)
		h[r] = -lo
		r++
	}
	for _, c := range constraints {
		if c.Upper != nil {
			for j, v := range c.Coefficients {
				g.Set(r, j, v)
			}
			h[r] = *c.Upper
			r++
		}
		if c.Lower != nil {
			for j, v := range c.Coefficients {
				g.Set(r, j, -v)
			}
			h[r] = -*c.Lower
			r++
		}
	}
	return g, h, nil
}
