package dominance

import (
	"fmt"
	"log/slog"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/MikeSquared-Agency/Elicit/internal/feasibility"
	"github.com/MikeSquared-Agency/Elicit/internal/region"
	"github.com/MikeSquared-Agency/Elicit/internal/scoring"
)

// Classifier decides whether a candidate needs a real oracle query. It reads
// the constraint list and never modifies it.
type Classifier interface {
	Classify(candidate, best scoring.Vector, constraints []region.Constraint) (Decision, error)
}

// Options configures an LP classifier.
type Options struct {
	Dimension int
	Negative  scoring.NegativeSet
	Eps       float64
	// Parallel solves the overtake and counter probes concurrently.
	Parallel bool
	// FastPath settles signed Pareto comparisons without the solver.
	FastPath bool
	Logger   *slog.Logger
}

// New builds the classifier for criterion.
func New(criterion Criterion, oracle feasibility.Oracle, opts Options) (Classifier, error) {
	switch criterion {
	case CriterionLP:
		return NewLP(oracle, opts)
	case CriterionExhaustive:
		return Exhaustive{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownCriterion, criterion)
	}
}

// Exhaustive always asks for a query. It is the baseline strategy.
type Exhaustive struct{}

// Classify returns Ambiguous.
func (Exhaustive) Classify(_, _ scoring.Vector, _ []region.Constraint) (Decision, error) {
	return Ambiguous, nil
}

// LP classifies with two feasibility probes against the current constraints.
type LP struct {
	oracle feasibility.Oracle
	opts   Options
	logger *slog.Logger
}

// NewLP creates an LP classifier.
func NewLP(oracle feasibility.Oracle, opts Options) (*LP, error) {
	if oracle == nil {
		return nil, fmt.Errorf("%w: nil feasibility oracle", feasibility.ErrSolverUnavailable)
	}
	if opts.Dimension <= 0 {
		return nil, fmt.Errorf("classifier dimension must be positive, got %d", opts.Dimension)
	}
	if math.IsNaN(opts.Eps) || math.IsInf(opts.Eps, 0) || opts.Eps < 0 {
		return nil, fmt.Errorf("eps must be a finite non-negative number, got %f", opts.Eps)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &LP{oracle: oracle, opts: opts, logger: logger}, nil
}

// Classify runs the overtake probe, then (if the candidate can overtake) the
// counter probe:
//
//	overtake: exists w with candidate·w >= (1+eps)·best·w + delta, else Skip
//	counter:  exists w with best·w >= candidate·w + delta, else Dominates
//
// Both feasible means Ambiguous.
func (c *LP) Classify(candidate, best scoring.Vector, constraints []region.Constraint) (Decision, error) {
	if len(candidate) != c.opts.Dimension || len(best) != c.opts.Dimension {
		return 0, fmt.Errorf("classify: vector dimension %d/%d does not match %d", len(candidate), len(best), c.opts.Dimension)
	}

	counterKnownInfeasible := false
	if c.opts.FastPath {
		if scoring.FastPathSkip(candidate, best, c.opts.Negative, c.opts.Eps) {
			c.logger.Debug("fast path skip", "candidate", candidate, "best", best)
			return Skip, nil
		}
		counterKnownInfeasible = scoring.FastPathDominates(candidate, best, c.opts.Negative)
	}

	overtake := c.overtakeProbe(candidate, best, constraints)
	counter := c.counterProbe(candidate, best, constraints)

	var canOvertake, canLose bool
	var err error
	switch {
	case counterKnownInfeasible:
		canOvertake, err = c.feasible(overtake)
	case c.opts.Parallel:
		canOvertake, canLose, err = c.probeBoth(overtake, counter)
	default:
		canOvertake, err = c.feasible(overtake)
		if err == nil && canOvertake {
			canLose, err = c.feasible(counter)
		}
	}
	if err != nil {
		return 0, err
	}

	switch {
	case !canOvertake:
		return Skip, nil
	case !canLose:
		return Dominates, nil
	default:
		return Ambiguous, nil
	}
}

// overtakeProbe is constraints + ((1+eps)·best - candidate)·w <= -delta.
func (c *LP) overtakeProbe(candidate, best scoring.Vector, constraints []region.Constraint) []region.Constraint {
	coeffs := best.Scale(1 + c.opts.Eps).Sub(candidate)
	return append(constraints[:len(constraints):len(constraints)], region.AtMost(coeffs, -region.Delta))
}

// counterProbe is constraints + (best - candidate)·w >= delta.
func (c *LP) counterProbe(candidate, best scoring.Vector, constraints []region.Constraint) []region.Constraint {
	return append(constraints[:len(constraints):len(constraints)], region.AtLeast(best.Sub(candidate), region.Delta))
}

func (c *LP) feasible(constraints []region.Constraint) (bool, error) {
	return c.oracle.Feasible(c.opts.Dimension, constraints, c.opts.Negative)
}

// probeBoth solves both probes concurrently. The two slices share the frozen
// prefix read-only; neither goroutine writes to it.
func (c *LP) probeBoth(overtake, counter []region.Constraint) (canOvertake, canLose bool, err error) {
	var g errgroup.Group
	g.Go(func() error {
		ok, err := c.feasible(overtake)
		canOvertake = ok
		return err
	})
	g.Go(func() error {
		ok, err := c.feasible(counter)
		canLose = ok
		return err
	})
	if err := g.Wait(); err != nil {
		return false, false, err
	}
	return canOvertake, canLose, nil
}
