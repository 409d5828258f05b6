package dominance

import (
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/Elicit/internal/feasibility"
	"github.com/MikeSquared-Agency/Elicit/internal/feasibility/feasibilitytest"
	"github.com/MikeSquared-Agency/Elicit/internal/region"
	"github.com/MikeSquared-Agency/Elicit/internal/scoring"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newLP(t *testing.T, oracle feasibility.Oracle, opts Options) *LP {
	t.Helper()
	if opts.Dimension == 0 {
		opts.Dimension = 2
	}
	opts.Logger = quietLogger()
	c, err := NewLP(oracle, opts)
	require.NoError(t, err)
	return c
}

func startingConstraints(t *testing.T, negative scoring.NegativeSet) []region.Constraint {
	t.Helper()
	r, err := region.New(2, negative)
	require.NoError(t, err)
	return r.Constraints()
}

func TestParseCriterion(t *testing.T) {
	tests := []struct {
		in   string
		want Criterion
	}{
		{"LP", CriterionLP},
		{"lp", CriterionLP},
		{"exhaustive", CriterionExhaustive},
		{"bruteforce", CriterionExhaustive},
		{" Exhaustive ", CriterionExhaustive},
	}
	for _, tt := range tests {
		got, err := ParseCriterion(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseCriterion("simplex")
	assert.ErrorIs(t, err, ErrUnknownCriterion)
}

func TestDecisionString(t *testing.T) {
	assert.Equal(t, "skip", Skip.String())
	assert.Equal(t, "dominates", Dominates.String())
	assert.Equal(t, "ambiguous", Ambiguous.String())
	assert.Equal(t, "decision(7)", Decision(7).String())
}

func TestNewSelectsStrategy(t *testing.T) {
	c, err := New(CriterionExhaustive, nil, Options{})
	require.NoError(t, err)
	assert.IsType(t, Exhaustive{}, c)

	c, err = New(CriterionLP, &feasibilitytest.Planar{}, Options{Dimension: 2})
	require.NoError(t, err)
	assert.IsType(t, &LP{}, c)

	_, err = New(Criterion(9), nil, Options{})
	assert.ErrorIs(t, err, ErrUnknownCriterion)
}

func TestNewLPRejectsBadOptions(t *testing.T) {
	_, err := NewLP(nil, Options{Dimension: 2})
	assert.ErrorIs(t, err, feasibility.ErrSolverUnavailable)

	_, err = NewLP(&feasibilitytest.Planar{}, Options{Dimension: 0})
	assert.Error(t, err)

	_, err = NewLP(&feasibilitytest.Planar{}, Options{Dimension: 2, Eps: -0.1})
	assert.Error(t, err)
}

func TestExhaustiveAlwaysAmbiguous(t *testing.T) {
	d, err := Exhaustive{}.Classify(scoring.Vector{0, 0}, scoring.Vector{1, 1}, nil)
	require.NoError(t, err)
	assert.Equal(t, Ambiguous, d)
}

func TestClassifyWorkedExample(t *testing.T) {
	oracle := &feasibilitytest.Planar{}
	c := newLP(t, oracle, Options{})
	constraints := startingConstraints(t, nil)
	best := scoring.Vector{1, 0}

	d, err := c.Classify(scoring.Vector{0, 1}, best, constraints)
	require.NoError(t, err)
	assert.Equal(t, Ambiguous, d)

	// The oracle preferred [1,0] over [0,1].
	constraints = append(constraints, region.AtLeast(best.Sub(scoring.Vector{0, 1}), region.Delta))

	d, err = c.Classify(scoring.Vector{0.5, 0.5}, best, constraints)
	require.NoError(t, err)
	assert.Equal(t, Skip, d)
}

func TestClassifyDominates(t *testing.T) {
	c := newLP(t, &feasibilitytest.Planar{}, Options{})
	constraints := startingConstraints(t, nil)

	d, err := c.Classify(scoring.Vector{1, 1}, scoring.Vector{0.5, 0.5}, constraints)
	require.NoError(t, err)
	assert.Equal(t, Dominates, d)
}

func TestClassifyRespectsNegativeAttributes(t *testing.T) {
	negative := scoring.NegativeSet{1: {}}
	c := newLP(t, &feasibilitytest.Planar{}, Options{Negative: negative})
	constraints := startingConstraints(t, negative)

	// Lower is better on attribute 1, so [1,0] beats [1,1] everywhere.
	d, err := c.Classify(scoring.Vector{1, 1}, scoring.Vector{1, 0}, constraints)
	require.NoError(t, err)
	assert.Equal(t, Skip, d)

	d, err = c.Classify(scoring.Vector{1, 0}, scoring.Vector{1, 1}, constraints)
	require.NoError(t, err)
	assert.Equal(t, Dominates, d)
}

func TestClassifyEpsWidensSkip(t *testing.T) {
	constraints := startingConstraints(t, nil)
	candidate, best := scoring.Vector{1.05, 1}, scoring.Vector{1, 1}

	strict := newLP(t, &feasibilitytest.Planar{}, Options{})
	d, err := strict.Classify(candidate, best, constraints)
	require.NoError(t, err)
	assert.Equal(t, Dominates, d)

	loose := newLP(t, &feasibilitytest.Planar{}, Options{Eps: 0.1})
	d, err = loose.Classify(candidate, best, constraints)
	require.NoError(t, err)
	assert.Equal(t, Skip, d)
}

func TestClassifyDoesNotMutateConstraints(t *testing.T) {
	c := newLP(t, &feasibilitytest.Planar{}, Options{})
	constraints := make([]region.Constraint, 0, 8)
	constraints = append(constraints, startingConstraints(t, nil)...)

	_, err := c.Classify(scoring.Vector{0, 1}, scoring.Vector{1, 0}, constraints)
	require.NoError(t, err)
	assert.Len(t, constraints, 1)
	assert.Len(t, constraints[:cap(constraints)][1].Coefficients, 0, "spare capacity must stay untouched")
}

func TestClassifySkipsCounterProbeWhenOvertakeInfeasible(t *testing.T) {
	oracle := &feasibilitytest.Planar{}
	c := newLP(t, oracle, Options{})

	d, err := c.Classify(scoring.Vector{0.2, 0.2}, scoring.Vector{1, 1}, startingConstraints(t, nil))
	require.NoError(t, err)
	assert.Equal(t, Skip, d)
	assert.Equal(t, int64(1), oracle.Calls.Load())
}

func TestClassifyFastPathAvoidsSolver(t *testing.T) {
	oracle := &feasibilitytest.Planar{}
	c := newLP(t, oracle, Options{FastPath: true})

	d, err := c.Classify(scoring.Vector{0.2, 0.2}, scoring.Vector{1, 1}, startingConstraints(t, nil))
	require.NoError(t, err)
	assert.Equal(t, Skip, d)
	assert.Equal(t, int64(0), oracle.Calls.Load())

	d, err = c.Classify(scoring.Vector{1, 1}, scoring.Vector{0.2, 0.2}, startingConstraints(t, nil))
	require.NoError(t, err)
	assert.Equal(t, Dominates, d)
	assert.Equal(t, int64(1), oracle.Calls.Load(), "only the overtake probe runs")
}

func TestClassifyPropagatesSolverErrors(t *testing.T) {
	boom := errors.New("solver exploded")
	failing := feasibility.Func(func(int, []region.Constraint, scoring.NegativeSet) (bool, error) {
		return false, boom
	})

	for _, parallel := range []bool{false, true} {
		c := newLP(t, failing, Options{Parallel: parallel})
		_, err := c.Classify(scoring.Vector{0, 1}, scoring.Vector{1, 0}, nil)
		assert.ErrorIs(t, err, boom, "parallel=%v", parallel)
	}
}

func TestClassifyRejectsDimensionMismatch(t *testing.T) {
	c := newLP(t, &feasibilitytest.Planar{}, Options{})
	_, err := c.Classify(scoring.Vector{1, 2, 3}, scoring.Vector{1, 0}, nil)
	assert.Error(t, err)
}

// randomConstraints builds a region from a few consistent answers of a hidden
// utility, the way a search run would.
func randomConstraints(rng *rand.Rand, hidden scoring.Vector, n int) []region.Constraint {
	constraints := []region.Constraint{region.Between(scoring.Vector{1, 1}, -1, 1)}
	for k := 0; k < n; k++ {
		a := scoring.Vector{rng.Float64(), rng.Float64()}
		b := scoring.Vector{rng.Float64(), rng.Float64()}
		if a.Dot(hidden) > b.Dot(hidden) {
			constraints = append(constraints, region.AtLeast(a.Sub(b), region.Delta))
		} else {
			constraints = append(constraints, region.AtMost(a.Sub(b), region.Delta))
		}
	}
	return constraints
}

func sampleRegion(rng *rand.Rand, constraints []region.Constraint, n int) []scoring.Vector {
	var out []scoring.Vector
	for attempts := 0; len(out) < n && attempts < 200000; attempts++ {
		w := scoring.Vector{region.Delta + rng.Float64()*(1-region.Delta), region.Delta + rng.Float64()*(1-region.Delta)}
		ok := true
		for _, c := range constraints {
			if !c.SatisfiedBy(w, 0) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, w)
		}
	}
	return out
}

func TestClassifierSoundness(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	hidden := scoring.Vector{0.3, 0.5}

	for _, eps := range []float64{0, 0.05} {
		c := newLP(t, &feasibilitytest.Planar{}, Options{Eps: eps})
		for trial := 0; trial < 60; trial++ {
			constraints := randomConstraints(rng, hidden, rng.Intn(4))
			candidate := scoring.Vector{rng.Float64(), rng.Float64()}
			best := scoring.Vector{rng.Float64(), rng.Float64()}

			d, err := c.Classify(candidate, best, constraints)
			require.NoError(t, err)

			for _, w := range sampleRegion(rng, constraints, 40) {
				switch d {
				case Skip:
					assert.Less(t, candidate.Dot(w), (1+eps)*best.Dot(w)+region.Delta,
						"trial %d: skip violated at %v", trial, w)
				case Dominates:
					assert.GreaterOrEqual(t, candidate.Dot(w), best.Dot(w)-region.Delta,
						"trial %d: dominates violated at %v", trial, w)
				}
			}
		}
	}
}

func TestClassifyModesAgree(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	hidden := scoring.Vector{0.7, 0.2}

	plain := newLP(t, &feasibilitytest.Planar{}, Options{})
	fast := newLP(t, &feasibilitytest.Planar{}, Options{FastPath: true})
	parallel := newLP(t, &feasibilitytest.Planar{}, Options{Parallel: true})
	both := newLP(t, &feasibilitytest.Planar{}, Options{Parallel: true, FastPath: true})

	for trial := 0; trial < 100; trial++ {
		constraints := randomConstraints(rng, hidden, rng.Intn(3))
		candidate := scoring.Vector{rng.Float64(), rng.Float64()}
		best := scoring.Vector{rng.Float64(), rng.Float64()}
		if trial%4 == 0 {
			// Force a Pareto relation so the fast path is exercised.
			best = scoring.Vector{candidate[0] + 0.1, candidate[1] + 0.1}
		}

		want, err := plain.Classify(candidate, best, constraints)
		require.NoError(t, err)
		for name, c := range map[string]*LP{"fast": fast, "parallel": parallel, "both": both} {
			got, err := c.Classify(candidate, best, constraints)
			require.NoError(t, err)
			assert.Equal(t, want, got, "trial %d mode %s", trial, name)
		}
	}
}
