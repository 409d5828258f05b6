package region

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/Elicit/internal/scoring"
)

func TestConstraintConstructorsCopyCoefficients(t *testing.T) {
	coeffs := scoring.Vector{1, -1}
	c := AtLeast(coeffs, Delta)
	coeffs[0] = 42

	assert.Equal(t, 1.0, c.Coefficients[0])
	require.NotNil(t, c.Lower)
	assert.Nil(t, c.Upper)
	assert.Equal(t, Delta, *c.Lower)
}

func TestConstraintSatisfiedBy(t *testing.T) {
	w := scoring.Vector{0.6, 0.4}

	assert.True(t, AtLeast(scoring.Vector{1, -1}, Delta).SatisfiedBy(w, 0))
	assert.False(t, AtMost(scoring.Vector{1, -1}, 0.1).SatisfiedBy(w, 0))
	assert.True(t, Between(scoring.Vector{1, 1}, -1, 1).SatisfiedBy(w, 0))
	assert.False(t, Between(scoring.Vector{1, 1}, -1, 0.5).SatisfiedBy(w, 0))
	// Both bounds absent is always satisfied.
	assert.True(t, Constraint{Coefficients: scoring.Vector{5, 5}}.SatisfiedBy(w, 0))
}

func TestConstraintString(t *testing.T) {
	assert.Equal(t, "1e-06 <= [1, -1] <= None", AtLeast(scoring.Vector{1, -1}, Delta).String())
	assert.Equal(t, "None <= [0.5] <= 2", AtMost(scoring.Vector{0.5}, 2).String())
}

func TestNewRegionStartsWithScaleConstraint(t *testing.T) {
	r, err := New(3, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, r.Dimension())
	require.Equal(t, 1, r.Len())
	scale := r.Constraints()[0]
	assert.Equal(t, scoring.Vector{1, 1, 1}, scale.Coefficients)
	assert.Equal(t, -1.0, *scale.Lower)
	assert.Equal(t, 1.0, *scale.Upper)
}

func TestNewRegionRejectsBadInput(t *testing.T) {
	_, err := New(0, nil)
	assert.Error(t, err)

	_, err = New(2, scoring.NegativeSet{2: {}})
	assert.Error(t, err)
}

func TestBox(t *testing.T) {
	neg := scoring.NegativeSet{1: {}}
	lo, hi := Box(0, neg)
	assert.Equal(t, Delta, lo)
	assert.Equal(t, 1.0, hi)

	lo, hi = Box(1, neg)
	assert.Equal(t, -1.0, lo)
	assert.Equal(t, -Delta, hi)
}

func TestAddRejectsDimensionMismatch(t *testing.T) {
	r, err := New(2, nil)
	require.NoError(t, err)

	assert.Error(t, r.Add(AtLeast(scoring.Vector{1, 2, 3}, 0)))
	assert.Equal(t, 1, r.Len())
}

func TestConstraintsSnapshotDoesNotAlias(t *testing.T) {
	r, err := New(2, nil)
	require.NoError(t, err)
	require.NoError(t, r.Add(AtLeast(scoring.Vector{1, -1}, Delta)))

	snap := r.Constraints()
	probe := append(snap, AtMost(scoring.Vector{1, 0}, 0))
	require.Len(t, probe, 3)

	require.NoError(t, r.Add(AtMost(scoring.Vector{0, 1}, 0.9)))
	assert.Equal(t, scoring.Vector{1, 0}, probe[2].Coefficients, "region append overwrote a probe slice")
	assert.Equal(t, 3, r.Len())
}

func TestContainsShrinksMonotonically(t *testing.T) {
	r, err := New(2, nil)
	require.NoError(t, err)

	favourFirst := scoring.Vector{0.99, 0.01}
	favourSecond := scoring.Vector{0.01, 0.99}
	assert.True(t, r.Contains(favourFirst, 0))
	assert.True(t, r.Contains(favourSecond, 0))

	// [1,0] preferred over [0,1]: w0 - w1 >= delta.
	require.NoError(t, r.Add(AtLeast(scoring.Vector{1, -1}, Delta)))
	assert.True(t, r.Contains(favourFirst, 0))
	assert.False(t, r.Contains(favourSecond, 0))

	// Further constraints never readmit the excluded weight.
	require.NoError(t, r.Add(AtMost(scoring.Vector{1, 0}, 1)))
	assert.False(t, r.Contains(favourSecond, 0))
}

func TestContainsChecksSignBox(t *testing.T) {
	r, err := New(2, scoring.NegativeSet{1: {}})
	require.NoError(t, err)

	assert.True(t, r.Contains(scoring.Vector{0.5, -0.3}, 0))
	assert.False(t, r.Contains(scoring.Vector{0.5, 0.3}, 0))
	assert.False(t, r.Contains(scoring.Vector{0, -0.3}, 0))
	assert.False(t, r.Contains(scoring.Vector{0.5}, 0))
}
