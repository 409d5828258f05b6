package oracle

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/MikeSquared-Agency/Elicit/internal/scoring"
)

// Counter enforces the oracle contract around another oracle and counts
// every query it forwards.
type Counter struct {
	inner     Oracle
	dimension int
	count     atomic.Int64
}

// NewCounter wraps inner for vectors of the given dimension.
func NewCounter(inner Oracle, dimension int) *Counter {
	return &Counter{inner: inner, dimension: dimension}
}

// Query checks dimensions, counts the call and validates the answer.
func (c *Counter) Query(ctx context.Context, p1, p2 scoring.Vector) (Preference, error) {
	if len(p1) != c.dimension || len(p2) != c.dimension {
		return 0, fmt.Errorf("%w: got %d and %d, want %d", ErrDimensionMismatch, len(p1), len(p2), c.dimension)
	}
	c.count.Add(1)

	pref, err := c.inner.Query(ctx, p1, p2)
	if err != nil {
		return 0, err
	}
	if !pref.Valid() {
		return 0, fmt.Errorf("%w: answer %d", ErrContractViolation, int(pref))
	}
	return pref, nil
}

// Count returns the number of queries issued so far.
func (c *Counter) Count() int {
	return int(c.count.Load())
}
