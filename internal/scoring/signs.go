package scoring

import (
	"fmt"
	"sort"
)

// NegativeSet holds the attribute indices whose utility weight is constrained
// negative (lower is better). Every other index is positive.
type NegativeSet map[int]struct{}

// NewNegativeSet builds a NegativeSet for a space of the given dimension.
// Duplicate indices are accepted; out-of-range indices are rejected.
func NewNegativeSet(indices []int, dimension int) (NegativeSet, error) {
	set := make(NegativeSet, len(indices))
	for _, i := range indices {
		if i < 0 || i >= dimension {
			return nil, fmt.Errorf("negative attribute index %d out of range [0, %d)", i, dimension)
		}
		set[i] = struct{}{}
	}
	return set, nil
}

// Contains reports whether attribute i is negative. A nil set contains nothing.
func (s NegativeSet) Contains(i int) bool {
	_, ok := s[i]
	return ok
}

// Sign returns -1 for negative attributes and +1 otherwise.
func (s NegativeSet) Sign(i int) float64 {
	if s.Contains(i) {
		return -1
	}
	return 1
}

// Indices returns the negative indices in ascending order.
func (s NegativeSet) Indices() []int {
	out := make([]int, 0, len(s))
	for i := range s {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}
