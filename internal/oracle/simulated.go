package oracle

import (
	"context"
	"fmt"

	"github.com/MikeSquared-Agency/Elicit/internal/scoring"
)

// Simulated answers from a known weight vector. It prefers the first tuple
// only when its utility is strictly greater, so ties go to the second.
type Simulated struct {
	weights scoring.Weights
}

// NewSimulated pads weights with zeros up to dimension and validates them.
func NewSimulated(weights scoring.Weights, dimension int) (*Simulated, error) {
	padded := weights.Pad(dimension)
	if err := padded.Validate(dimension); err != nil {
		return nil, err
	}
	return &Simulated{weights: padded}, nil
}

func (s *Simulated) Query(_ context.Context, p1, p2 scoring.Vector) (Preference, error) {
	if len(p1) != len(s.weights) || len(p2) != len(s.weights) {
		return 0, fmt.Errorf("%w: got %d and %d, want %d", ErrDimensionMismatch, len(p1), len(p2), len(s.weights))
	}
	if s.weights.Score(p1) > s.weights.Score(p2) {
		return PrefersFirst, nil
	}
	return PrefersSecond, nil
}

// Utility returns the hidden weights.
func (s *Simulated) Utility() scoring.Weights {
	return s.weights
}
