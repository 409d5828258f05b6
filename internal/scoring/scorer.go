package scoring

import (
	"errors"
	"math"
)

// ErrNoRows is returned when a score is requested over an empty row set.
var ErrNoRows = errors.New("no rows to score")

// ScoringResult captures the ground-truth utility of one row.
type ScoringResult struct {
	Index   int     `json:"index"`
	Utility float64 `json:"utility"`
}

// Scorer evaluates rows under a known utility. It is only meaningful when the
// preference source is a simulation with known weights.
type Scorer struct {
	weights Weights
}

// NewScorer creates a Scorer for the given weights.
func NewScorer(weights Weights) *Scorer {
	return &Scorer{weights: weights}
}

// Utility returns the utility of a single row.
func (s *Scorer) Utility(p Vector) float64 {
	return s.weights.Score(p)
}

// Best returns the first row with the highest utility.
func (s *Scorer) Best(rows []Vector) (ScoringResult, error) {
	if len(rows) == 0 {
		return ScoringResult{}, ErrNoRows
	}
	best := ScoringResult{Index: 0, Utility: s.Utility(rows[0])}
	for i := 1; i < len(rows); i++ {
		if u := s.Utility(rows[i]); u > best.Utility {
			best = ScoringResult{Index: i, Utility: u}
		}
	}
	return best, nil
}

// RegretRatio returns 1 - u(rows[index]) / max u over rows, clamped to [0, 1].
// A non-positive maximum makes the ratio meaningless and yields 0 when the
// chosen row is the maximum, 1 otherwise.
func (s *Scorer) RegretRatio(rows []Vector, index int) (float64, error) {
	best, err := s.Best(rows)
	if err != nil {
		return 0, err
	}
	chosen := s.Utility(rows[index])
	if best.Utility <= 0 {
		if chosen >= best.Utility {
			return 0, nil
		}
		return 1, nil
	}
	return clamp(1-chosen/best.Utility, 0, 1), nil
}

func clamp(v, min, max float64) float64 {
	return math.Min(math.Max(v, min), max)
}
