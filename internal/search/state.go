package search

import (
	"github.com/MikeSquared-Agency/Elicit/internal/dominance"
	"github.com/MikeSquared-Agency/Elicit/internal/region"
	"github.com/MikeSquared-Agency/Elicit/internal/scoring"
)

// state is the mutable part of one run. Only the controller touches it.
type state struct {
	region    *region.Region
	bestIndex int
	best      scoring.Vector
	queries   int
	decisions map[dominance.Decision]int
}

func newState(r *region.Region, first scoring.Vector) *state {
	return &state{
		region:    r,
		bestIndex: 0,
		best:      first,
		decisions: make(map[dominance.Decision]int),
	}
}

func (s *state) record(d dominance.Decision) {
	s.decisions[d]++
}

func (s *state) replaceBest(index int, v scoring.Vector) {
	s.bestIndex = index
	s.best = v
}

// learned is the number of constraints added by answered queries.
func (s *state) learned() int {
	return s.region.Len() - 1
}

func (s *state) histogram() map[string]int {
	out := make(map[string]int, len(s.decisions))
	for d, n := range s.decisions {
		out[d.String()] = n
	}
	return out
}
