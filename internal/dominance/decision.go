package dominance

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownCriterion is returned for a classification strategy name that is
// not supported. It is a start-up configuration error.
var ErrUnknownCriterion = errors.New("unknown classification criterion")

// Decision is the outcome of classifying a candidate against the current best.
type Decision int

const (
	// Skip means the candidate cannot beat the best by more than (1+eps)
	// anywhere in the feasible region and is discarded without a query.
	Skip Decision = iota
	// Dominates means the best no longer wins anywhere in the region and the
	// candidate replaces it without a query.
	Dominates
	// Ambiguous means both outcomes remain possible and a query is required.
	Ambiguous
)

func (d Decision) String() string {
	switch d {
	case Skip:
		return "skip"
	case Dominates:
		return "dominates"
	case Ambiguous:
		return "ambiguous"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

// Criterion selects the classification strategy.
type Criterion int

const (
	// CriterionLP prunes candidates with two feasibility checks.
	CriterionLP Criterion = iota
	// CriterionExhaustive queries the oracle for every candidate.
	CriterionExhaustive
)

func (c Criterion) String() string {
	switch c {
	case CriterionLP:
		return "LP"
	case CriterionExhaustive:
		return "exhaustive"
	default:
		return fmt.Sprintf("criterion(%d)", int(c))
	}
}

// ParseCriterion maps a configured strategy name to a Criterion. "bruteforce"
// is accepted as an alias of "exhaustive".
func ParseCriterion(name string) (Criterion, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "lp":
		return CriterionLP, nil
	case "exhaustive", "bruteforce":
		return CriterionExhaustive, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownCriterion, name)
	}
}
