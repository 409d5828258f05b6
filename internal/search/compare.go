package search

import (
	"context"
	"fmt"

	"github.com/MikeSquared-Agency/Elicit/internal/dominance"
	"github.com/MikeSquared-Agency/Elicit/internal/feasibility"
	"github.com/MikeSquared-Agency/Elicit/internal/oracle"
	"github.com/MikeSquared-Agency/Elicit/internal/scoring"
)

// CompareOptions configures Compare.
type CompareOptions struct {
	Search      Options
	Classifier  dominance.Options
	Feasibility feasibility.Oracle
}

// Comparison holds the results of the LP and exhaustive strategies over the
// same rows.
type Comparison struct {
	LP         Result `json:"lp"`
	Exhaustive Result `json:"exhaustive"`
}

// QueriesSaved is the number of queries the LP strategy avoided.
func (c Comparison) QueriesSaved() int {
	return c.Exhaustive.QueryCount - c.LP.QueryCount
}

// Compare runs both strategies, each against a fresh oracle from newOracle.
func Compare(ctx context.Context, rows []scoring.Vector, newOracle func() (oracle.Oracle, error), opts CompareOptions) (Comparison, error) {
	var cmp Comparison
	for _, criterion := range []dominance.Criterion{dominance.CriterionLP, dominance.CriterionExhaustive} {
		classifier, err := dominance.New(criterion, opts.Feasibility, opts.Classifier)
		if err != nil {
			return Comparison{}, fmt.Errorf("%w: %v", ErrConfiguration, err)
		}
		o, err := newOracle()
		if err != nil {
			return Comparison{}, fmt.Errorf("%w: build oracle: %v", ErrConfiguration, err)
		}
		ctrl, err := New(rows, classifier, o, opts.Search)
		if err != nil {
			return Comparison{}, err
		}
		res, err := ctrl.Run(ctx)
		if err != nil {
			return Comparison{}, fmt.Errorf("%s run: %w", criterion, err)
		}
		if criterion == dominance.CriterionLP {
			cmp.LP = res
		} else {
			cmp.Exhaustive = res
		}
	}
	return cmp, nil
}
