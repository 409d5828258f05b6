// Package runner turns a run's parameters into a finished search: it loads
// the dataset, builds the oracle and classifier, runs the controller and
// scores the outcome against the true utility when one is known.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/MikeSquared-Agency/Elicit/internal/dataset"
	"github.com/MikeSquared-Agency/Elicit/internal/dominance"
	"github.com/MikeSquared-Agency/Elicit/internal/feasibility"
	"github.com/MikeSquared-Agency/Elicit/internal/oracle"
	"github.com/MikeSquared-Agency/Elicit/internal/scoring"
	"github.com/MikeSquared-Agency/Elicit/internal/search"
	"github.com/MikeSquared-Agency/Elicit/internal/store"
)

// Loader reads the dataset a run scans.
type Loader func(ctx context.Context, run *store.Run) (*dataset.Dataset, error)

// OracleFactory builds the preference oracle for a run.
type OracleFactory func(ctx context.Context, run *store.Run, ds *dataset.Dataset) (oracle.Oracle, error)

type Config struct {
	Load        Loader
	Feasibility feasibility.Oracle
	FastPath    bool
	Parallel    bool
	// NewOracle defaults to SimulatedFactory.
	NewOracle OracleFactory
	Logger    *slog.Logger
}

type Runner struct {
	cfg    Config
	logger *slog.Logger
}

func New(cfg Config) (*Runner, error) {
	if cfg.Load == nil {
		return nil, errors.New("runner needs a dataset loader")
	}
	if cfg.NewOracle == nil {
		cfg.NewOracle = SimulatedFactory
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{cfg: cfg, logger: logger}, nil
}

// Prepared is a run whose configuration has been fully checked. No oracle
// query has been issued yet.
type Prepared struct {
	Run     *store.Run
	Dataset *dataset.Dataset
	// Truth is the oracle's utility when it is known, nil otherwise.
	Truth scoring.Weights

	negative   scoring.NegativeSet
	checks     *feasibility.Instrumented
	controller *search.Controller
}

// Prepare loads the dataset and builds every collaborator. All configuration
// errors surface here.
func (r *Runner) Prepare(ctx context.Context, run *store.Run, observers ...search.Observer) (*Prepared, error) {
	ds, negative, err := r.load(ctx, run)
	if err != nil {
		return nil, err
	}
	criterion, err := dominance.ParseCriterion(run.Criterion)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", search.ErrConfiguration, err)
	}
	checker, checks := r.countedFeasibility()
	classifier, err := dominance.New(criterion, checker, r.classifierOptions(run, ds, negative))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", search.ErrConfiguration, err)
	}
	o, err := r.cfg.NewOracle(ctx, run, ds)
	if err != nil {
		return nil, fmt.Errorf("%w: build oracle: %v", search.ErrConfiguration, err)
	}

	ctrl, err := search.New(ds.Rows, classifier, o, search.Options{
		Dimension: ds.Dimension(),
		Negative:  negative,
		Logger:    r.logger.With("run_id", run.ID),
		Observers: observers,
	})
	if err != nil {
		return nil, err
	}
	return &Prepared{
		Run:        run,
		Dataset:    ds,
		Truth:      truthOf(o),
		negative:   negative,
		checks:     checks,
		controller: ctrl,
	}, nil
}

// Execute runs the search. On error no result is returned.
func (p *Prepared) Execute(ctx context.Context) (*store.RunResult, error) {
	res, err := p.controller.Run(ctx)
	if err != nil {
		return nil, err
	}
	out, err := toRunResult(p.Dataset, p.negative, p.Truth, res)
	if err != nil {
		return nil, err
	}
	out.FeasibilityChecks = p.checks.Checks()
	return out, nil
}

// Comparison holds both strategies' results over the same rows.
type Comparison struct {
	Dataset    *dataset.Dataset `json:"-"`
	LP         *store.RunResult `json:"lp"`
	Exhaustive *store.RunResult `json:"exhaustive"`
}

// QueriesSaved is the number of queries the LP strategy avoided.
func (c *Comparison) QueriesSaved() int {
	return c.Exhaustive.QueryCount - c.LP.QueryCount
}

// Compare runs the LP and exhaustive strategies for run, each against a fresh
// oracle. run.Criterion is ignored.
func (r *Runner) Compare(ctx context.Context, run *store.Run) (*Comparison, error) {
	ds, negative, err := r.load(ctx, run)
	if err != nil {
		return nil, err
	}

	var truth scoring.Weights
	newOracle := func() (oracle.Oracle, error) {
		o, err := r.cfg.NewOracle(ctx, run, ds)
		if err != nil {
			return nil, err
		}
		truth = truthOf(o)
		return o, nil
	}
	// Only the LP strategy consults the feasibility oracle.
	checker, checks := r.countedFeasibility()
	cmp, err := search.Compare(ctx, ds.Rows, newOracle, search.CompareOptions{
		Search: search.Options{
			Dimension: ds.Dimension(),
			Negative:  negative,
			Logger:    r.logger.With("run_id", run.ID),
		},
		Classifier:  r.classifierOptions(run, ds, negative),
		Feasibility: checker,
	})
	if err != nil {
		return nil, err
	}

	lp, err := toRunResult(ds, negative, truth, cmp.LP)
	if err != nil {
		return nil, err
	}
	lp.FeasibilityChecks = checks.Checks()
	ex, err := toRunResult(ds, negative, truth, cmp.Exhaustive)
	if err != nil {
		return nil, err
	}
	return &Comparison{Dataset: ds, LP: lp, Exhaustive: ex}, nil
}

func (r *Runner) load(ctx context.Context, run *store.Run) (*dataset.Dataset, scoring.NegativeSet, error) {
	ds, err := r.cfg.Load(ctx, run)
	if err != nil {
		if errors.Is(err, dataset.ErrInvalidDataset) {
			return nil, nil, fmt.Errorf("%w: %v", search.ErrConfiguration, err)
		}
		return nil, nil, fmt.Errorf("load dataset: %w", err)
	}
	ds = ds.Head(run.Cutoff)
	if err := ds.Validate(); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", search.ErrConfiguration, err)
	}
	negative, err := scoring.NewNegativeSet(run.NegativeAttributes, ds.Dimension())
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", search.ErrConfiguration, err)
	}
	return ds, negative, nil
}

// countedFeasibility wraps the configured oracle so one run's checks can be
// counted. Both results are nil when no oracle is configured.
func (r *Runner) countedFeasibility() (feasibility.Oracle, *feasibility.Instrumented) {
	if r.cfg.Feasibility == nil {
		return nil, nil
	}
	inst := feasibility.NewInstrumented(r.cfg.Feasibility, nil)
	return inst, inst
}

func (r *Runner) classifierOptions(run *store.Run, ds *dataset.Dataset, negative scoring.NegativeSet) dominance.Options {
	return dominance.Options{
		Dimension: ds.Dimension(),
		Negative:  negative,
		Eps:       run.Eps,
		Parallel:  r.cfg.Parallel,
		FastPath:  r.cfg.FastPath,
		Logger:    r.logger,
	}
}

// SimulatedFactory builds a simulated oracle from run.Utility. An empty
// utility is drawn from run.Seed, with the weights of negative attributes
// negated so the hidden utility lies inside the search region.
func SimulatedFactory(_ context.Context, run *store.Run, ds *dataset.Dataset) (oracle.Oracle, error) {
	dim := ds.Dimension()
	weights := scoring.Weights(run.Utility)
	if len(weights) == 0 {
		weights = scoring.RandomWeights(dim, rand.New(rand.NewSource(run.Seed)))
		for _, i := range run.NegativeAttributes {
			if i >= 0 && i < dim {
				weights[i] = -weights[i]
			}
		}
	}
	return oracle.NewSimulated(weights, dim)
}

func truthOf(o oracle.Oracle) scoring.Weights {
	if s, ok := o.(*oracle.Simulated); ok {
		return s.Utility()
	}
	return nil
}

// frontierLimit bounds the rows scanned for the Pareto frontier summary.
const frontierLimit = 5000

func toRunResult(ds *dataset.Dataset, negative scoring.NegativeSet, truth scoring.Weights, res search.Result) (*store.RunResult, error) {
	out := &store.RunResult{
		BestIndex:       res.BestIndex,
		BestVector:      res.BestVector.Clone(),
		Columns:         ds.Columns,
		QueryCount:      res.QueryCount,
		ConstraintCount: res.ConstraintCount,
		Decisions:       res.Decisions,
		Rows:            res.Rows,
		DurationMs:      res.Duration.Milliseconds(),
	}
	if len(ds.Rows) <= frontierLimit {
		out.Frontier = frontierOf(ds.Rows, negative, res.BestIndex)
	}
	if truth != nil {
		scorer := scoring.NewScorer(truth)
		utility := scorer.Utility(ds.Rows[res.BestIndex])
		regret, err := scorer.RegretRatio(ds.Rows, res.BestIndex)
		if err != nil {
			return nil, fmt.Errorf("score result: %w", err)
		}
		out.Utility = &utility
		out.Regret = &regret
	}
	return out, nil
}

func frontierOf(rows []scoring.Vector, negative scoring.NegativeSet, best int) *store.Frontier {
	f := &store.Frontier{}
	for _, i := range scoring.ComputeFrontier(rows, negative) {
		f.Size++
		if i == best {
			f.ContainsBest = true
		}
	}
	return f
}
