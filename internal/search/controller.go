// Package search runs the query-minimizing scan for the oracle's favourite
// row. Rows are processed strictly in order; every answered query narrows the
// feasible weight region that later classifications read.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/MikeSquared-Agency/Elicit/internal/dominance"
	"github.com/MikeSquared-Agency/Elicit/internal/oracle"
	"github.com/MikeSquared-Agency/Elicit/internal/region"
	"github.com/MikeSquared-Agency/Elicit/internal/scoring"
)

var (
	// ErrConfiguration marks problems detected before the first query.
	ErrConfiguration = errors.New("search configuration error")
	// ErrInvalidInput is a configuration error caused by the rows themselves.
	ErrInvalidInput = fmt.Errorf("%w: invalid input", ErrConfiguration)
)

// Options configures a Controller.
type Options struct {
	Dimension int
	Negative  scoring.NegativeSet
	Logger    *slog.Logger
	Observers []Observer
	Tracer    trace.Tracer
}

// Step describes one processed candidate.
type Step struct {
	Index      int
	Decision   dominance.Decision
	Queried    bool
	Preference oracle.Preference
	BestIndex  int
	// Constraints is the number of learned constraints after the step.
	Constraints int
	// Added is the constraint appended by this step, if any.
	Added *region.Constraint
}

// Observer receives every step of a run, in order, on the run's goroutine.
type Observer interface {
	OnStep(Step)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Step)

func (f ObserverFunc) OnStep(s Step) { f(s) }

// Result is the outcome of a completed run.
type Result struct {
	BestIndex  int            `json:"best_index"`
	BestVector scoring.Vector `json:"best_vector"`
	QueryCount int            `json:"query_count"`
	// ConstraintCount counts learned constraints, excluding the scale constraint.
	ConstraintCount int            `json:"constraint_count"`
	Decisions       map[string]int `json:"decisions"`
	Rows            int            `json:"rows"`
	Duration        time.Duration  `json:"duration"`
}

// Controller owns one search over a fixed row sequence.
type Controller struct {
	rows       []scoring.Vector
	classifier dominance.Classifier
	oracle     oracle.Oracle
	opts       Options
	logger     *slog.Logger
	tracer     trace.Tracer
}

// New validates the rows and builds a controller. Every error it returns
// satisfies errors.Is(err, ErrConfiguration).
func New(rows []scoring.Vector, classifier dominance.Classifier, o oracle.Oracle, opts Options) (*Controller, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no rows", ErrInvalidInput)
	}
	if opts.Dimension <= 0 {
		opts.Dimension = len(rows[0])
	}
	for i, row := range rows {
		if len(row) != opts.Dimension {
			return nil, fmt.Errorf("%w: row %d has %d attributes, want %d", ErrInvalidInput, i, len(row), opts.Dimension)
		}
	}
	if classifier == nil {
		return nil, fmt.Errorf("%w: nil classifier", ErrConfiguration)
	}
	if o == nil {
		return nil, fmt.Errorf("%w: nil oracle", ErrConfiguration)
	}
	if _, err := region.New(opts.Dimension, opts.Negative); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer("elicit/search")
	}
	return &Controller{
		rows:       rows,
		classifier: classifier,
		oracle:     o,
		opts:       opts,
		logger:     logger,
		tracer:     tracer,
	}, nil
}

// Run scans every row once. Each call starts from a fresh region, so repeated
// runs over a deterministic oracle give identical results. Any classifier or
// oracle error aborts the run and no partial result is returned.
func (c *Controller) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "search.Run", trace.WithAttributes(
		attribute.Int("rows", len(c.rows)),
		attribute.Int("dimension", c.opts.Dimension),
	))
	defer span.End()

	r, err := region.New(c.opts.Dimension, c.opts.Negative)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	st := newState(r, c.rows[0])
	counter := oracle.NewCounter(c.oracle, c.opts.Dimension)

	c.logger.Info("search started", "rows", len(c.rows), "dimension", c.opts.Dimension)

	for i := 1; i < len(c.rows); i++ {
		if err := ctx.Err(); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return Result{}, fmt.Errorf("search interrupted at row %d: %w", i, err)
		}
		step, err := c.step(ctx, st, counter, i)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			c.logger.Error("search aborted", "row", i, "error", err)
			return Result{}, fmt.Errorf("row %d: %w", i, err)
		}
		for _, o := range c.opts.Observers {
			o.OnStep(step)
		}
	}

	res := Result{
		BestIndex:       st.bestIndex,
		BestVector:      st.best.Clone(),
		QueryCount:      st.queries,
		ConstraintCount: st.learned(),
		Decisions:       st.histogram(),
		Rows:            len(c.rows),
		Duration:        time.Since(start),
	}
	span.SetAttributes(
		attribute.Int("best_index", res.BestIndex),
		attribute.Int("query_count", res.QueryCount),
	)
	span.SetStatus(codes.Ok, "search completed")
	c.logger.Info("search completed",
		"best_index", res.BestIndex,
		"queries", res.QueryCount,
		"constraints", res.ConstraintCount,
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

func (c *Controller) step(ctx context.Context, st *state, counter *oracle.Counter, i int) (Step, error) {
	candidate := c.rows[i]
	decision, err := c.classifier.Classify(candidate, st.best, st.region.Constraints())
	if err != nil {
		return Step{}, fmt.Errorf("classify: %w", err)
	}
	st.record(decision)
	step := Step{Index: i, Decision: decision}

	switch decision {
	case dominance.Skip:
	case dominance.Dominates:
		st.replaceBest(i, candidate)
	case dominance.Ambiguous:
		pref, err := c.query(ctx, counter, st.best, candidate, i)
		if err != nil {
			return Step{}, err
		}
		st.queries++
		step.Queried = true
		step.Preference = pref

		added := region.AtLeast(st.best.Sub(candidate), region.Delta)
		if pref == oracle.PrefersSecond {
			// Derived from the best before it is replaced.
			added = region.AtMost(st.best.Sub(candidate), region.Delta)
		}
		if err := st.region.Add(added); err != nil {
			return Step{}, err
		}
		if pref == oracle.PrefersSecond {
			st.replaceBest(i, candidate)
		}
		step.Added = &added
	default:
		return Step{}, fmt.Errorf("classifier returned unknown decision %d", int(decision))
	}

	c.logger.Debug("candidate processed",
		"row", i,
		"decision", decision.String(),
		"queried", step.Queried,
		"best_index", st.bestIndex,
	)
	step.BestIndex = st.bestIndex
	step.Constraints = st.learned()
	return step, nil
}

func (c *Controller) query(ctx context.Context, counter *oracle.Counter, best, candidate scoring.Vector, i int) (oracle.Preference, error) {
	ctx, span := c.tracer.Start(ctx, "search.Query", trace.WithAttributes(attribute.Int("row", i)))
	defer span.End()

	pref, err := counter.Query(ctx, best, candidate)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("query oracle: %w", err)
	}
	span.SetAttributes(attribute.String("preference", pref.String()))
	return pref, nil
}
