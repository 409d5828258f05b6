package feasibility

import (
	"sync/atomic"
	"time"

	"github.com/MikeSquared-Agency/Elicit/internal/region"
	"github.com/MikeSquared-Agency/Elicit/internal/scoring"
)

// Recorder receives one observation per feasibility check.
type Recorder interface {
	ObserveFeasibility(feasible bool, elapsed time.Duration, err error)
}

// Instrumented wraps an Oracle, counting checks and reporting each one to an
// optional Recorder. It is safe for concurrent use when the inner oracle is.
type Instrumented struct {
	inner    Oracle
	recorder Recorder
	checks   atomic.Int64
}

// NewInstrumented wraps inner. recorder may be nil.
func NewInstrumented(inner Oracle, recorder Recorder) *Instrumented {
	return &Instrumented{inner: inner, recorder: recorder}
}

// Feasible delegates to the wrapped oracle.
func (o *Instrumented) Feasible(dimension int, constraints []region.Constraint, negative scoring.NegativeSet) (bool, error) {
	start := time.Now()
	ok, err := o.inner.Feasible(dimension, constraints, negative)
	o.checks.Add(1)
	if o.recorder != nil {
		o.recorder.ObserveFeasibility(ok, time.Since(start), err)
	}
	return ok, err
}

// Checks returns the number of feasibility checks performed so far. A nil
// Instrumented reports zero.
func (o *Instrumented) Checks() int64 {
	if o == nil {
		return 0
	}
	return o.checks.Load()
}
