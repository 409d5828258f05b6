package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/Elicit/internal/dominance"
	"github.com/MikeSquared-Agency/Elicit/internal/feasibility"
	"github.com/MikeSquared-Agency/Elicit/internal/region"
	"github.com/MikeSquared-Agency/Elicit/internal/scoring"
	"github.com/MikeSquared-Agency/Elicit/internal/search"
)

var (
	_ feasibility.Recorder = (*Metrics)(nil)
	_ search.Observer      = (*Metrics)(nil)
)

// sample returns the counter value, or the histogram sample count, of the
// series name{labels}.
func sample(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			match := true
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					match = false
				}
			}
			if !match {
				continue
			}
			if h := m.GetHistogram(); h != nil {
				return float64(h.GetSampleCount())
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func TestOnStepCountsDecisionsAndQueries(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.OnStep(search.Step{Index: 1, Decision: dominance.Ambiguous, Queried: true})
	m.OnStep(search.Step{Index: 2, Decision: dominance.Skip})
	m.OnStep(search.Step{Index: 3, Decision: dominance.Skip})
	m.OnStep(search.Step{Index: 4, Decision: dominance.Dominates})

	assert.Equal(t, 1.0, sample(t, reg, "elicit_oracle_queries_total", nil))
	assert.Equal(t, 2.0, sample(t, reg, "elicit_decisions_total", map[string]string{"decision": "skip"}))
	assert.Equal(t, 1.0, sample(t, reg, "elicit_decisions_total", map[string]string{"decision": "dominates"}))
	assert.Equal(t, 1.0, sample(t, reg, "elicit_decisions_total", map[string]string{"decision": "ambiguous"}))
}

func TestObserveFeasibility(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveFeasibility(true, time.Millisecond, nil)
	m.ObserveFeasibility(false, time.Millisecond, nil)
	m.ObserveFeasibility(false, time.Millisecond, nil)
	m.ObserveFeasibility(false, time.Millisecond, errors.New("solver down"))

	assert.Equal(t, 1.0, sample(t, reg, "elicit_feasibility_checks_total", map[string]string{"result": "feasible"}))
	assert.Equal(t, 2.0, sample(t, reg, "elicit_feasibility_checks_total", map[string]string{"result": "infeasible"}))
	assert.Equal(t, 1.0, sample(t, reg, "elicit_feasibility_checks_total", map[string]string{"result": "error"}))
	assert.Equal(t, 4.0, sample(t, reg, "elicit_feasibility_check_duration_seconds", nil))
}

func TestObserveRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveRun("completed", 2*time.Second)
	m.ObserveRun("failed", time.Second)
	m.ObserveRun("completed", time.Second)

	assert.Equal(t, 2.0, sample(t, reg, "elicit_runs_total", map[string]string{"status": "completed"}))
	assert.Equal(t, 1.0, sample(t, reg, "elicit_runs_total", map[string]string{"status": "failed"}))
	assert.Equal(t, 2.0, sample(t, reg, "elicit_run_duration_seconds", map[string]string{"status": "completed"}))
}

func alwaysFeasible(int, []region.Constraint, scoring.NegativeSet) (bool, error) {
	return true, nil
}

func TestInstrumentedFeedsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	o := feasibility.NewInstrumented(feasibility.Func(alwaysFeasible), m)
	for i := 0; i < 3; i++ {
		_, err := o.Feasible(2, nil, nil)
		require.NoError(t, err)
	}
	assert.Equal(t, 3.0, sample(t, reg, "elicit_feasibility_checks_total", map[string]string{"result": "feasible"}))
}

func TestNewTwiceOnOneRegistryPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
