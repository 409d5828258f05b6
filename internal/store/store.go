package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrRunNotFound is returned by UpdateRun when no run has the given ID.
var ErrRunNotFound = errors.New("run not found")

type RunStatus string

const (
	StatusPending   RunStatus = "pending"
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
)

// Run is one search over a dataset, queued through the API or recorded by the
// CLI.
type Run struct {
	ID     uuid.UUID `json:"run_id"`
	Status RunStatus `json:"status"`

	// Parameters
	Dataset            string    `json:"dataset,omitempty"`
	Criterion          string    `json:"criterion"`
	Eps                float64   `json:"eps"`
	NegativeAttributes []int     `json:"negative_attributes,omitempty"`
	Utility            []float64 `json:"utility,omitempty"`
	Seed               int64     `json:"seed,omitempty"`
	Cutoff             int       `json:"cutoff"`
	Source             string    `json:"source"`

	// Timestamps
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Outcome. Result is set only for completed runs.
	Result *RunResult `json:"result,omitempty"`
	Error  string     `json:"error,omitempty"`
}

// RunResult is what a completed search reports.
type RunResult struct {
	BestIndex       int            `json:"best_index"`
	BestVector      []float64      `json:"best_vector"`
	Columns         []string       `json:"columns,omitempty"`
	QueryCount      int            `json:"query_count"`
	ConstraintCount int            `json:"constraint_count"`
	Decisions       map[string]int `json:"decisions,omitempty"`
	Rows            int            `json:"rows"`
	DurationMs      int64          `json:"duration_ms"`
	// FeasibilityChecks counts the LP solves the classifier issued.
	FeasibilityChecks int64 `json:"feasibility_checks"`
	// Nil when the dataset is too large for the quadratic frontier scan.
	Frontier *Frontier `json:"frontier,omitempty"`

	// Set when the oracle's true utility is known.
	Utility *float64 `json:"utility,omitempty"`
	Regret  *float64 `json:"regret,omitempty"`
}

// Frontier describes the rows no other row strictly dominates.
type Frontier struct {
	Size         int  `json:"size"`
	ContainsBest bool `json:"contains_best"`
}

type RunFilter struct {
	Status *RunStatus
	Source string
	Limit  int
	Offset int
}

type RunStats struct {
	TotalPending   int     `json:"total_pending"`
	TotalRunning   int     `json:"total_running"`
	TotalCompleted int     `json:"total_completed"`
	TotalFailed    int     `json:"total_failed"`
	TotalQueries   int     `json:"total_queries"`
	AvgDurationMs  float64 `json:"avg_duration_ms"`
}

type Store interface {
	// CreateRun assigns an ID when run.ID is nil and stamps the timestamps.
	CreateRun(ctx context.Context, run *Run) error
	// GetRun returns nil, nil when no run has the ID.
	GetRun(ctx context.Context, id uuid.UUID) (*Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]*Run, error)
	UpdateRun(ctx context.Context, run *Run) error

	// GetPendingRuns returns pending runs, oldest first.
	GetPendingRuns(ctx context.Context) ([]*Run, error)
	GetStats(ctx context.Context) (*RunStats, error)

	Close() error
}

// Options selects a backend.
type Options struct {
	Driver string // memory, bolt or postgres
	Path   string
	URL    string
}

// Open returns the store for opts.Driver.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch strings.ToLower(opts.Driver) {
	case "", "memory":
		return NewMemoryStore(), nil
	case "bolt":
		return NewBoltStore(opts.Path)
	case "postgres":
		return NewPostgresStore(ctx, opts.URL)
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}

const defaultListLimit = 100

func (r *Run) clone() *Run {
	c := *r
	c.NegativeAttributes = append([]int(nil), r.NegativeAttributes...)
	c.Utility = append([]float64(nil), r.Utility...)
	if r.StartedAt != nil {
		t := *r.StartedAt
		c.StartedAt = &t
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		c.CompletedAt = &t
	}
	if r.Result != nil {
		res := *r.Result
		res.BestVector = append([]float64(nil), r.Result.BestVector...)
		res.Columns = append([]string(nil), r.Result.Columns...)
		if r.Result.Decisions != nil {
			res.Decisions = make(map[string]int, len(r.Result.Decisions))
			for k, v := range r.Result.Decisions {
				res.Decisions[k] = v
			}
		}
		c.Result = &res
	}
	return &c
}

// prepareNew fills the fields CreateRun owns.
func prepareNew(run *Run, now time.Time) {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.Status == "" {
		run.Status = StatusPending
	}
	run.CreatedAt = now
	run.UpdatedAt = now
}

// selectRuns applies filter to runs, newest first. Used by the embedded
// backends; Postgres does the same in SQL.
func selectRuns(runs []*Run, filter RunFilter) []*Run {
	var out []*Run
	for _, r := range runs {
		if filter.Status != nil && r.Status != *filter.Status {
			continue
		}
		if filter.Source != "" && r.Source != filter.Source {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil
		}
		out = out[filter.Offset:]
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func pendingRuns(runs []*Run) []*Run {
	var out []*Run
	for _, r := range runs {
		if r.Status == StatusPending {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func computeStats(runs []*Run) *RunStats {
	stats := &RunStats{}
	var totalMs int64
	var timed int
	for _, r := range runs {
		switch r.Status {
		case StatusPending:
			stats.TotalPending++
		case StatusRunning:
			stats.TotalRunning++
		case StatusCompleted:
			stats.TotalCompleted++
		case StatusFailed:
			stats.TotalFailed++
		}
		if r.Status == StatusCompleted && r.Result != nil {
			stats.TotalQueries += r.Result.QueryCount
			totalMs += r.Result.DurationMs
			timed++
		}
	}
	if timed > 0 {
		stats.AvgDurationMs = float64(totalMs) / float64(timed)
	}
	return stats
}
