package broker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MikeSquared-Agency/Elicit/internal/config"
	"github.com/MikeSquared-Agency/Elicit/internal/dataset"
	"github.com/MikeSquared-Agency/Elicit/internal/hermes"
	"github.com/MikeSquared-Agency/Elicit/internal/runner"
	"github.com/MikeSquared-Agency/Elicit/internal/search"
	"github.com/MikeSquared-Agency/Elicit/internal/store"
)

const statsInterval = 30 * time.Second

// RunRecorder is notified when a run finishes.
type RunRecorder interface {
	ObserveRun(status string, d time.Duration)
}

// Broker executes queued runs. Every tick it picks up pending runs and
// executes up to broker.max_concurrent_runs of them at a time.
type Broker struct {
	store     store.Store
	hermes    hermes.Client
	runner    *runner.Runner
	cfg       *config.Config
	logger    *slog.Logger
	observers []search.Observer
	recorder  RunRecorder

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// New creates a broker. h may be nil when the event bus is disabled.
func New(s store.Store, h hermes.Client, r *runner.Runner, cfg *config.Config, logger *slog.Logger) *Broker {
	return &Broker{
		store:  s,
		hermes: h,
		runner: r,
		cfg:    cfg,
		logger: logger,
		stopCh: make(chan struct{}),
	}
}

// WithObservers attaches search observers to every executed run.
func (b *Broker) WithObservers(observers ...search.Observer) *Broker {
	b.observers = append(b.observers, observers...)
	return b
}

// WithRecorder reports finished runs to rec.
func (b *Broker) WithRecorder(rec RunRecorder) *Broker {
	b.recorder = rec
	return b
}

func (b *Broker) Start(ctx context.Context) {
	b.wg.Add(2)
	go b.runLoop(ctx)
	go b.statsLoop(ctx)
}

func (b *Broker) Stop() {
	b.stopOnce.Do(func() { close(b.stopCh) })
	b.wg.Wait()
}

func (b *Broker) runLoop(ctx context.Context) {
	defer b.wg.Done()
	ticker := time.NewTicker(b.cfg.TickInterval())
	defer ticker.Stop()

	for {
		select {
		case <-b.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.processPendingRuns(ctx)
		}
	}
}

func (b *Broker) statsLoop(ctx context.Context) {
	defer b.wg.Done()
	if b.hermes == nil {
		return
	}
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.publishStats(ctx)
		}
	}
}

// processPendingRuns executes every pending run and returns once all of them
// have finished.
func (b *Broker) processPendingRuns(ctx context.Context) {
	runs, err := b.store.GetPendingRuns(ctx)
	if err != nil {
		b.logger.Error("failed to get pending runs", "error", err)
		return
	}
	if len(runs) == 0 {
		return
	}

	b.logger.Info("processing pending runs", "count", len(runs))
	var g errgroup.Group
	g.SetLimit(b.cfg.Broker.MaxConcurrentRuns)
	for _, run := range runs {
		g.Go(func() error {
			b.executeRun(ctx, run)
			return nil
		})
	}
	_ = g.Wait()
}

func (b *Broker) executeRun(ctx context.Context, run *store.Run) {
	start := time.Now()
	run.Status = store.StatusRunning
	run.StartedAt = &start
	if err := b.store.UpdateRun(ctx, run); err != nil {
		b.logger.Error("failed to mark run running", "run_id", run.ID, "error", err)
		return
	}

	observers := append([]search.Observer{b.queryPublisher(run)}, b.observers...)
	prepared, err := b.runner.Prepare(ctx, run, observers...)
	if err != nil {
		b.fail(ctx, run, start, err)
		return
	}
	b.publish(hermes.SubjectRunStarted(run.ID.String()), hermes.RunStartedEvent{
		RunID:     run.ID.String(),
		Rows:      len(prepared.Dataset.Rows),
		Dimension: prepared.Dataset.Dimension(),
		Criterion: run.Criterion,
	})

	result, err := prepared.Execute(ctx)
	if err != nil {
		b.fail(ctx, run, start, err)
		return
	}
	b.complete(ctx, run, start, result)
}

func (b *Broker) complete(ctx context.Context, run *store.Run, start time.Time, result *store.RunResult) {
	now := time.Now()
	run.Status = store.StatusCompleted
	run.CompletedAt = &now
	run.Result = result
	run.Error = ""
	if err := b.store.UpdateRun(ctx, run); err != nil {
		b.logger.Error("failed to store run result", "run_id", run.ID, "error", err)
	}
	b.observe(store.StatusCompleted, now.Sub(start))

	b.logger.Info("run completed",
		"run_id", run.ID,
		"best_index", result.BestIndex,
		"queries", result.QueryCount,
		"feasibility_checks", result.FeasibilityChecks,
		"duration_ms", result.DurationMs,
	)
	b.publish(hermes.SubjectRunCompleted(run.ID.String()), hermes.RunCompletedEvent{
		RunID:      run.ID.String(),
		BestIndex:  result.BestIndex,
		BestVector: result.BestVector,
		QueryCount: result.QueryCount,
		DurationMs: result.DurationMs,
	})
}

// fail records err on the run. No best index is stored for a failed run.
func (b *Broker) fail(ctx context.Context, run *store.Run, start time.Time, err error) {
	now := time.Now()
	run.Status = store.StatusFailed
	run.CompletedAt = &now
	run.Result = nil
	run.Error = err.Error()
	if uerr := b.store.UpdateRun(ctx, run); uerr != nil {
		b.logger.Error("failed to store run failure", "run_id", run.ID, "error", uerr)
	}
	b.observe(store.StatusFailed, now.Sub(start))

	b.logger.Warn("run failed", "run_id", run.ID, "error", err)
	b.publish(hermes.SubjectRunFailed(run.ID.String()), hermes.RunFailedEvent{
		RunID: run.ID.String(),
		Error: err.Error(),
	})
}

func (b *Broker) observe(status store.RunStatus, d time.Duration) {
	if b.recorder != nil {
		b.recorder.ObserveRun(string(status), d)
	}
}

// queryPublisher emits one event per answered query of run.
func (b *Broker) queryPublisher(run *store.Run) search.Observer {
	queries := 0
	return search.ObserverFunc(func(step search.Step) {
		if !step.Queried {
			return
		}
		queries++
		b.publish(hermes.SubjectRunQuery(run.ID.String()), hermes.RunQueryEvent{
			RunID:       run.ID.String(),
			Candidate:   step.Index,
			BestIndex:   step.BestIndex,
			QueryCount:  queries,
			Constraints: step.Constraints,
		})
	})
}

func (b *Broker) publishStats(ctx context.Context) {
	stats, err := b.store.GetStats(ctx)
	if err != nil {
		b.logger.Warn("failed to get run stats", "error", err)
		return
	}
	b.publish(hermes.SubjectStats, hermes.StatsEvent{
		Pending:   stats.TotalPending,
		Running:   stats.TotalRunning,
		Completed: stats.TotalCompleted,
		Failed:    stats.TotalFailed,
		AvgMs:     stats.AvgDurationMs,
		Timestamp: time.Now().UTC(),
	})
}

func (b *Broker) publish(subject string, data interface{}) {
	if b.hermes == nil {
		return
	}
	if err := b.hermes.Publish(subject, data); err != nil {
		b.logger.Warn("failed to publish event", "subject", subject, "error", err)
	}
}

// SetupSubscriptions accepts run requests from the event bus.
func (b *Broker) SetupSubscriptions() {
	if b.hermes == nil {
		return
	}

	_ = b.hermes.Subscribe(hermes.SubjectRunRequest, func(_ string, data []byte) {
		var req hermes.RunRequestEvent
		if err := json.Unmarshal(data, &req); err != nil {
			b.logger.Warn("invalid run request event", "error", err)
			return
		}
		if req.Dataset != "" && !dataset.ValidName(req.Dataset) {
			b.logger.Warn("run request names a dataset outside the data directory", "source", req.Source)
			return
		}
		run := b.runFromRequest(req)
		if err := b.store.CreateRun(context.Background(), run); err != nil {
			b.logger.Error("failed to create run from NATS request", "error", err)
			return
		}
		b.logger.Info("run created from NATS request", "run_id", run.ID, "criterion", run.Criterion)
		b.publish(hermes.SubjectRunCreated(run.ID.String()), run)
	})
}

func (b *Broker) runFromRequest(req hermes.RunRequestEvent) *store.Run {
	run := &store.Run{
		Status:             store.StatusPending,
		Dataset:            req.Dataset,
		Criterion:          req.Criterion,
		Eps:                req.Eps,
		NegativeAttributes: req.NegativeAttributes,
		Utility:            req.Utility,
		Seed:               req.Seed,
		Cutoff:             req.Cutoff,
		Source:             req.Source,
	}
	if run.Criterion == "" {
		run.Criterion = b.cfg.Search.Criterion
	}
	if run.Cutoff <= 0 {
		run.Cutoff = b.cfg.Search.Cutoff
	}
	if run.Source == "" {
		run.Source = "nats"
	}
	return run
}
