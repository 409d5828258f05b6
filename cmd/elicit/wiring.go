package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/MikeSquared-Agency/Elicit/internal/dataset"
	"github.com/MikeSquared-Agency/Elicit/internal/feasibility"
	"github.com/MikeSquared-Agency/Elicit/internal/hermes"
	"github.com/MikeSquared-Agency/Elicit/internal/oracle"
	"github.com/MikeSquared-Agency/Elicit/internal/runner"
	"github.com/MikeSquared-Agency/Elicit/internal/store"
)

// datasetLoader reads the configured dataset. A run that names its own
// dataset overrides the csv path, or the table for database drivers.
//
// confined is set when run parameters come from remote callers: the name must
// then be a relative path that stays inside dataset.dir.
func (a *app) datasetLoader(confined bool) runner.Loader {
	base := a.cfg.Dataset
	return func(ctx context.Context, run *store.Run) (*dataset.Dataset, error) {
		opts := dataset.Options{
			Driver:  base.Driver,
			Path:    base.Path,
			URL:     base.URL,
			Table:   base.Table,
			Columns: base.Columns,
			OrderBy: base.OrderBy,
			Name:    base.Name,
			Limit:   run.Cutoff,
		}
		if run.Dataset == "" {
			return dataset.Load(ctx, opts)
		}
		if confined && !dataset.ValidName(run.Dataset) {
			return nil, fmt.Errorf("%w: dataset %q is not a relative name", dataset.ErrInvalidDataset, run.Dataset)
		}
		switch strings.ToLower(base.Driver) {
		case "", "csv":
			if confined {
				if base.Dir == "" {
					return nil, fmt.Errorf("%w: dataset.dir is not configured, run requests cannot name a csv file", dataset.ErrInvalidDataset)
				}
				opts.Root = base.Dir
			}
			opts.Path = run.Dataset
		default:
			opts.Table = run.Dataset
		}
		return dataset.Load(ctx, opts)
	}
}

// feasibilityChecker builds the LP solver, reporting to rec when set.
func (a *app) feasibilityChecker(rec feasibility.Recorder) (feasibility.Oracle, error) {
	simplex, err := feasibility.NewSimplex(a.cfg.Solver.Tolerance, a.logger)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return simplex, nil
	}
	return feasibility.NewInstrumented(simplex, rec), nil
}

func (a *app) newRunner(rec feasibility.Recorder, factory runner.OracleFactory, confined bool) (*runner.Runner, error) {
	checker, err := a.feasibilityChecker(rec)
	if err != nil {
		return nil, err
	}
	return runner.New(runner.Config{
		Load:        a.datasetLoader(confined),
		Feasibility: checker,
		FastPath:    a.cfg.Search.FastPath,
		Parallel:    a.cfg.Search.ParallelChecks,
		NewOracle:   factory,
		Logger:      a.logger,
	})
}

// oracleFactory returns the factory for the configured oracle kind. h is only
// used by the remote oracle.
func (a *app) oracleFactory(in io.Reader, out io.Writer, h hermes.Client) (runner.OracleFactory, error) {
	switch a.cfg.Oracle.Kind {
	case "", "simulated":
		return runner.SimulatedFactory, nil
	case "interactive":
		return func(_ context.Context, _ *store.Run, ds *dataset.Dataset) (oracle.Oracle, error) {
			return oracle.NewInteractive(in, out, ds.Columns), nil
		}, nil
	case "remote":
		if h == nil {
			return nil, fmt.Errorf("remote oracle needs a hermes connection")
		}
		timeout := a.cfg.RemoteTimeout()
		return func(_ context.Context, run *store.Run, _ *dataset.Dataset) (oracle.Oracle, error) {
			return oracle.NewRemote(h, run.ID.String(), timeout), nil
		}, nil
	default:
		return nil, fmt.Errorf("unknown oracle kind %q", a.cfg.Oracle.Kind)
	}
}

func (a *app) openStore(ctx context.Context) (store.Store, error) {
	return store.Open(ctx, store.Options{
		Driver: a.cfg.Store.Driver,
		Path:   a.cfg.Store.Path,
		URL:    a.cfg.Store.URL,
	})
}

// connectHermes returns nil when no hermes url is configured.
func (a *app) connectHermes(ctx context.Context) (hermes.Client, error) {
	if a.cfg.Hermes.URL == "" {
		return nil, nil
	}
	hc, err := hermes.NewNATSClient(ctx, a.cfg.Hermes.URL, a.logger)
	if err != nil {
		return nil, fmt.Errorf("connect to hermes: %w", err)
	}
	a.logger.Info("connected to hermes")
	return hc, nil
}

// newRun builds a run from the configured search and oracle parameters.
func (a *app) newRun(source string) *store.Run {
	return &store.Run{
		Status:             store.StatusPending,
		Criterion:          a.cfg.Search.Criterion,
		Eps:                a.cfg.Search.Eps,
		NegativeAttributes: a.cfg.Search.NegativeAttributes,
		Utility:            a.cfg.Oracle.Utility,
		Seed:               a.cfg.Oracle.Seed,
		Cutoff:             a.cfg.Search.Cutoff,
		Source:             source,
	}
}
