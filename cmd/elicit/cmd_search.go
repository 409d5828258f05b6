package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/Elicit/internal/hermes"
	"github.com/MikeSquared-Agency/Elicit/internal/store"
)

// searchFlags override the configuration for a single invocation.
type searchFlags struct {
	dataset   string
	criterion string
	eps       float64
	negative  []int
	utility   []float64
	seed      int64
	cutoff    int
	oracle    string
	format    string
	runID     string
}

func addSearchFlags(cmd *cobra.Command, f *searchFlags) {
	cmd.Flags().StringVar(&f.dataset, "dataset", "", "CSV path, or table name for database drivers")
	cmd.Flags().Float64Var(&f.eps, "eps", 0, "Skip threshold")
	cmd.Flags().IntSliceVar(&f.negative, "negative", nil, "Indices of attributes where smaller is better")
	cmd.Flags().Float64SliceVar(&f.utility, "utility", nil, "Simulated oracle weights (random when empty)")
	cmd.Flags().Int64Var(&f.seed, "seed", 0, "Seed for random simulated weights")
	cmd.Flags().IntVar(&f.cutoff, "cutoff", 0, "Only consider the first N rows (0 for all)")
	cmd.Flags().StringVarP(&f.format, "format", "f", "table", "Output format: table or json")
}

// apply copies every flag the user set onto the configuration.
func (f *searchFlags) apply(cmd *cobra.Command, a *app) error {
	if f.format != "table" && f.format != "json" {
		return fmt.Errorf("unsupported format %q: must be table or json", f.format)
	}
	flags := cmd.Flags()
	if flags.Changed("criterion") {
		a.cfg.Search.Criterion = f.criterion
	}
	if flags.Changed("eps") {
		a.cfg.Search.Eps = f.eps
	}
	if flags.Changed("negative") {
		a.cfg.Search.NegativeAttributes = f.negative
	}
	if flags.Changed("utility") {
		a.cfg.Oracle.Utility = f.utility
	}
	if flags.Changed("seed") {
		a.cfg.Oracle.Seed = f.seed
	}
	if flags.Changed("cutoff") {
		a.cfg.Search.Cutoff = f.cutoff
	}
	if flags.Changed("oracle") {
		a.cfg.Oracle.Kind = f.oracle
	}
	return a.validate()
}

func newSearchCommand(a *app) *cobra.Command {
	f := &searchFlags{}
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Find the oracle's favourite tuple",
		Long: `Scan the dataset once, asking the configured oracle only about tuples
whose outcome earlier answers do not already settle. The run is recorded in
the configured store.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := f.apply(cmd, a); err != nil {
				return err
			}
			return a.search(cmd, f)
		},
	}
	addSearchFlags(cmd, f)
	cmd.Flags().StringVar(&f.criterion, "criterion", "LP", "Dominance criterion: LP or exhaustive")
	cmd.Flags().StringVar(&f.oracle, "oracle", "simulated", "Oracle: simulated, interactive or remote")
	cmd.Flags().StringVar(&f.runID, "run-id", "", "Run id, used as the remote oracle subject (random when empty)")
	return cmd
}

func (a *app) search(cmd *cobra.Command, f *searchFlags) error {
	ctx := cmd.Context()

	var h hermes.Client
	if a.cfg.Oracle.Kind == "remote" {
		hc, err := a.connectHermes(ctx)
		if err != nil {
			return err
		}
		defer hc.Close()
		h = hc
	}
	factory, err := a.oracleFactory(cmd.InOrStdin(), cmd.ErrOrStderr(), h)
	if err != nil {
		return err
	}
	r, err := a.newRunner(nil, factory, false)
	if err != nil {
		return err
	}

	s, err := a.openStore(ctx)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer s.Close()

	run := a.newRun("cli")
	run.Dataset = f.dataset
	if f.runID != "" {
		id, err := uuid.Parse(f.runID)
		if err != nil {
			return fmt.Errorf("invalid run id: %w", err)
		}
		run.ID = id
	}
	if err := s.CreateRun(ctx, run); err != nil {
		return fmt.Errorf("create run: %w", err)
	}

	start := time.Now()
	run.Status = store.StatusRunning
	run.StartedAt = &start
	a.saveRun(ctx, s, run)

	prepared, err := r.Prepare(ctx, run)
	if err != nil {
		return a.failRun(ctx, s, run, err)
	}
	if h != nil {
		a.logger.Info("waiting for remote oracle", "subject", hermes.SubjectOracleQuery(run.ID.String()))
	}
	a.logger.Info("search started",
		"run_id", run.ID,
		"dataset", prepared.Dataset.Name,
		"rows", len(prepared.Dataset.Rows),
		"criterion", run.Criterion,
	)

	result, err := prepared.Execute(ctx)
	if err != nil {
		return a.failRun(ctx, s, run, err)
	}

	now := time.Now()
	run.Status = store.StatusCompleted
	run.CompletedAt = &now
	run.Result = result
	a.saveRun(ctx, s, run)

	return writeSearchReport(cmd.OutOrStdout(), f.format, run)
}

// failRun records err on the run and returns it. Nothing is printed to the
// result output.
func (a *app) failRun(ctx context.Context, s store.Store, run *store.Run, err error) error {
	now := time.Now()
	run.Status = store.StatusFailed
	run.CompletedAt = &now
	run.Error = err.Error()
	a.saveRun(ctx, s, run)
	a.logger.Error("search failed", "run_id", run.ID, "error", err)
	return err
}

func (a *app) saveRun(ctx context.Context, s store.Store, run *store.Run) {
	if err := s.UpdateRun(ctx, run); err != nil {
		a.logger.Warn("failed to record run", "run_id", run.ID, "error", err)
	}
}
