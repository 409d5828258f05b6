package main

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/Elicit/internal/dataset"
	"github.com/MikeSquared-Agency/Elicit/internal/oracle"
	"github.com/MikeSquared-Agency/Elicit/internal/runner"
	"github.com/MikeSquared-Agency/Elicit/internal/store"
)

func newOracleCommand(a *app) *cobra.Command {
	var (
		runID       string
		interactive bool
		f           = &searchFlags{}
	)
	cmd := &cobra.Command{
		Use:   "oracle",
		Short: "Answer a remote search's preference queries",
		Long: `Listen on the event bus for the queries of one run and answer them with a
simulated oracle, or with the person at this terminal when --interactive is
set. Pair it with "elicit search --oracle remote --run-id <id>".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := f.apply(cmd, a); err != nil {
				return err
			}
			if _, err := uuid.Parse(runID); err != nil {
				return fmt.Errorf("invalid run id: %w", err)
			}
			ctx := cmd.Context()

			h, err := a.connectHermes(ctx)
			if err != nil {
				return err
			}
			if h == nil {
				return errors.New("hermes.url is required to answer remote queries")
			}
			defer h.Close()

			run := a.newRun("oracle")
			run.Dataset = f.dataset
			ds, err := a.datasetLoader(false)(ctx, run)
			if err != nil {
				return err
			}

			local, err := a.localOracle(cmd, interactive, run, ds)
			if err != nil {
				return err
			}
			responder := oracle.NewResponder(local, a.logger)
			if err := responder.Listen(ctx, h, runID); err != nil {
				return fmt.Errorf("listen for queries: %w", err)
			}
			a.logger.Info("oracle listening", "run_id", runID, "interactive", interactive)

			<-ctx.Done()
			return nil
		},
	}
	addSearchFlags(cmd, f)
	cmd.Flags().StringVar(&runID, "run-id", "", "Run whose queries to answer")
	cmd.Flags().BoolVar(&interactive, "interactive", false, "Ask the person at this terminal")
	_ = cmd.MarkFlagRequired("run-id")
	return cmd
}

// localOracle builds the oracle that answers forwarded queries. The dataset
// only fixes the dimension and column labels.
func (a *app) localOracle(cmd *cobra.Command, interactive bool, run *store.Run, ds *dataset.Dataset) (oracle.Oracle, error) {
	if interactive {
		return oracle.NewInteractive(cmd.InOrStdin(), cmd.ErrOrStderr(), ds.Columns), nil
	}
	o, err := runner.SimulatedFactory(cmd.Context(), run, ds)
	if err != nil {
		return nil, err
	}
	if s, ok := o.(*oracle.Simulated); ok {
		a.logger.Info("simulated utility", "weights", []float64(s.Utility()))
	}
	return o, nil
}
