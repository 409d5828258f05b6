package main

import (
	"github.com/spf13/cobra"
)

func newCompareCommand(a *app) *cobra.Command {
	f := &searchFlags{}
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare LP pruning against asking about every tuple",
		Long: `Run the LP and exhaustive strategies over the same dataset, each against a
fresh simulated oracle with the same utility, and report how many queries
the LP strategy saved.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := f.apply(cmd, a); err != nil {
				return err
			}
			r, err := a.newRunner(nil, nil, false)
			if err != nil {
				return err
			}
			run := a.newRun("cli")
			run.Dataset = f.dataset

			cmp, err := r.Compare(cmd.Context(), run)
			if err != nil {
				a.logger.Error("compare failed", "error", err)
				return err
			}
			a.logger.Info("compare finished",
				"lp_queries", cmp.LP.QueryCount,
				"exhaustive_queries", cmp.Exhaustive.QueryCount,
				"queries_saved", cmp.QueriesSaved(),
			)
			return writeCompareReport(cmd.OutOrStdout(), f.format, cmp)
		},
	}
	addSearchFlags(cmd, f)
	return cmd
}
