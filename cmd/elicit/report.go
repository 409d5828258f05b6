package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/MikeSquared-Agency/Elicit/internal/runner"
	"github.com/MikeSquared-Agency/Elicit/internal/store"
)

type searchReport struct {
	RunID     string           `json:"run_id"`
	Dataset   string           `json:"dataset,omitempty"`
	Criterion string           `json:"criterion"`
	Eps       float64          `json:"eps"`
	Result    *store.RunResult `json:"result"`
}

type compareReport struct {
	Dataset      string           `json:"dataset,omitempty"`
	Rows         int              `json:"rows"`
	LP           *store.RunResult `json:"lp"`
	Exhaustive   *store.RunResult `json:"exhaustive"`
	QueriesSaved int              `json:"queries_saved"`
}

func writeJSONReport(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeSearchReport(w io.Writer, format string, run *store.Run) error {
	if format == "json" {
		return writeJSONReport(w, searchReport{
			RunID:     run.ID.String(),
			Dataset:   run.Dataset,
			Criterion: run.Criterion,
			Eps:       run.Eps,
			Result:    run.Result,
		})
	}

	res := run.Result
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Run:\t%s\n", run.ID)
	fmt.Fprintf(tw, "Criterion:\t%s\n", run.Criterion)
	fmt.Fprintf(tw, "Rows:\t%d\n", res.Rows)
	fmt.Fprintf(tw, "Best index:\t%d\n", res.BestIndex)
	fmt.Fprintf(tw, "Best tuple:\t%s\n", formatTuple(res.Columns, res.BestVector))
	fmt.Fprintf(tw, "Queries:\t%d\n", res.QueryCount)
	fmt.Fprintf(tw, "Constraints:\t%d\n", res.ConstraintCount)
	fmt.Fprintf(tw, "Decisions:\t%s\n", formatDecisions(res.Decisions))
	fmt.Fprintf(tw, "Feasibility checks:\t%d\n", res.FeasibilityChecks)
	if res.Frontier != nil {
		fmt.Fprintf(tw, "Pareto frontier:\t%s\n", formatFrontier(res.Frontier))
	}
	if res.Utility != nil {
		fmt.Fprintf(tw, "Utility:\t%.6g\n", *res.Utility)
	}
	if res.Regret != nil {
		fmt.Fprintf(tw, "Regret ratio:\t%.6g\n", *res.Regret)
	}
	fmt.Fprintf(tw, "Duration:\t%dms\n", res.DurationMs)
	return tw.Flush()
}

func writeCompareReport(w io.Writer, format string, cmp *runner.Comparison) error {
	report := compareReport{
		Dataset:      cmp.Dataset.Name,
		Rows:         len(cmp.Dataset.Rows),
		LP:           cmp.LP,
		Exhaustive:   cmp.Exhaustive,
		QueriesSaved: cmp.QueriesSaved(),
	}
	if format == "json" {
		return writeJSONReport(w, report)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STRATEGY\tBEST\tQUERIES\tCONSTRAINTS\tLP CHECKS\tREGRET\tDURATION")
	for _, row := range []struct {
		name string
		res  *store.RunResult
	}{{"LP", cmp.LP}, {"exhaustive", cmp.Exhaustive}} {
		regret := "-"
		if row.res.Regret != nil {
			regret = strconv.FormatFloat(*row.res.Regret, 'g', 6, 64)
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%s\t%dms\n",
			row.name, row.res.BestIndex, row.res.QueryCount, row.res.ConstraintCount,
			row.res.FeasibilityChecks, regret, row.res.DurationMs)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\nQueries saved: %d of %d rows\n", report.QueriesSaved, report.Rows)
	return err
}

func formatFrontier(f *store.Frontier) string {
	if f.ContainsBest {
		return fmt.Sprintf("%d rows, best on frontier", f.Size)
	}
	return fmt.Sprintf("%d rows, best not on frontier", f.Size)
}

func formatTuple(columns []string, v []float64) string {
	parts := make([]string, len(v))
	for i, x := range v {
		s := strconv.FormatFloat(x, 'g', 6, 64)
		if len(columns) == len(v) {
			s = columns[i] + "=" + s
		}
		parts[i] = s
	}
	return strings.Join(parts, " ")
}

func formatDecisions(decisions map[string]int) string {
	keys := make([]string, 0, len(decisions))
	for k := range decisions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, decisions[k])
	}
	return strings.Join(parts, " ")
}
