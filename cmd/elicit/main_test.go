package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/Elicit/internal/config"
	"github.com/MikeSquared-Agency/Elicit/internal/dataset"
	"github.com/MikeSquared-Agency/Elicit/internal/store"
)

const workedCSV = "a,b\n1,0\n0,1\n0.5,0.5\n"

func writeDataset(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

// runCLI executes the root command and returns what it printed to stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSearchCommand_JSON(t *testing.T) {
	path := writeDataset(t, workedCSV)

	out, err := runCLI(t, "search", "--dataset", path, "--utility", "0.6,0.4", "--format", "json")
	require.NoError(t, err)

	var report searchReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.NotNil(t, report.Result)
	assert.Equal(t, "LP", report.Criterion)
	assert.Equal(t, 0, report.Result.BestIndex)
	assert.Equal(t, 1, report.Result.QueryCount)
	assert.Equal(t, []string{"a", "b"}, report.Result.Columns)
	require.NotNil(t, report.Result.Regret)
	assert.InDelta(t, 0, *report.Result.Regret, 1e-9)
}

func TestSearchCommand_Table(t *testing.T) {
	path := writeDataset(t, workedCSV)

	out, err := runCLI(t, "search", "--dataset", path, "--utility", "0.6,0.4")
	require.NoError(t, err)
	assert.Contains(t, out, "Best index:")
	assert.Contains(t, out, "a=1 b=0")
	assert.Contains(t, out, "Queries:")
	assert.Contains(t, out, "Feasibility checks:")
	assert.Contains(t, out, "3 rows, best on frontier")
}

func TestSearchCommand_RecordsRunInBoltStore(t *testing.T) {
	path := writeDataset(t, workedCSV)
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	cfgPath := filepath.Join(t.TempDir(), "elicit.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("store:\n  driver: bolt\n  path: "+dbPath+"\n"), 0o644))

	_, err := runCLI(t, "--config", cfgPath, "search", "--dataset", path, "--utility", "0.6,0.4",
		"--run-id", "7f0c2a4e-8d3b-4c59-9a3e-1b2c3d4e5f60", "--format", "json")
	require.NoError(t, err)

	s, err := store.NewBoltStore(dbPath)
	require.NoError(t, err)
	defer s.Close()
	runs, err := s.ListRuns(context.Background(), store.RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "7f0c2a4e-8d3b-4c59-9a3e-1b2c3d4e5f60", runs[0].ID.String())
	assert.Equal(t, store.StatusCompleted, runs[0].Status)
	assert.Equal(t, "cli", runs[0].Source)
	require.NotNil(t, runs[0].Result)
	assert.Equal(t, 1, runs[0].Result.QueryCount)
}

func TestSearchCommand_Errors(t *testing.T) {
	path := writeDataset(t, workedCSV)

	tests := []struct {
		name string
		args []string
	}{
		{"unknown criterion", []string{"search", "--dataset", path, "--criterion", "genetic"}},
		{"bad format", []string{"search", "--dataset", path, "--format", "xml"}},
		{"missing dataset", []string{"search", "--dataset", filepath.Join(t.TempDir(), "missing.csv")}},
		{"negative attribute out of range", []string{"search", "--dataset", path, "--negative", "5"}},
		{"utility too long", []string{"search", "--dataset", path, "--utility", "0.2,0.3,0.5"}},
		{"non-numeric cell", []string{"search", "--dataset", writeDataset(t, "a,b\n1,x\n")}},
		{"bad run id", []string{"search", "--dataset", path, "--run-id", "nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runCLI(t, tt.args...)
			assert.Error(t, err)
			assert.Empty(t, out, "no result is printed on failure")
		})
	}
}

func TestCompareCommand(t *testing.T) {
	var b strings.Builder
	b.WriteString("a,b\n")
	for _, row := range []string{"1,0", "0.9,0.2", "0.8,0.3", "0.7,0.5", "0.4,0.9", "0,1"} {
		b.WriteString(row + "\n")
	}
	path := writeDataset(t, b.String())

	out, err := runCLI(t, "compare", "--dataset", path, "--utility", "0.5,0.5", "--format", "json")
	require.NoError(t, err)

	var report compareReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 6, report.Rows)
	assert.Equal(t, 5, report.Exhaustive.QueryCount)
	assert.LessOrEqual(t, report.LP.QueryCount, report.Exhaustive.QueryCount)
	assert.Equal(t, report.Exhaustive.QueryCount-report.LP.QueryCount, report.QueriesSaved)
	assert.Equal(t, report.Exhaustive.BestIndex, report.LP.BestIndex)
}

func TestOracleCommand_RequiresRunID(t *testing.T) {
	_, err := runCLI(t, "oracle")
	assert.Error(t, err)
}

func TestDatasetLoader_RunOverridesTable(t *testing.T) {
	cfg := config.Default()
	cfg.Dataset.Driver = "sqlite"
	cfg.Dataset.Path = filepath.Join(t.TempDir(), "data.db")
	cfg.Dataset.Table = "cars"
	a := &app{cfg: cfg}

	_, err := a.datasetLoader(false)(context.Background(), &store.Run{Dataset: "planes"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "planes")
}

func TestDatasetLoader_ConfinedToDataDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cars.csv"), []byte(workedCSV), 0o644))
	outside := writeDataset(t, "secret,value\n1,2\n")

	cfg := config.Default()
	cfg.Dataset.Driver = "csv"
	cfg.Dataset.Dir = dir
	a := &app{cfg: cfg}
	load := a.datasetLoader(true)
	ctx := context.Background()

	ds, err := load(ctx, &store.Run{Dataset: "cars.csv"})
	require.NoError(t, err)
	assert.Len(t, ds.Rows, 3)

	for _, name := range []string{outside, "../" + filepath.Base(outside), "sub/../../cars.csv"} {
		_, err := load(ctx, &store.Run{Dataset: name})
		assert.ErrorIs(t, err, dataset.ErrInvalidDataset, name)
	}

	// An unset data directory refuses every named csv.
	cfg.Dataset.Dir = ""
	_, err = (&app{cfg: cfg}).datasetLoader(true)(ctx, &store.Run{Dataset: "cars.csv"})
	assert.ErrorIs(t, err, dataset.ErrInvalidDataset)

	// Operator flags on the command line are not confined.
	ds, err = (&app{cfg: cfg}).datasetLoader(false)(ctx, &store.Run{Dataset: outside})
	require.NoError(t, err)
	assert.Len(t, ds.Rows, 1)
}

func TestOracleFactory(t *testing.T) {
	a := &app{cfg: config.Default()}

	for _, kind := range []string{"simulated", "interactive"} {
		a.cfg.Oracle.Kind = kind
		f, err := a.oracleFactory(strings.NewReader(""), io.Discard, nil)
		assert.NoError(t, err, kind)
		assert.NotNil(t, f, kind)
	}

	a.cfg.Oracle.Kind = "remote"
	_, err := a.oracleFactory(nil, nil, nil)
	assert.Error(t, err)
}
