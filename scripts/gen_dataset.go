// gen_dataset.go generates a synthetic dataset of numeric tuples and,
// optionally, queues a run for it through the Elicit API.
//
// Usage:
//
//	go run scripts/gen_dataset.go -rows 1000 -dim 4 -dist anti -out data.csv
//	go run scripts/gen_dataset.go -format sqlite -out data.db -table cars -api http://localhost:8700
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"net/http"
	"os"

	"github.com/MikeSquared-Agency/Elicit/internal/dataset"
	"github.com/MikeSquared-Agency/Elicit/internal/scoring"
)

type runRequest struct {
	Dataset string `json:"dataset"`
	Seed    int64  `json:"seed"`
}

func main() {
	rows := flag.Int("rows", 1000, "number of tuples")
	dim := flag.Int("dim", 3, "number of attributes")
	dist := flag.String("dist", "independent", "distribution: independent, correlated or anti")
	seed := flag.Int64("seed", 1, "random seed")
	format := flag.String("format", "csv", "output format: csv or sqlite")
	out := flag.String("out", "data.csv", "output path")
	table := flag.String("table", "tuples", "table name for sqlite output")
	apiURL := flag.String("api", "", "Elicit API base URL; when set a run is queued for the dataset")
	flag.Parse()

	if *rows < 1 || *dim < 1 {
		log.Fatalf("rows and dim must be positive")
	}

	rng := rand.New(rand.NewSource(*seed))
	ds := &dataset.Dataset{Name: *table, Columns: make([]string, *dim)}
	for j := range ds.Columns {
		ds.Columns[j] = fmt.Sprintf("a%d", j+1)
	}
	for i := 0; i < *rows; i++ {
		v, err := tuple(rng, *dim, *dist)
		if err != nil {
			log.Fatal(err)
		}
		ds.Rows = append(ds.Rows, v)
	}

	target := *out
	switch *format {
	case "csv":
		f, err := os.Create(*out)
		if err != nil {
			log.Fatalf("create %s: %v", *out, err)
		}
		if err := dataset.WriteCSV(f, ds); err != nil {
			log.Fatalf("write csv: %v", err)
		}
		if err := f.Close(); err != nil {
			log.Fatalf("close %s: %v", *out, err)
		}
	case "sqlite":
		if err := dataset.WriteSQLite(context.Background(), *out, *table, ds); err != nil {
			log.Fatalf("write sqlite: %v", err)
		}
		target = *table
	default:
		log.Fatalf("unknown format %q", *format)
	}
	fmt.Printf("Wrote %d tuples with %d attributes to %s\n", *rows, *dim, *out)

	if *apiURL == "" {
		return
	}
	body, _ := json.Marshal(runRequest{Dataset: target, Seed: *seed})
	req, err := http.NewRequest("POST", *apiURL+"/api/v1/runs", bytes.NewReader(body))
	if err != nil {
		log.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Client-ID", "gen_dataset")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("queue run: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		log.Fatalf("queue run: HTTP %d", resp.StatusCode)
	}
	var created struct {
		RunID string `json:"run_id"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&created)
	fmt.Printf("Queued run %s\n", created.RunID)
}

// tuple draws one point in [0,1]^dim. Correlated points cluster around the
// diagonal; anti-correlated points cluster around the plane sum = dim/2.
func tuple(rng *rand.Rand, dim int, dist string) (scoring.Vector, error) {
	v := make(scoring.Vector, dim)
	switch dist {
	case "independent":
		for j := range v {
			v[j] = rng.Float64()
		}
	case "correlated":
		base := rng.Float64()
		for j := range v {
			v[j] = clamp(base + rng.NormFloat64()*0.05)
		}
	case "anti":
		plane := clamp(0.5 + rng.NormFloat64()*0.05)
		var sum float64
		for j := range v {
			v[j] = rng.Float64()
			sum += v[j]
		}
		for j := range v {
			v[j] = clamp(v[j] / sum * plane * float64(dim))
		}
	default:
		return nil, fmt.Errorf("unknown distribution %q", dist)
	}
	return v, nil
}

func clamp(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
