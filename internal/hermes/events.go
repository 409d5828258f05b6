package hermes

import "time"

// RunRequestEvent queues a run. Zero values fall back to the configured
// defaults.
type RunRequestEvent struct {
	Dataset            string    `json:"dataset"`
	Criterion          string    `json:"criterion"`
	Eps                float64   `json:"eps"`
	NegativeAttributes []int     `json:"negative_attributes,omitempty"`
	Utility            []float64 `json:"utility,omitempty"`
	Seed               int64     `json:"seed,omitempty"`
	Cutoff             int       `json:"cutoff,omitempty"`
	Source             string    `json:"source,omitempty"`
}

type RunStartedEvent struct {
	RunID     string `json:"run_id"`
	Rows      int    `json:"rows"`
	Dimension int    `json:"dimension"`
	Criterion string `json:"criterion"`
}

// RunQueryEvent is published after every real oracle query.
type RunQueryEvent struct {
	RunID       string `json:"run_id"`
	Candidate   int    `json:"candidate"`
	BestIndex   int    `json:"best_index"`
	QueryCount  int    `json:"query_count"`
	Constraints int    `json:"constraints"`
}

type RunCompletedEvent struct {
	RunID      string    `json:"run_id"`
	BestIndex  int       `json:"best_index"`
	BestVector []float64 `json:"best_vector"`
	QueryCount int       `json:"query_count"`
	DurationMs int64     `json:"duration_ms"`
}

type RunFailedEvent struct {
	RunID string `json:"run_id"`
	Error string `json:"error"`
}

// OracleQuery asks a remote oracle to pick between two tuples.
type OracleQuery struct {
	RunID  string    `json:"run_id"`
	Seq    int       `json:"seq"`
	First  []float64 `json:"first"`
	Second []float64 `json:"second"`
}

// OracleAnswer is the reply to an OracleQuery. Choice is 1 or 2.
type OracleAnswer struct {
	Choice int    `json:"choice"`
	Error  string `json:"error,omitempty"`
}

type StatsEvent struct {
	Pending   int       `json:"pending"`
	Running   int       `json:"running"`
	Completed int       `json:"completed"`
	Failed    int       `json:"failed"`
	AvgMs     float64   `json:"avg_duration_ms"`
	Timestamp time.Time `json:"timestamp"`
}
