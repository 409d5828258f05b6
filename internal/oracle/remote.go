package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/MikeSquared-Agency/Elicit/internal/hermes"
	"github.com/MikeSquared-Agency/Elicit/internal/scoring"
)

// Requester sends a request and decodes its reply. hermes.Client satisfies it.
type Requester interface {
	Request(ctx context.Context, subject string, data interface{}, reply interface{}) error
}

// Remote forwards every query to an external oracle over request/reply.
type Remote struct {
	client  Requester
	runID   string
	timeout time.Duration
	seq     atomic.Int64
}

// NewRemote creates a remote oracle for one run. A zero timeout means the
// caller's context alone bounds each query.
func NewRemote(client Requester, runID string, timeout time.Duration) *Remote {
	return &Remote{client: client, runID: runID, timeout: timeout}
}

func (r *Remote) Query(ctx context.Context, p1, p2 scoring.Vector) (Preference, error) {
	if len(p1) != len(p2) {
		return 0, fmt.Errorf("%w: got %d and %d", ErrDimensionMismatch, len(p1), len(p2))
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	q := hermes.OracleQuery{
		RunID:  r.runID,
		Seq:    int(r.seq.Add(1)),
		First:  p1,
		Second: p2,
	}
	var answer hermes.OracleAnswer
	if err := r.client.Request(ctx, hermes.SubjectOracleQuery(r.runID), q, &answer); err != nil {
		return 0, fmt.Errorf("remote oracle query %d: %w", q.Seq, err)
	}
	if answer.Error != "" {
		return 0, fmt.Errorf("remote oracle query %d: %w", q.Seq, errors.New(answer.Error))
	}

	pref := Preference(answer.Choice)
	if !pref.Valid() {
		return 0, fmt.Errorf("%w: remote answer %d", ErrContractViolation, answer.Choice)
	}
	return pref, nil
}

// Responder answers remote queries with a local oracle.
type Responder struct {
	inner  Oracle
	logger *slog.Logger
}

// NewResponder wraps inner.
func NewResponder(inner Oracle, logger *slog.Logger) *Responder {
	return &Responder{inner: inner, logger: logger}
}

// Handle decodes one OracleQuery and returns the OracleAnswer to send back.
func (r *Responder) Handle(ctx context.Context, data []byte) hermes.OracleAnswer {
	var q hermes.OracleQuery
	if err := json.Unmarshal(data, &q); err != nil {
		return hermes.OracleAnswer{Error: fmt.Sprintf("decode query: %v", err)}
	}
	pref, err := r.inner.Query(ctx, q.First, q.Second)
	if err != nil {
		r.logger.Warn("oracle query failed", "run_id", q.RunID, "seq", q.Seq, "error", err)
		return hermes.OracleAnswer{Error: err.Error()}
	}
	r.logger.Debug("oracle query answered", "run_id", q.RunID, "seq", q.Seq, "choice", pref)
	return hermes.OracleAnswer{Choice: int(pref)}
}

// Listen registers the responder for runID on client.
func (r *Responder) Listen(ctx context.Context, client hermes.Client, runID string) error {
	return client.Reply(hermes.SubjectOracleQuery(runID), func(data []byte) interface{} {
		return r.Handle(ctx, data)
	})
}
