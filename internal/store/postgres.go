package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema creates the runs table. NewPostgresStore applies it on connect.
const Schema = `
CREATE TABLE IF NOT EXISTS elicit_runs (
	run_id              UUID PRIMARY KEY,
	status              TEXT NOT NULL,
	dataset             TEXT NOT NULL DEFAULT '',
	criterion           TEXT NOT NULL,
	eps                 DOUBLE PRECISION NOT NULL DEFAULT 0,
	negative_attributes INTEGER[] NOT NULL DEFAULT '{}',
	utility             DOUBLE PRECISION[],
	seed                BIGINT NOT NULL DEFAULT 0,
	cutoff              INTEGER NOT NULL DEFAULT 0,
	source              TEXT NOT NULL DEFAULT '',
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	started_at          TIMESTAMPTZ,
	completed_at        TIMESTAMPTZ,
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	result              JSONB,
	error               TEXT
);
CREATE INDEX IF NOT EXISTS elicit_runs_status_created_idx ON elicit_runs (status, created_at);
`

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, Schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

const runColumns = `run_id, status,
	dataset, criterion, eps, negative_attributes, utility, seed, cutoff, source,
	created_at, started_at, completed_at, updated_at,
	result, error`

func (s *PostgresStore) CreateRun(ctx context.Context, run *Run) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.Status == "" {
		run.Status = StatusPending
	}
	resultJSON, err := marshalResult(run.Result)
	if err != nil {
		return err
	}

	return s.pool.QueryRow(ctx, `
		INSERT INTO elicit_runs (run_id, status,
			dataset, criterion, eps, negative_attributes, utility, seed, cutoff, source,
			result, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at`,
		run.ID, run.Status,
		run.Dataset, run.Criterion, run.Eps, intsOrEmpty(run.NegativeAttributes), run.Utility, run.Seed, run.Cutoff, run.Source,
		resultJSON, nullString(run.Error),
	).Scan(&run.CreatedAt, &run.UpdatedAt)
}

func (s *PostgresStore) GetRun(ctx context.Context, id uuid.UUID) (*Run, error) {
	run, err := scanRun(s.pool.QueryRow(ctx, `
		SELECT `+runColumns+`
		FROM elicit_runs WHERE run_id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM elicit_runs WHERE 1=1`
	args := []interface{}{}
	n := 0

	if filter.Status != nil {
		n++
		query += fmt.Sprintf(" AND status = $%d", n)
		args = append(args, string(*filter.Status))
	}
	if filter.Source != "" {
		n++
		query += fmt.Sprintf(" AND source = $%d", n)
		args = append(args, filter.Source)
	}

	query += " ORDER BY created_at DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	n++
	query += fmt.Sprintf(" LIMIT $%d", n)
	args = append(args, limit)

	if filter.Offset > 0 {
		n++
		query += fmt.Sprintf(" OFFSET $%d", n)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRuns(rows)
}

func (s *PostgresStore) GetPendingRuns(ctx context.Context) ([]*Run, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+runColumns+`
		FROM elicit_runs WHERE status = 'pending'
		ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRuns(rows)
}

func (s *PostgresStore) UpdateRun(ctx context.Context, run *Run) error {
	resultJSON, err := marshalResult(run.Result)
	if err != nil {
		return err
	}

	err = s.pool.QueryRow(ctx, `
		UPDATE elicit_runs SET
			status = $2,
			dataset = $3, criterion = $4, eps = $5, negative_attributes = $6,
			utility = $7, seed = $8, cutoff = $9, source = $10,
			started_at = $11, completed_at = $12, updated_at = now(),
			result = $13, error = $14
		WHERE run_id = $1
		RETURNING updated_at`,
		run.ID, run.Status,
		run.Dataset, run.Criterion, run.Eps, intsOrEmpty(run.NegativeAttributes),
		run.Utility, run.Seed, run.Cutoff, run.Source,
		run.StartedAt, run.CompletedAt,
		resultJSON, nullString(run.Error),
	).Scan(&run.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("update run %s: %w", run.ID, ErrRunNotFound)
	}
	return err
}

func (s *PostgresStore) GetStats(ctx context.Context) (*RunStats, error) {
	stats := &RunStats{}
	err := s.pool.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'running' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM((result->>'query_count')::int) FILTER (WHERE status = 'completed'), 0),
			COALESCE(AVG((result->>'duration_ms')::double precision) FILTER (WHERE status = 'completed' AND result IS NOT NULL), 0)
		FROM elicit_runs`,
	).Scan(&stats.TotalPending, &stats.TotalRunning, &stats.TotalCompleted, &stats.TotalFailed,
		&stats.TotalQueries, &stats.AvgDurationMs)
	return stats, err
}

func scanRun(row pgx.Row) (*Run, error) {
	r := &Run{}
	var resultJSON []byte
	var runError sql.NullString
	if err := row.Scan(
		&r.ID, &r.Status,
		&r.Dataset, &r.Criterion, &r.Eps, &r.NegativeAttributes, &r.Utility, &r.Seed, &r.Cutoff, &r.Source,
		&r.CreatedAt, &r.StartedAt, &r.CompletedAt, &r.UpdatedAt,
		&resultJSON, &runError,
	); err != nil {
		return nil, err
	}
	if runError.Valid {
		r.Error = runError.String
	}
	if resultJSON != nil {
		r.Result = &RunResult{}
		if err := json.Unmarshal(resultJSON, r.Result); err != nil {
			return nil, fmt.Errorf("decode result of run %s: %w", r.ID, err)
		}
	}
	return r, nil
}

func scanRuns(rows pgx.Rows) ([]*Run, error) {
	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func marshalResult(res *RunResult) ([]byte, error) {
	if res == nil {
		return nil, nil
	}
	data, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("marshal run result: %w", err)
	}
	return data, nil
}

func intsOrEmpty(v []int) []int {
	if v == nil {
		return []int{}
	}
	return v
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
