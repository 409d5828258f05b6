package dataset

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MikeSquared-Agency/Elicit/internal/scoring"
)

// PostgresSource reads a table from Postgres. OrderBy is required because
// Postgres guarantees no row order without it.
type PostgresSource struct {
	URL     string
	Table   string
	Columns []string
	OrderBy string
	Limit   int
}

func (s *PostgresSource) Load(ctx context.Context) (*Dataset, error) {
	pool, err := pgxpool.New(ctx, s.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	columns := s.Columns
	if len(columns) == 0 {
		columns, err = postgresColumns(ctx, pool, s.Table, s.OrderBy)
		if err != nil {
			return nil, err
		}
	}

	rows, err := pool.Query(ctx, selectQuery(s.Table, columns, "::double precision", quoteIdent(s.OrderBy), s.Limit))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.Table, err)
	}
	defer rows.Close()

	ds := &Dataset{Name: s.Table, Columns: columns}
	values := make([]*float64, len(columns))
	dest := make([]any, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}
	for line := 0; rows.Next(); line++ {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("%w: postgres row %d has a non-numeric value", ErrInvalidDataset, line)
		}
		row := make(scoring.Vector, len(columns))
		for j, v := range values {
			if v == nil {
				return nil, fmt.Errorf("%w: postgres row %d column %s is NULL", ErrInvalidDataset, line, columns[j])
			}
			row[j] = *v
		}
		ds.Rows = append(ds.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", s.Table, err)
	}
	return ds, nil
}

// postgresColumns lists the table's columns in declaration order, leaving out
// the ordering column.
func postgresColumns(ctx context.Context, pool *pgxpool.Pool, table, orderBy string) ([]string, error) {
	rows, err := pool.Query(ctx, "SELECT * FROM "+quoteIdent(table)+" LIMIT 0")
	if err != nil {
		return nil, fmt.Errorf("inspect %s: %w", table, err)
	}
	defer rows.Close()

	var columns []string
	for _, fd := range rows.FieldDescriptions() {
		if fd.Name != orderBy {
			columns = append(columns, fd.Name)
		}
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: table %s has no attribute columns", ErrInvalidDataset, table)
	}
	return columns, rows.Err()
}
