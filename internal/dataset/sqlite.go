package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/MikeSquared-Agency/Elicit/internal/scoring"
)

// SQLiteSource reads a table from a SQLite file. Without OrderBy rows come
// back in rowid order.
type SQLiteSource struct {
	Path    string
	Table   string
	Columns []string
	OrderBy string
	Limit   int
}

func (s *SQLiteSource) Load(ctx context.Context) (*Dataset, error) {
	db, err := sql.Open("sqlite", s.Path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", s.Path, err)
	}
	defer db.Close() //nolint:errcheck

	columns := s.Columns
	if len(columns) == 0 {
		columns, err = sqliteColumns(ctx, db, s.Table, s.OrderBy)
		if err != nil {
			return nil, err
		}
	}

	order := "rowid"
	if s.OrderBy != "" {
		order = quoteIdent(s.OrderBy)
	}
	query := selectQuery(s.Table, columns, "", order, s.Limit)

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query %s: %w", s.Table, err)
	}
	defer rows.Close() //nolint:errcheck

	ds := &Dataset{Name: s.Table, Columns: columns}
	values := make([]sql.NullFloat64, len(columns))
	dest := make([]any, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}
	for line := 0; rows.Next(); line++ {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("%w: sqlite row %d has a non-numeric value", ErrInvalidDataset, line)
		}
		row := make(scoring.Vector, len(columns))
		for j, v := range values {
			if !v.Valid {
				return nil, fmt.Errorf("%w: sqlite row %d column %s is NULL", ErrInvalidDataset, line, columns[j])
			}
			row[j] = v.Float64
		}
		ds.Rows = append(ds.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: read %s: %w", s.Table, err)
	}
	return ds, nil
}

// sqliteColumns lists the table's columns, leaving out the ordering column.
func sqliteColumns(ctx context.Context, db *sql.DB, table, orderBy string) ([]string, error) {
	rows, err := db.QueryContext(ctx, "SELECT * FROM "+quoteIdent(table)+" LIMIT 0")
	if err != nil {
		return nil, fmt.Errorf("sqlite: inspect %s: %w", table, err)
	}
	defer rows.Close() //nolint:errcheck

	all, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var columns []string
	for _, c := range all {
		if c != orderBy {
			columns = append(columns, c)
		}
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: table %s has no attribute columns", ErrInvalidDataset, table)
	}
	return columns, nil
}

// WriteSQLite stores ds in table, replacing any existing table of that name.
func WriteSQLite(ctx context.Context, path, table string, ds *Dataset) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	defer db.Close() //nolint:errcheck

	defs := make([]string, len(ds.Columns))
	marks := make([]string, len(ds.Columns))
	for i, c := range ds.Columns {
		defs[i] = quoteIdent(c) + " REAL NOT NULL"
		marks[i] = "?"
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdent(table)); err != nil {
		return fmt.Errorf("drop %s: %w", table, err)
	}
	if _, err := tx.ExecContext(ctx, "CREATE TABLE "+quoteIdent(table)+" ("+strings.Join(defs, ", ")+")"); err != nil {
		return fmt.Errorf("create %s: %w", table, err)
	}

	cols := make([]string, len(ds.Columns))
	for i, c := range ds.Columns {
		cols[i] = quoteIdent(c)
	}
	stmt, err := tx.PrepareContext(ctx, "INSERT INTO "+quoteIdent(table)+" ("+strings.Join(cols, ", ")+") VALUES ("+strings.Join(marks, ", ")+")")
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close() //nolint:errcheck

	args := make([]any, len(ds.Columns))
	for i, row := range ds.Rows {
		for j, v := range row {
			args[j] = v
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert row %d: %w", i, err)
		}
	}
	return tx.Commit()
}
