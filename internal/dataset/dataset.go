// Package dataset loads the ordered rows a search scans. Row order is
// significant: the first row seeds the initial best.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/MikeSquared-Agency/Elicit/internal/scoring"
)

// ErrInvalidDataset is returned for empty, ragged or non-numeric data and for
// bad source settings. It is a configuration error.
var ErrInvalidDataset = errors.New("invalid dataset")

// Dataset is an ordered table of numeric rows.
type Dataset struct {
	Name    string
	Columns []string
	Rows    []scoring.Vector
}

// Dimension returns the number of attributes per row.
func (d *Dataset) Dimension() int {
	if len(d.Rows) > 0 {
		return len(d.Rows[0])
	}
	return len(d.Columns)
}

// Head keeps the first n rows. n <= 0 keeps every row.
func (d *Dataset) Head(n int) *Dataset {
	if n <= 0 || n >= len(d.Rows) {
		return d
	}
	return &Dataset{Name: d.Name, Columns: d.Columns, Rows: d.Rows[:n]}
}

// Validate checks that the dataset has at least one row, every row has one
// value per column and every value is finite.
func (d *Dataset) Validate() error {
	if len(d.Rows) == 0 {
		return fmt.Errorf("%w: %s has no rows", ErrInvalidDataset, d.label())
	}
	dim := len(d.Rows[0])
	if dim == 0 {
		return fmt.Errorf("%w: %s has no columns", ErrInvalidDataset, d.label())
	}
	if len(d.Columns) > 0 && len(d.Columns) != dim {
		return fmt.Errorf("%w: %s has %d column names for %d attributes", ErrInvalidDataset, d.label(), len(d.Columns), dim)
	}
	for i, row := range d.Rows {
		if len(row) != dim {
			return fmt.Errorf("%w: row %d has %d values, want %d", ErrInvalidDataset, i, len(row), dim)
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: row %d column %s is not finite", ErrInvalidDataset, i, d.column(j))
			}
		}
	}
	return nil
}

func (d *Dataset) label() string {
	if d.Name == "" {
		return "dataset"
	}
	return "dataset " + d.Name
}

func (d *Dataset) column(j int) string {
	if j < len(d.Columns) {
		return d.Columns[j]
	}
	return fmt.Sprintf("#%d", j)
}

// ValidName reports whether name can be used as a dataset chosen by a
// caller: a relative, slash-separated path that stays inside its directory,
// which also makes it a usable table name.
func ValidName(name string) bool {
	if name == "" || len(name) > 255 || strings.ContainsAny(name, "\\\x00") {
		return false
	}
	return filepath.IsLocal(name)
}

// Source loads a dataset.
type Source interface {
	Load(ctx context.Context) (*Dataset, error)
}

// Options selects and configures a source.
type Options struct {
	Driver string // csv, sqlite or postgres
	// Root confines a csv Path to a directory. See CSVSource.Root.
	Root    string
	Path    string
	URL     string
	Table   string
	Columns []string
	OrderBy string
	Name    string
	// Limit caps the number of rows read. Zero reads everything.
	Limit int
}

// Open returns the source for opts.Driver.
func Open(opts Options) (Source, error) {
	switch strings.ToLower(opts.Driver) {
	case "", "csv":
		if opts.Path == "" {
			return nil, fmt.Errorf("%w: csv source needs a path", ErrInvalidDataset)
		}
		return &CSVSource{Root: opts.Root, Path: opts.Path, Name: opts.Name, Columns: opts.Columns, Limit: opts.Limit}, nil
	case "sqlite":
		if opts.Path == "" || opts.Table == "" {
			return nil, fmt.Errorf("%w: sqlite source needs a path and a table", ErrInvalidDataset)
		}
		return &SQLiteSource{Path: opts.Path, Table: opts.Table, Columns: opts.Columns, OrderBy: opts.OrderBy, Limit: opts.Limit}, nil
	case "postgres":
		if opts.URL == "" || opts.Table == "" || opts.OrderBy == "" {
			return nil, fmt.Errorf("%w: postgres source needs a url, a table and order_by", ErrInvalidDataset)
		}
		return &PostgresSource{URL: opts.URL, Table: opts.Table, Columns: opts.Columns, OrderBy: opts.OrderBy, Limit: opts.Limit}, nil
	default:
		return nil, fmt.Errorf("%w: unknown driver %q", ErrInvalidDataset, opts.Driver)
	}
}

// Load opens the source for opts, reads it and validates the result.
func Load(ctx context.Context, opts Options) (*Dataset, error) {
	src, err := Open(opts)
	if err != nil {
		return nil, err
	}
	ds, err := src.Load(ctx)
	if err != nil {
		return nil, err
	}
	if opts.Name != "" {
		ds.Name = opts.Name
	}
	ds = ds.Head(opts.Limit)
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return ds, nil
}

// selectQuery builds SELECT <columns> FROM <table> [ORDER BY <order>] [LIMIT n]
// with quoted identifiers. cast is appended to every column and order is
// written as given.
func selectQuery(table string, columns []string, cast, order string, limit int) string {
	var b strings.Builder
	b.WriteString("SELECT ")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(quoteIdent(c))
		b.WriteString(cast)
	}
	b.WriteString(" FROM ")
	b.WriteString(quoteIdent(table))
	if order != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(order)
	}
	if limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", limit)
	}
	return b.String()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
