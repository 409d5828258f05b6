package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/MikeSquared-Agency/Elicit/internal/scoring"
)

// CSVSource reads a CSV file whose first record holds the column names and
// whose remaining cells are all numeric.
type CSVSource struct {
	// Root, when set, confines Path to that directory tree. Absolute paths and
	// names that leave it through ".." or symlinks are rejected.
	Root string
	Path string
	Name string
	// Columns selects a subset of columns by name. Empty keeps all of them.
	Columns []string
	Limit   int
}

func (s *CSVSource) Load(ctx context.Context) (*Dataset, error) {
	f, err := s.open()
	if err != nil {
		return nil, fmt.Errorf("csv: open %s: %w", s.Path, err)
	}
	defer f.Close() //nolint:errcheck

	ds, err := ReadCSV(ctx, f, s.Columns, s.Limit)
	if err != nil {
		return nil, fmt.Errorf("csv: %s: %w", s.Path, err)
	}
	ds.Name = s.Name
	if ds.Name == "" {
		ds.Name = strings.TrimSuffix(filepath.Base(s.Path), filepath.Ext(s.Path))
	}
	return ds, nil
}

func (s *CSVSource) open() (*os.File, error) {
	if s.Root == "" {
		return os.Open(s.Path)
	}
	if !ValidName(s.Path) {
		return nil, fmt.Errorf("%w: %q is not a name inside the data directory", ErrInvalidDataset, s.Path)
	}
	return os.OpenInRoot(s.Root, s.Path)
}

// ReadCSV parses CSV data from r. columns selects a subset by name; limit
// caps the number of data rows read.
func ReadCSV(ctx context.Context, r io.Reader, columns []string, limit int) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty file (no header row)", ErrInvalidDataset)
	}
	if err != nil {
		return nil, fmt.Errorf("parse header: %w", err)
	}

	picks, names, err := pickColumns(headers, columns)
	if err != nil {
		return nil, err
	}

	ds := &Dataset{Columns: names}
	for line := 2; limit <= 0 || len(ds.Rows) < limit; line++ {
		if line%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidDataset, line, err)
		}

		row := make(scoring.Vector, len(picks))
		for k, j := range picks {
			v, err := strconv.ParseFloat(strings.TrimSpace(record[j]), 64)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d column %d is not numeric", ErrInvalidDataset, line, j+1)
			}
			row[k] = v
		}
		ds.Rows = append(ds.Rows, row)
	}
	return ds, nil
}

func pickColumns(headers, columns []string) ([]int, []string, error) {
	if len(columns) == 0 {
		picks := make([]int, len(headers))
		for i := range headers {
			picks[i] = i
		}
		return picks, headers, nil
	}

	index := make(map[string]int, len(headers))
	for i, h := range headers {
		index[h] = i
	}
	picks := make([]int, len(columns))
	for k, c := range columns {
		i, ok := index[c]
		if !ok {
			return nil, nil, fmt.Errorf("%w: column %q not found", ErrInvalidDataset, c)
		}
		picks[k] = i
	}
	return picks, columns, nil
}

// WriteCSV writes ds with a header row.
func WriteCSV(w io.Writer, ds *Dataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ds.Columns); err != nil {
		return err
	}
	record := make([]string, len(ds.Columns))
	for _, row := range ds.Rows {
		for j, v := range row {
			record[j] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
