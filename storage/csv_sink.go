package storage

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// CSVSink writes each dataset to <dir>/<dataset>.csv, truncating previous
// contents. It is safe for concurrent use.
type CSVSink struct {
	mu  sync.Mutex
	dir string
}

// NewCSVSink creates the output directory if needed.
func NewCSVSink(dir string) (*CSVSink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}
	return &CSVSink{dir: dir}, nil
}

// Path returns the file a dataset is written to.
func (c *CSVSink) Path(dataset string) string {
	return filepath.Join(c.dir, dataset+".csv")
}

// Store writes rows as CSV. Tabular rows are flattened into their columns;
// anything else is written as a single JSON "document" column.
func (c *CSVSink) Store(ctx context.Context, dataset string, rows []any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	path := c.Path(dataset)
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("csv: create file %q: %w", tmp, err)
	}

	w := csv.NewWriter(f)
	if err := writeRows(w, rows); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("csv: write %s: %w", dataset, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("csv: flush %s: %w", dataset, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("csv: close %s: %w", dataset, err)
	}
	return os.Rename(tmp, path)
}

func writeRows(w *csv.Writer, rows []any) error {
	if len(rows) == 0 {
		return nil
	}

	if first, ok := rows[0].(Tabular); ok {
		extra := extraColumns(rows)
		if err := w.Write(append(first.Columns(), extra...)); err != nil {
			return err
		}
		for i, row := range rows {
			t, ok := row.(Tabular)
			if !ok {
				return fmt.Errorf("row %d: mixed row types in one dataset", i)
			}
			values := t.Values()
			if len(extra) > 0 {
				fields := row.(Extended).ExtraFields()
				for _, k := range extra {
					values = append(values, fields[k])
				}
			}
			if err := w.Write(values); err != nil {
				return err
			}
		}
		return nil
	}

	if err := w.Write([]string{"document"}); err != nil {
		return err
	}
	for _, row := range rows {
		doc, err := json.Marshal(row)
		if err != nil {
			return err
		}
		if err := w.Write([]string{string(doc)}); err != nil {
			return err
		}
	}
	return nil
}

// extraColumns returns the sorted union of pass-through keys over rows, so
// every row of a dataset shares one header.
func extraColumns(rows []any) []string {
	seen := make(map[string]struct{})
	for _, row := range rows {
		e, ok := row.(Extended)
		if !ok {
			return nil
		}
		for k := range e.ExtraFields() {
			seen[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (c *CSVSink) Close() error { return nil }
