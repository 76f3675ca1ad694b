package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"healthcare-analytics/models"
)

// ErrUnsupportedFormat is returned for input files that are neither CSV nor XLSX.
var ErrUnsupportedFormat = errors.New("unsupported input format")

// DailyFile returns the conventional path of the batch for date:
// <dir>/health_data_<YYYYMMDD>.<ext>.
func DailyFile(dir string, date time.Time, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	return filepath.Join(dir, fmt.Sprintf("health_data_%s.%s", date.Format("20060102"), ext))
}

// ReadBatch loads a raw batch from a CSV or XLSX file.
func ReadBatch(path string) (models.RawBatch, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ReadCSV(path)
	case ".xlsx":
		return ReadXLSX(path)
	}
	return models.RawBatch{}, fmt.Errorf("read %q: %w", path, ErrUnsupportedFormat)
}

// ReadCSV reads a CSV file with a header row.
func ReadCSV(path string) (models.RawBatch, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.RawBatch{}, fmt.Errorf("csv: open %q: %w", path, err)
	}
	defer f.Close()

	batch, err := DecodeCSV(f)
	if err != nil {
		return models.RawBatch{}, fmt.Errorf("csv: read %q: %w", path, err)
	}
	batch.Source = path
	return batch, nil
}

// DecodeCSV parses CSV content whose first record is the header. Short rows
// leave their trailing columns absent, which the validator treats as null.
func DecodeCSV(r io.Reader) (models.RawBatch, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return models.RawBatch{}, nil
	}
	if err != nil {
		return models.RawBatch{}, fmt.Errorf("header: %w", err)
	}

	batch := models.RawBatch{Columns: normaliseHeader(header)}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return models.RawBatch{}, fmt.Errorf("line %d: %w", line, err)
		}
		batch.Rows = append(batch.Rows, toRow(batch.Columns, rec))
	}
	return batch, nil
}

func normaliseHeader(header []string) []string {
	cols := make([]string, len(header))
	for i, h := range header {
		// strip a UTF-8 BOM left by spreadsheet exports
		cols[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	return cols
}

func toRow(columns, values []string) models.RawRow {
	row := make(models.RawRow, len(columns))
	for i, col := range columns {
		if i < len(values) {
			row[col] = values[i]
		}
	}
	return row
}
