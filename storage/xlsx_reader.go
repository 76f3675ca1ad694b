package storage

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"healthcare-analytics/models"
)

// ReadXLSX reads the first sheet of a workbook; its first row is the header.
func ReadXLSX(path string) (models.RawBatch, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return models.RawBatch{}, fmt.Errorf("xlsx: open %q: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return models.RawBatch{Source: path}, nil
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return models.RawBatch{}, fmt.Errorf("xlsx: read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return models.RawBatch{Source: path}, nil
	}

	batch := models.RawBatch{Source: path, Columns: normaliseHeader(rows[0])}
	for _, r := range rows[1:] {
		if isBlank(r) {
			continue
		}
		batch.Rows = append(batch.Rows, toRow(batch.Columns, r))
	}
	return batch, nil
}

func isBlank(values []string) bool {
	for _, v := range values {
		if v != "" {
			return false
		}
	}
	return true
}
