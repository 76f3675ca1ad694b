package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, path string, rows [][]any) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &r))
	}
	require.NoError(t, f.SaveAs(path))
}

func TestReadXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "health_data_20230801.xlsx")
	writeWorkbook(t, path, [][]any{
		{"patient_id", "age", "gender", "diagnosis_code", "diagnosis_description", "diagnosis_date"},
		{"P1", 41, "M", "D1", "Diabetes", "2023-08-01"},
		{},
		{"P2", 65, "F", "D1", "Diabetes", "2023-08-01"},
	})

	batch, err := ReadBatch(path)

	require.NoError(t, err)
	assert.Equal(t, path, batch.Source)
	assert.Len(t, batch.Columns, 6)
	require.Len(t, batch.Rows, 2, "blank rows are skipped")
	assert.Equal(t, "41", batch.Rows[0]["age"])
	assert.Equal(t, "P2", batch.Rows[1]["patient_id"])
}

func TestReadXLSXHeaderOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "header.xlsx")
	writeWorkbook(t, path, [][]any{{"patient_id", "age"}})

	batch, err := ReadXLSX(path)

	require.NoError(t, err)
	assert.Equal(t, []string{"patient_id", "age"}, batch.Columns)
	assert.Empty(t, batch.Rows)
}

func TestReadXLSXMissingFile(t *testing.T) {
	_, err := ReadXLSX(filepath.Join(t.TempDir(), "nope.xlsx"))

	assert.Error(t, err)
}
