package storage

import (
	"context"
	"encoding/csv"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healthcare-analytics/models"
)

func readCSVFile(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestCSVSinkTabularRows(t *testing.T) {
	sink, err := NewCSVSink(t.TempDir())
	require.NoError(t, err)

	rows := []any{
		models.TopDiseaseRow{Rank: 1, DiagnosisCode: "D2", DiagnosisDescription: "Hypertension", Count: 3},
		models.TopDiseaseRow{Rank: 2, DiagnosisCode: "D1", DiagnosisDescription: "Diabetes", Count: 2},
	}
	require.NoError(t, sink.Store(context.Background(), DatasetTopDiseases, rows))

	got := readCSVFile(t, sink.Path(DatasetTopDiseases))
	assert.Equal(t, [][]string{
		{"rank", "diagnosis_code", "disease", "count"},
		{"1", "D2", "Hypertension", "3"},
		{"2", "D1", "Diabetes", "2"},
	}, got)
}

func TestCSVSinkWritesPassThroughColumns(t *testing.T) {
	sink, err := NewCSVSink(t.TempDir())
	require.NoError(t, err)

	rows := []any{
		&models.Record{PatientID: models.Ptr("P1"), Extra: map[string]string{"hospital": "St Mary"}},
		&models.Record{PatientID: models.Ptr("P2"), Age: models.Ptr(65), Extra: map[string]string{"ward": "4B"}},
		&models.Record{PatientID: models.Ptr("P3")},
	}
	require.NoError(t, sink.Store(context.Background(), DatasetCleaned, rows))

	got := readCSVFile(t, sink.Path(DatasetCleaned))
	assert.Equal(t, [][]string{
		{"patient_id", "age", "gender", "diagnosis_code", "diagnosis_description", "diagnosis_date", "hospital", "ward"},
		{"P1", "", "", "", "", "", "St Mary", ""},
		{"P2", "65", "", "", "", "", "", "4B"},
		{"P3", "", "", "", "", "", "", ""},
	}, got)
}

func TestCSVSinkSeniorFlagPassThrough(t *testing.T) {
	sink, err := NewCSVSink(t.TempDir())
	require.NoError(t, err)

	rows := []any{models.SeniorFlagRow{
		PatientID:         models.Ptr("P1"),
		Age:               models.Ptr(72),
		IsSenior:          true,
		SeniorCitizenFlag: "Y",
		Extra:             map[string]string{"hospital": "St Mary"},
	}}
	require.NoError(t, sink.Store(context.Background(), DatasetSeniorFlag, rows))

	got := readCSVFile(t, sink.Path(DatasetSeniorFlag))
	require.Len(t, got, 2)
	assert.Equal(t, "hospital", got[0][len(got[0])-1])
	assert.Equal(t, []string{"P1", "72", "", "", "", "", "true", "Y", "St Mary"}, got[1])
}

func TestCSVSinkReplacesPreviousContents(t *testing.T) {
	sink, err := NewCSVSink(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	first := []any{models.TopDiseaseRow{Rank: 1, DiagnosisCode: "D1", Count: 9}}
	second := []any{models.TopDiseaseRow{Rank: 1, DiagnosisCode: "D7", Count: 1}}
	require.NoError(t, sink.Store(ctx, DatasetTopDiseases, first))
	require.NoError(t, sink.Store(ctx, DatasetTopDiseases, second))

	got := readCSVFile(t, sink.Path(DatasetTopDiseases))
	require.Len(t, got, 2)
	assert.Equal(t, "D7", got[1][1])
}

func TestCSVSinkDocumentRows(t *testing.T) {
	sink, err := NewCSVSink(t.TempDir())
	require.NoError(t, err)

	report := &models.CleaningReport{RunID: "r1", DuplicateRecords: 1, ColumnsWithNullCount: map[string]int{"age": 0}}
	require.NoError(t, sink.Store(context.Background(), DatasetCleaningReport, []any{report}))

	got := readCSVFile(t, sink.Path(DatasetCleaningReport))
	require.Len(t, got, 2)
	assert.Equal(t, []string{"document"}, got[0])
	assert.Contains(t, got[1][0], `"run_id":"r1"`)
	assert.Contains(t, got[1][0], `"duplicate_records":1`)
}

func TestCSVSinkEmptyDataset(t *testing.T) {
	sink, err := NewCSVSink(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, sink.Store(context.Background(), DatasetWeeklyTrend, []any{}))

	info, err := os.Stat(sink.Path(DatasetWeeklyTrend))
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestCSVSinkMixedRowsFail(t *testing.T) {
	sink, err := NewCSVSink(t.TempDir())
	require.NoError(t, err)

	err = sink.Store(context.Background(), DatasetAgeCategory, []any{models.AgeCategoryRow{}, "oops"})

	assert.Error(t, err)
	_, statErr := os.Stat(sink.Path(DatasetAgeCategory))
	assert.True(t, os.IsNotExist(statErr), "a failed store leaves no partial file")
}

func TestCSVSinkCancelled(t *testing.T) {
	sink, err := NewCSVSink(t.TempDir())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, sink.Store(ctx, DatasetRaw, nil), context.Canceled)
}
