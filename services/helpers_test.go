package services

import (
	"context"
	"io"
	"sync"

	"healthcare-analytics/models"
	"healthcare-analytics/utils"
)

func newTestLogger() *utils.Logger { return utils.NewLoggerWithOptions(io.Discard, "error", "text") }

var healthColumns = []string{
	models.FieldPatientID, models.FieldAge, models.FieldGender,
	models.FieldDiagnosisCode, models.FieldDiagnosisDescription, models.FieldDiagnosisDate,
}

// row builds a raw row in healthColumns order.
func row(values ...string) models.RawRow {
	r := make(models.RawRow, len(values))
	for i, v := range values {
		r[healthColumns[i]] = v
	}
	return r
}

func batchOf(rows ...models.RawRow) models.RawBatch {
	return models.RawBatch{Source: "test.csv", Columns: healthColumns, Rows: rows}
}

// diabetesBatch is three events of one disease, the last an exact duplicate
// of the first. 2023-08-01 is a Tuesday.
func diabetesBatch() models.RawBatch {
	return batchOf(
		row("P1", "41", "M", "D1", "Diabetes", "2023-08-01"),
		row("P2", "65", "F", "D1", "Diabetes", "2023-08-01"),
		row("P1", "41", "M", "D1", "Diabetes", "2023-08-01"),
	)
}

func rec(id string, age int, gender, code, desc, date string) *models.Record {
	r := &models.Record{
		PatientID:            models.Ptr(id),
		Age:                  models.Ptr(age),
		Gender:               models.Ptr(gender),
		DiagnosisCode:        models.Ptr(code),
		DiagnosisDescription: models.Ptr(desc),
	}
	if date != "" {
		d, err := parseDate(date)
		if err != nil {
			panic(err)
		}
		r.DiagnosisDate = &d
	}
	return r
}

// memSink keeps stored datasets in memory and fails the datasets listed in
// fail. onStore, when set, runs before each write.
type memSink struct {
	mu       sync.Mutex
	datasets map[string][]any
	calls    map[string]int
	fail     map[string]error
	onStore  func(dataset string)
}

func newMemSink() *memSink {
	return &memSink{
		datasets: make(map[string][]any),
		calls:    make(map[string]int),
		fail:     make(map[string]error),
	}
}

func (m *memSink) Store(_ context.Context, dataset string, rows []any) error {
	if m.onStore != nil {
		m.onStore(dataset)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[dataset]++
	if err := m.fail[dataset]; err != nil {
		return err
	}
	m.datasets[dataset] = rows
	return nil
}

func (m *memSink) Close() error { return nil }

func (m *memSink) stored(dataset string) ([]any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows, ok := m.datasets[dataset]
	return rows, ok
}
