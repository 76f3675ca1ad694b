package storage

import "context"

// Dataset names written by the pipeline.
const (
	DatasetRaw            = "raw"
	DatasetCleaned        = "cleaned"
	DatasetCleaningReport = "cleaning_report"
	DatasetGenderRatio    = "disease_gender_ratio"
	DatasetTopDiseases    = "most_common_diseases"
	DatasetAgeCategory    = "age_category"
	DatasetSeniorFlag     = "senior_citizen_flag"
	DatasetWeeklyTrend    = "disease_trend_over_the_week"
)

// Sink is the interface any storage backend must satisfy. Store replaces the
// dataset's previous contents with rows.
type Sink interface {
	Store(ctx context.Context, dataset string, rows []any) error
	Close() error
}

// Tabular rows can be flattened into CSV columns.
type Tabular interface {
	Columns() []string
	Values() []string
}

// Extended rows carry pass-through columns beyond their fixed Columns. The
// CSV sink appends the sorted union of their keys to the header.
type Extended interface {
	ExtraFields() map[string]string
}
