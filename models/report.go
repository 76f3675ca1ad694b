package models

import "time"

// CleaningReport summarises one cleaning pass. It is built once per run and
// written once to the sink.
type CleaningReport struct {
	RunID                string         `json:"run_id" bson:"run_id"`
	MissingColumns       []string       `json:"missing_columns" bson:"missing_columns"`
	DuplicateRecords     int            `json:"duplicate_records" bson:"duplicate_records"`
	ColumnsWithNullCount map[string]int `json:"columns_with_null_count" bson:"columns_with_null_count"`
	CastFailures         map[string]int `json:"cast_failures" bson:"cast_failures"`
	InputRecords         int            `json:"input_records" bson:"input_records"`
	CleanedRecords       int            `json:"cleaned_records" bson:"cleaned_records"`
	DroppedRecords       int            `json:"dropped_records" bson:"dropped_records"`
	NullPolicy           NullPolicy     `json:"null_policy" bson:"null_policy"`
	CreatedAt            time.Time      `json:"created_at" bson:"created_at"`
}
