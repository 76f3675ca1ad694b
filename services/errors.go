package services

import (
	"errors"
	"fmt"
	"strings"
)

// ErrDegraded marks a run whose datasets were not all stored.
var ErrDegraded = errors.New("run degraded: one or more datasets failed to store")

// SchemaError is raised when mandatory columns are absent from the input
// schema. It is fatal to the batch.
type SchemaError struct {
	Source  string
	Missing []string
}

func (e *SchemaError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("schema: %s is missing mandatory columns: %s", e.Source, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("schema: missing mandatory columns: %s", strings.Join(e.Missing, ", "))
}

// CastError describes a value that could not be cast to its declared type.
// It never halts the pipeline; the value degrades to null.
type CastError struct {
	Row   int
	Field string
	Value string
	Err   error
}

func (e *CastError) Error() string {
	return fmt.Sprintf("cast: row %d field %s value %q: %v", e.Row, e.Field, e.Value, e.Err)
}

func (e *CastError) Unwrap() error { return e.Err }

// SinkError records a failed store of one dataset.
type SinkError struct {
	Dataset string
	Err     error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("sink: store %s: %v", e.Dataset, e.Err)
}

func (e *SinkError) Unwrap() error { return e.Err }
