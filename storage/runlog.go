package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"healthcare-analytics/models"
)

// Run statuses recorded in the run log.
const (
	RunRunning   = "running"
	RunSucceeded = "succeeded"
	RunDegraded  = "degraded"
	RunFailed    = "failed"
)

// ErrNoHistory is returned when no successful run has been recorded yet.
var ErrNoHistory = errors.New("runlog: no successful run recorded")

// RunRecord is one row of the run history.
type RunRecord struct {
	ID               string
	FileDate         time.Time
	Status           string
	InputRecords     int
	CleanedRecords   int
	DuplicateRecords int
	Error            string
	StartedAt        time.Time
	FinishedAt       sql.NullTime
}

// RunLog keeps the history of batch runs in SQLite and derives the next
// date to process from it.
type RunLog struct {
	db *sql.DB
}

// OpenRunLog opens (or creates) the SQLite database at path.
func OpenRunLog(path string) (*RunLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("runlog: create dir: %w", err)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("runlog: open: %w", err)
	}
	// sqlite serialises writers; one connection avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		file_date TEXT NOT NULL,
		status TEXT NOT NULL,
		input_records INTEGER NOT NULL DEFAULT 0,
		cleaned_records INTEGER NOT NULL DEFAULT 0,
		duplicate_records INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		started_at DATETIME NOT NULL,
		finished_at DATETIME
	);
	`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("runlog: migrate: %w", err)
	}
	return &RunLog{db: db}, nil
}

// Start records a run as running.
func (l *RunLog) Start(ctx context.Context, runID string, fileDate time.Time) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO runs (id, file_date, status, started_at) VALUES (?, ?, ?, ?)`,
		runID, fileDate.Format(models.DateLayout), RunRunning, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("runlog: start %s: %w", runID, err)
	}
	return nil
}

// Finish stores the final status of a run. report may be nil when the run
// failed before cleaning; runErr may be nil on success.
func (l *RunLog) Finish(ctx context.Context, runID, status string, report *models.CleaningReport, runErr error) error {
	var input, cleaned, dups int
	if report != nil {
		input, cleaned, dups = report.InputRecords, report.CleanedRecords, report.DuplicateRecords
	}
	msg := ""
	if runErr != nil {
		msg = runErr.Error()
	}

	_, err := l.db.ExecContext(ctx, `
		UPDATE runs
		SET status = ?, input_records = ?, cleaned_records = ?, duplicate_records = ?, error = ?, finished_at = ?
		WHERE id = ?`,
		status, input, cleaned, dups, msg, time.Now().UTC(), runID)
	if err != nil {
		return fmt.Errorf("runlog: finish %s: %w", runID, err)
	}
	return nil
}

// NextFileDate returns the day after the latest succeeded run. Degraded,
// failed and unfinished runs leave their date to be processed again.
func (l *RunLog) NextFileDate(ctx context.Context) (time.Time, error) {
	var last sql.NullString
	err := l.db.QueryRowContext(ctx,
		`SELECT MAX(file_date) FROM runs WHERE status = ?`, RunSucceeded).Scan(&last)
	if err != nil {
		return time.Time{}, fmt.Errorf("runlog: last date: %w", err)
	}
	if !last.Valid {
		return time.Time{}, ErrNoHistory
	}
	d, err := time.Parse(models.DateLayout, last.String)
	if err != nil {
		return time.Time{}, fmt.Errorf("runlog: parse %q: %w", last.String, err)
	}
	return d.AddDate(0, 0, 1), nil
}

// Get returns one run by id.
func (l *RunLog) Get(ctx context.Context, runID string) (*RunRecord, error) {
	var r RunRecord
	var fileDate string
	err := l.db.QueryRowContext(ctx, `
		SELECT id, file_date, status, input_records, cleaned_records, duplicate_records, error, started_at, finished_at
		FROM runs WHERE id = ?`, runID).Scan(
		&r.ID, &fileDate, &r.Status, &r.InputRecords, &r.CleanedRecords,
		&r.DuplicateRecords, &r.Error, &r.StartedAt, &r.FinishedAt)
	if err != nil {
		return nil, fmt.Errorf("runlog: get %s: %w", runID, err)
	}
	if r.FileDate, err = time.Parse(models.DateLayout, fileDate); err != nil {
		return nil, fmt.Errorf("runlog: parse %q: %w", fileDate, err)
	}
	return &r, nil
}

func (l *RunLog) Close() error {
	return l.db.Close()
}
