package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// PostgresSink persists datasets as JSONB documents in a single table.
type PostgresSink struct {
	db    *sql.DB
	runID string
}

// NewPostgresSink opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresSink. runID is stamped on every row.
func NewPostgresSink(dsn, runID string) (*PostgresSink, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	ps := &PostgresSink{db: db, runID: runID}
	if err := ps.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return ps, nil
}

func (ps *PostgresSink) migrate() error {
	_, err := ps.db.Exec(`
		CREATE TABLE IF NOT EXISTS datasets (
			dataset    VARCHAR(64)  NOT NULL,
			position   INTEGER      NOT NULL,
			run_id     VARCHAR(64)  NOT NULL,
			document   JSONB        NOT NULL,
			created_at TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
			PRIMARY KEY (dataset, position)
		);

		CREATE INDEX IF NOT EXISTS idx_datasets_run ON datasets(run_id);
	`)
	return err
}

// Store replaces every row of dataset inside one transaction.
func (ps *PostgresSink) Store(ctx context.Context, dataset string, rows []any) error {
	tx, err := ps.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM datasets WHERE dataset = $1", dataset); err != nil {
		return fmt.Errorf("postgres: clear %s: %w", dataset, err)
	}

	const batchSize = 50
	for i := 0; i < len(rows); i += batchSize {
		end := i + batchSize
		if end > len(rows) {
			end = len(rows)
		}
		if err := ps.insertBatch(ctx, tx, dataset, i, rows[i:end]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit %s: %w", dataset, err)
	}
	return nil
}

func (ps *PostgresSink) insertBatch(ctx context.Context, tx *sql.Tx, dataset string, offset int, batch []any) error {
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*4)

	for idx, row := range batch {
		doc, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("postgres: encode %s row %d: %w", dataset, offset+idx, err)
		}
		base := idx * 4
		valueStrings = append(valueStrings,
			fmt.Sprintf("($%d,$%d,$%d,$%d)", base+1, base+2, base+3, base+4))
		valueArgs = append(valueArgs, dataset, offset+idx, ps.runID, string(doc))
	}

	query := fmt.Sprintf(`
		INSERT INTO datasets (dataset, position, run_id, document)
		VALUES %s
	`, strings.Join(valueStrings, ","))

	if _, err := tx.ExecContext(ctx, query, valueArgs...); err != nil {
		return fmt.Errorf("postgres: insert %s batch at %d: %w", dataset, offset, err)
	}
	return nil
}

func (ps *PostgresSink) Close() error {
	return ps.db.Close()
}
