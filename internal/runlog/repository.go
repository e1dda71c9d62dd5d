// Package runlog keeps an optional Postgres history of report runs and
// their data-quality findings. The pipeline works identically without
// it; registry failures are logged by the caller, never fatal.
package runlog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gannetworld/gannet-reports/internal/pipeline"
	"github.com/gannetworld/gannet-reports/internal/platform/db"
)

const uniqueViolation = "23505"

// Schema creates the runlog tables. Executed at startup when a DSN is
// configured.
const Schema = `
CREATE TABLE IF NOT EXISTS report_runs (
    id          UUID PRIMARY KEY,
    week        INT NOT NULL,
    year        INT NOT NULL,
    started_at  TIMESTAMPTZ NOT NULL,
    finished_at TIMESTAMPTZ NOT NULL,
    row_count   INT NOT NULL,
    entity_count INT NOT NULL
);
CREATE TABLE IF NOT EXISTS report_findings (
    run_id      UUID NOT NULL REFERENCES report_runs(id) ON DELETE CASCADE,
    company     TEXT NOT NULL,
    folio       BIGINT NOT NULL,
    message     TEXT NOT NULL,
    salesperson TEXT NOT NULL DEFAULT '',
    sale_date   DATE
);
`

// Store persists run history through a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs the registry and ensures the schema exists.
func NewStore(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return nil, fmt.Errorf("runlog: ensure schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// RecordRun inserts one run and its findings atomically. Re-recording
// the same run id is a no-op rather than an error.
func (s *Store) RecordRun(ctx context.Context, run *pipeline.RunResult) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO report_runs (id, week, year, started_at, finished_at, row_count, entity_count)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			run.ID, run.Week, run.Year, run.StartedAt, run.FinishedAt, len(run.Rows()), len(run.Entities))
		if err != nil {
			if isUniqueViolation(err) {
				return nil
			}
			return fmt.Errorf("runlog: insert run: %w", err)
		}
		for _, finding := range run.Findings() {
			if _, err := tx.Exec(ctx, `
				INSERT INTO report_findings (run_id, company, folio, message, salesperson, sale_date)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				run.ID, finding.Company, finding.Folio, finding.Message, finding.Salesperson, finding.SaleDate); err != nil {
				return fmt.Errorf("runlog: insert finding: %w", err)
			}
		}
		return nil
	})
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// RunSummary is one row of the run history listing.
type RunSummary struct {
	ID          string `json:"id"`
	Week        int    `json:"week"`
	Year        int    `json:"year"`
	RowCount    int    `json:"row_count"`
	EntityCount int    `json:"entity_count"`
}

// RecentRuns lists the most recent runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, week, year, row_count, entity_count
		FROM report_runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("runlog: list runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.ID, &r.Week, &r.Year, &r.RowCount, &r.EntityCount); err != nil {
			return nil, fmt.Errorf("runlog: scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
