package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Run is one executed query in the run log.
type Run struct {
	ID          string // trace id of the run
	Seq         int64  // assigned by RecordRun
	Document    string
	Fingerprint string
	Canonical   string
	Status      string // "ok" or "error"
	ErrorCode   string
	Items       int
}

// RecordRun appends r to the run log and returns it with Seq assigned.
// Recording the same ID twice is an error.
func (s *Store) RecordRun(ctx context.Context, r Run) (Run, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("record run: %w", err)
	}
	defer tx.Rollback()

	if err := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(seq), 0) + 1 FROM runs").Scan(&r.Seq); err != nil {
		return Run{}, fmt.Errorf("record run: next seq: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, seq, document, fingerprint, canonical, status, error_code, items)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.Seq, r.Document, r.Fingerprint, r.Canonical, r.Status, r.ErrorCode, r.Items)
	if err != nil {
		return Run{}, fmt.Errorf("record run: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("record run: %w", err)
	}
	return r, nil
}

// Runs returns the run log in seq order. A non-empty fingerprint restricts
// it to runs of that query model.
//
// Returns an empty slice (not nil) if no runs match.
func (s *Store) Runs(ctx context.Context, fingerprint string) ([]Run, error) {
	var (
		rows *sql.Rows
		err  error
	)
	const columns = "id, seq, document, fingerprint, canonical, status, error_code, items"
	if fingerprint == "" {
		rows, err = s.db.QueryContext(ctx, "SELECT "+columns+" FROM runs ORDER BY seq ASC, id COLLATE BINARY ASC")
	} else {
		rows, err = s.db.QueryContext(ctx, "SELECT "+columns+" FROM runs WHERE fingerprint = ? ORDER BY seq ASC, id COLLATE BINARY ASC",
			fingerprint)
	}
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Seq, &r.Document, &r.Fingerprint, &r.Canonical, &r.Status, &r.ErrorCode, &r.Items); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}
