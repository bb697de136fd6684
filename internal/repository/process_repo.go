package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"matrix_orchestrator/internal/models"
)

type ProcessSQLite struct {
	db *sql.DB
}

func NewProcessSQLite(db *sql.DB) *ProcessSQLite {
	return &ProcessSQLite{db: db}
}

const (
	upsertProcessSQL = `
		INSERT INTO process_records (name, pid, path, status, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			pid=excluded.pid,
			path=excluded.path,
			status=excluded.status,
			updated_at=excluded.updated_at
	`

	selectProcessesSQL = `SELECT name, pid, path, status, updated_at FROM process_records ORDER BY name ASC`

	deleteProcessesSQL = `DELETE FROM process_records`
)

// Save inserts or replaces the record for rec.Name.
func (r *ProcessSQLite) Save(ctx context.Context, rec models.ProcessRecord) error {
	ts := rec.UpdatedAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	} else {
		ts = ts.UTC()
	}
	_, err := r.db.ExecContext(ctx, upsertProcessSQL, rec.Name, rec.PID, rec.Path, rec.Status, ts)
	if err != nil {
		return fmt.Errorf("save process record %q: %w", rec.Name, err)
	}
	return nil
}

// List returns all records ordered by name.
func (r *ProcessSQLite) List(ctx context.Context) ([]models.ProcessRecord, error) {
	rows, err := r.db.QueryContext(ctx, selectProcessesSQL)
	if err != nil {
		return nil, fmt.Errorf("list process records: %w", err)
	}
	defer rows.Close()

	var out []models.ProcessRecord
	for rows.Next() {
		var rec models.ProcessRecord
		if err := rows.Scan(&rec.Name, &rec.PID, &rec.Path, &rec.Status, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan process record: %w", err)
		}
		rec.UpdatedAt = rec.UpdatedAt.UTC()
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteAll clears the table after a startup sweep.
func (r *ProcessSQLite) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, deleteProcessesSQL); err != nil {
		return fmt.Errorf("clear process records: %w", err)
	}
	return nil
}
