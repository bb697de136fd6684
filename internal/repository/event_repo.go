package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"matrix_orchestrator/internal/models"

	"github.com/google/uuid"
)

// EventSQLite is the display_events journal. Rows are only ever inserted,
// and deleted in bulk by Prune.
type EventSQLite struct {
	db *sql.DB
}

func NewEventSQLite(db *sql.DB) *EventSQLite { return &EventSQLite{db: db} }

// sqliteTimestamp is the TIMESTAMP text layout SQLite compares lexically.
const sqliteTimestamp = "2006-01-02 15:04:05"

const (
	insertEventSQL = `
		INSERT INTO display_events (id, occurred_at, type, program, message, meta)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	selectEventsSQL = `SELECT id, occurred_at, type, program, message, meta FROM display_events`
	pruneEventsSQL  = `DELETE FROM display_events WHERE occurred_at < ?`
)

func sqliteTime(t time.Time) string { return t.UTC().Format(sqliteTimestamp) }

func normalizeType(typ string) string { return strings.ToUpper(strings.TrimSpace(typ)) }

// Append inserts e, assigning an id and the current time when they are empty.
func (r *EventSQLite) Append(ctx context.Context, e models.DisplayEvent) error {
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}

	var meta *string
	if e.Metadata != nil {
		b, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata of %s event: %w", e.Type, err)
		}
		s := string(b)
		meta = &s
	}

	_, err := r.db.ExecContext(ctx, insertEventSQL,
		e.EventID,
		sqliteTime(e.OccurredAt),
		normalizeType(e.Type),
		e.Program,
		e.Description,
		meta,
	)
	if err != nil {
		return fmt.Errorf("insert %s event: %w", e.Type, err)
	}
	return nil
}

// List returns events in [from, to] with the given type, oldest first.
// Zero bounds and an empty type do not filter.
func (r *EventSQLite) List(ctx context.Context, from, to time.Time, typ string) ([]models.DisplayEvent, error) {
	var (
		conds []string
		args  []any
	)
	if !from.IsZero() {
		conds = append(conds, "occurred_at >= ?")
		args = append(args, sqliteTime(from))
	}
	if !to.IsZero() {
		conds = append(conds, "occurred_at <= ?")
		args = append(args, sqliteTime(to))
	}
	if typ = normalizeType(typ); typ != "" {
		conds = append(conds, "type = ?")
		args = append(args, typ)
	}

	q := selectEventsSQL
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY occurred_at ASC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query display events: %w", err)
	}
	defer rows.Close()

	out := make([]models.DisplayEvent, 0, 64)
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate display events: %w", err)
	}
	return out, nil
}

func scanEvent(rows *sql.Rows) (models.DisplayEvent, error) {
	var (
		ev   models.DisplayEvent
		meta sql.NullString
	)
	if err := rows.Scan(&ev.EventID, &ev.OccurredAt, &ev.Type, &ev.Program, &ev.Description, &meta); err != nil {
		return ev, fmt.Errorf("scan display event: %w", err)
	}
	ev.OccurredAt = ev.OccurredAt.UTC()

	if meta.Valid && meta.String != "" {
		var v any
		if err := json.Unmarshal([]byte(meta.String), &v); err == nil {
			ev.Metadata = v
		} else {
			ev.Metadata = meta.String // raw text if it is not JSON
		}
	}
	return ev, nil
}

// Prune deletes events that occurred before cutoff and reports how many.
func (r *EventSQLite) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, pruneEventsSQL, sqliteTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("prune display events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune display events: %w", err)
	}
	return n, nil
}
