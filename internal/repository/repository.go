package repository

import (
	"context"
	"database/sql"
	"time"

	"matrix_orchestrator/internal/models"
)

type Authorization interface {
	GetByUsername(username string) (*models.Operator, error)
}

type EventRepo interface {
	Append(ctx context.Context, e models.DisplayEvent) error
	List(ctx context.Context, from, to time.Time, typ string) ([]models.DisplayEvent, error)
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

type ProcessRepo interface {
	Save(ctx context.Context, rec models.ProcessRecord) error
	List(ctx context.Context) ([]models.ProcessRecord, error)
	DeleteAll(ctx context.Context) error
}

type Repository struct {
	EventRepo   EventRepo
	ProcessRepo ProcessRepo
	Auth        Authorization
}

// NewRepository wires SQLite-backed repositories. A nil db gives repositories
// that accept writes and remember nothing, so the display keeps running when
// the database cannot be opened.
func NewRepository(db *sql.DB, operators []models.Operator) *Repository {
	if db == nil {
		return &Repository{
			EventRepo:   nopEventRepo{},
			ProcessRepo: nopProcessRepo{},
			Auth:        NewOperatorStore(operators),
		}
	}
	return &Repository{
		EventRepo:   NewEventSQLite(db),
		ProcessRepo: NewProcessSQLite(db),
		Auth:        NewOperatorStore(operators),
	}
}

type nopEventRepo struct{}

func (nopEventRepo) Append(context.Context, models.DisplayEvent) error { return nil }
func (nopEventRepo) List(context.Context, time.Time, time.Time, string) ([]models.DisplayEvent, error) {
	return nil, nil
}
func (nopEventRepo) Prune(context.Context, time.Time) (int64, error) { return 0, nil }

type nopProcessRepo struct{}

func (nopProcessRepo) Save(context.Context, models.ProcessRecord) error     { return nil }
func (nopProcessRepo) List(context.Context) ([]models.ProcessRecord, error) { return nil, nil }
func (nopProcessRepo) DeleteAll(context.Context) error                      { return nil }
