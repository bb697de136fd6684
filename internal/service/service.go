package service

import (
	"context"
	"time"

	"matrix_orchestrator/internal/clock"
	"matrix_orchestrator/internal/logger"
	"matrix_orchestrator/internal/models"
	"matrix_orchestrator/internal/repository"
	"matrix_orchestrator/internal/weather"
)

type Authorization interface {
	GenerateToken(username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Orchestrator runs the scheduling loop until ctx is canceled.
type Orchestrator interface {
	Run(ctx context.Context, interval time.Duration)
}

// Monitoring exposes the read-only orchestrator snapshot.
type Monitoring interface {
	GetState(ctx context.Context) (models.OrchestratorState, error)
}

// EventLog exposes the display event journal with filtering.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.DisplayEvent, error)
	Prune(ctx context.Context, now time.Time, keep time.Duration) (int64, error)
}

// Schedule exposes the loaded holiday schedule.
type Schedule interface {
	View(ctx context.Context) (ScheduleView, error)
}

// Service aggregates all sub-services.
type Service struct {
	Orchestrator
	Monitoring
	EventLog
	Schedule
	Authorization
}

// Deps carries everything the services need besides the repositories.
type Deps struct {
	Supervisor     ProcessSupervisor
	Weather        *weather.Controller
	Clock          clock.Clock
	Entries        []models.ScheduleEntry
	DefaultProgram string
	Retry          RetryPolicy
	Auth           AuthConfig
	Log            *logger.Logger
}

// NewService wires the repository layer and the process supervisor into
// concrete services. The orchestrator publishes into the store Monitoring reads.
func NewService(repos *repository.Repository, d Deps) *Service {
	status := NewStatusStore()
	return &Service{
		Orchestrator: NewOrchestratorService(d.Supervisor, d.Weather, d.Clock, d.Entries,
			d.DefaultProgram, d.Retry, repos.EventRepo, status, d.Log),
		Monitoring:    NewMonitoringService(status),
		EventLog:      NewEventLogService(repos.EventRepo),
		Schedule:      NewScheduleService(d.Entries, d.DefaultProgram, d.Clock),
		Authorization: NewAuthService(repos.Auth, d.Auth),
	}
}
