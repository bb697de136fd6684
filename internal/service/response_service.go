package service

import (
	"time"

	"matrix_orchestrator/internal/models"
)

// LogFilter supports journal filtering by time range and type.
type LogFilter struct {
	From time.Time // inclusive; zero means no lower bound
	To   time.Time // inclusive; zero means no upper bound
	Type string    // "" or one of the models.Event* types

	Program string // exact program name, "" for all
	Limit   int    // keep only the newest Limit events; 0 for all
}

// ScheduleView is the loaded schedule plus what it resolves to right now.
type ScheduleView struct {
	Now            time.Time              `json:"now"`
	DefaultProgram string                 `json:"default_program"`
	Resolved       string                 `json:"resolved_program"`
	Active         []models.ScheduleEntry `json:"active_entries"`
	Entries        []models.ScheduleEntry `json:"entries"`
}
