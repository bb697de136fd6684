package models

import "time"

// Process record statuses.
const (
	ProcessRunning = "running"
	ProcessStopped = "stopped"
)

// ProcessRecord is the last known PID for a named display program.
type ProcessRecord struct {
	Name      string    `json:"name"`
	PID       int       `json:"pid"`
	Path      string    `json:"path"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}
