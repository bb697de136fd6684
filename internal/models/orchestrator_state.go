package models

import "time"

// Weather interrupt states.
const (
	WeatherNormal  = "NORMAL"
	WeatherShowing = "SHOWING_WEATHER"
)

// OrchestratorState is what the orchestrator believes is on the matrix.
// Only the orchestrator loop mutates it; everyone else gets copies.
type OrchestratorState struct {
	CurrentProgram   string    `json:"current_program"`
	TargetProgram    string    `json:"target_program"` // resolved from the schedule, may differ after a fallback
	PID              int       `json:"pid,omitempty"`
	ProgramStartTime time.Time `json:"program_start_time,omitempty"`
	LastWeatherCheck time.Time `json:"last_weather_check,omitempty"`
	WeatherState     string    `json:"weather_state"`
	FailedAttempts   int       `json:"failed_attempts,omitempty"`
	NextRetryAt      time.Time `json:"next_retry_at,omitempty"`
	UpdatedAt        time.Time `json:"updated_at"`
}
