package models

import "time"

// Display event types recorded in the journal.
const (
	EventProgramStart   = "PROGRAM_START"
	EventProgramStop    = "PROGRAM_STOP"
	EventStartFailed    = "START_FAILED"
	EventCrash          = "CRASH"
	EventHolidayStart   = "HOLIDAY_START"
	EventHolidayEnd     = "HOLIDAY_END"
	EventRetryExhausted = "RETRY_EXHAUSTED"
	EventWeatherStart   = "WEATHER_START"
	EventWeatherEnd     = "WEATHER_END"
)

// DisplayEvent is a single journal entry.
type DisplayEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`
	Program     string    `json:"program,omitempty"`
	Description string    `json:"description"` // human-readable
	Metadata    any       `json:"metadata,omitempty"`
}
