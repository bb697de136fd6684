package models

// ScheduleEntry maps a calendar day to a display program.
type ScheduleEntry struct {
	Month         int    `json:"month"` // 1-12
	Day           int    `json:"day"`   // 1-31
	DurationHours int    `json:"duration_hours"`
	ProgramName   string `json:"program_name"`
	Priority      int    `json:"priority"` // higher wins
}
