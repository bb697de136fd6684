package schedule

import (
	"time"

	"matrix_orchestrator/internal/models"
)

// Eligible reports whether e applies at now: same month and day, and now lies
// in [local midnight, local midnight + DurationHours).
func Eligible(e models.ScheduleEntry, now time.Time) bool {
	if int(now.Month()) != e.Month || now.Day() != e.Day {
		return false
	}
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	end := midnight.Add(time.Duration(e.DurationHours) * time.Hour)
	return !now.Before(midnight) && now.Before(end)
}

// Resolve returns the program that should run at now. The eligible entry with
// the highest priority wins; on equal priority the earlier entry wins. With no
// eligible entry the default program is returned.
func Resolve(now time.Time, entries []models.ScheduleEntry, defaultProgram string) string {
	best := -1
	for i, e := range entries {
		if !Eligible(e, now) {
			continue
		}
		if best < 0 || e.Priority > entries[best].Priority {
			best = i
		}
	}
	if best < 0 {
		return defaultProgram
	}
	return entries[best].ProgramName
}

// ProgramNames lists the distinct program names in entries, in file order.
func ProgramNames(entries []models.ScheduleEntry) []string {
	seen := make(map[string]bool, len(entries))
	var out []string
	for _, e := range entries {
		if seen[e.ProgramName] {
			continue
		}
		seen[e.ProgramName] = true
		out = append(out, e.ProgramName)
	}
	return out
}
