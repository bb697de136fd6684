package schedule

import (
	"testing"
	"time"

	"matrix_orchestrator/internal/models"
)

const defaultProgram = "clock"

func at(y int, m time.Month, d, hh, mm, ss int) time.Time {
	return time.Date(y, m, d, hh, mm, ss, 0, time.Local)
}

func TestResolve_HolidayPriorityAndFallback(t *testing.T) {
	t.Parallel()

	entries := []models.ScheduleEntry{
		{Month: 7, Day: 4, DurationHours: 24, ProgramName: "july4", Priority: 5},
		{Month: 7, Day: 4, DurationHours: 12, ProgramName: "summer", Priority: 1},
	}

	cases := []struct {
		name string
		now  time.Time
		want string
	}{
		{"both eligible, higher priority wins", at(2025, time.July, 4, 10, 0, 0), "july4"},
		{"short entry expired, long one still eligible", at(2025, time.July, 4, 13, 0, 0), "july4"},
		{"next day neither eligible", at(2025, time.July, 5, 0, 30, 0), defaultProgram},
		{"other month", at(2025, time.August, 4, 10, 0, 0), defaultProgram},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Resolve(tc.now, entries, defaultProgram); got != tc.want {
				t.Fatalf("Resolve(%v) = %q; want %q", tc.now, got, tc.want)
			}
		})
	}
}

func TestResolve_Boundary(t *testing.T) {
	t.Parallel()

	entries := []models.ScheduleEntry{{Month: 12, Day: 25, DurationHours: 24, ProgramName: "winter", Priority: 10}}

	if got := Resolve(at(2025, time.December, 25, 0, 0, 0), entries, defaultProgram); got != "winter" {
		t.Fatalf("at midnight: got %q, want winter", got)
	}
	if got := Resolve(at(2025, time.December, 25, 23, 59, 59), entries, defaultProgram); got != "winter" {
		t.Fatalf("at 23:59:59: got %q, want winter", got)
	}
	if got := Resolve(at(2025, time.December, 26, 0, 0, 1), entries, defaultProgram); got != defaultProgram {
		t.Fatalf("at 12-26 00:00:01: got %q, want %q", got, defaultProgram)
	}
}

func TestResolve_DurationCutsOffWithinTheDay(t *testing.T) {
	t.Parallel()

	entries := []models.ScheduleEntry{{Month: 10, Day: 31, DurationHours: 6, ProgramName: "halloween", Priority: 5}}

	if got := Resolve(at(2025, time.October, 31, 5, 59, 59), entries, defaultProgram); got != "halloween" {
		t.Fatalf("got %q, want halloween", got)
	}
	if got := Resolve(at(2025, time.October, 31, 6, 0, 0), entries, defaultProgram); got != defaultProgram {
		t.Fatalf("window end is exclusive: got %q", got)
	}
}

func TestResolve_EqualPriorityFirstEntryWins(t *testing.T) {
	t.Parallel()

	entries := []models.ScheduleEntry{
		{Month: 3, Day: 17, DurationHours: 24, ProgramName: "first", Priority: 3},
		{Month: 3, Day: 17, DurationHours: 24, ProgramName: "second", Priority: 3},
		{Month: 3, Day: 17, DurationHours: 24, ProgramName: "lower", Priority: 2},
	}
	now := at(2025, time.March, 17, 12, 0, 0)
	for i := 0; i < 10; i++ {
		if got := Resolve(now, entries, defaultProgram); got != "first" {
			t.Fatalf("iteration %d: got %q, want first", i, got)
		}
	}
}

func TestResolve_EmptyEntriesAlwaysDefault(t *testing.T) {
	t.Parallel()

	start := at(2025, time.January, 1, 0, 0, 0)
	for h := 0; h < 24*366; h += 7 {
		now := start.Add(time.Duration(h) * time.Hour)
		if got := Resolve(now, nil, defaultProgram); got != defaultProgram {
			t.Fatalf("Resolve(%v, nil) = %q", now, got)
		}
	}
}

func TestProgramNames_DedupesInOrder(t *testing.T) {
	t.Parallel()

	entries := []models.ScheduleEntry{
		{ProgramName: "winter"}, {ProgramName: "halloween"}, {ProgramName: "winter"},
	}
	got := ProgramNames(entries)
	if len(got) != 2 || got[0] != "winter" || got[1] != "halloween" {
		t.Fatalf("unexpected names: %v", got)
	}
}
