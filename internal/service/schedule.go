package service

import (
	"context"

	"matrix_orchestrator/internal/clock"
	"matrix_orchestrator/internal/models"
	"matrix_orchestrator/internal/schedule"
)

type ScheduleService struct {
	entries        []models.ScheduleEntry
	defaultProgram string
	clock          clock.Clock
}

func NewScheduleService(entries []models.ScheduleEntry, defaultProgram string, clk clock.Clock) *ScheduleService {
	if clk == nil {
		clk = clock.System{}
	}
	return &ScheduleService{entries: entries, defaultProgram: defaultProgram, clock: clk}
}

// View resolves the schedule at the current time. The returned slices are copies.
func (s *ScheduleService) View(ctx context.Context) (ScheduleView, error) {
	if err := ctx.Err(); err != nil {
		return ScheduleView{}, err
	}
	now := s.clock.Now()
	v := ScheduleView{
		Now:            now,
		DefaultProgram: s.defaultProgram,
		Resolved:       schedule.Resolve(now, s.entries, s.defaultProgram),
		Active:         []models.ScheduleEntry{},
		Entries:        append([]models.ScheduleEntry{}, s.entries...),
	}
	for _, e := range s.entries {
		if schedule.Eligible(e, now) {
			v.Active = append(v.Active, e)
		}
	}
	return v, nil
}
