package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"matrix_orchestrator/internal/models"
	"matrix_orchestrator/internal/repository"
)

type EventLogService struct {
	eventRepo repository.EventRepo
}

func NewEventLogService(eventRepo repository.EventRepo) *EventLogService {
	return &EventLogService{eventRepo: eventRepo}
}

var (
	ErrInvalidTimeRange = errors.New("invalid time range: from must be <= to")
	ErrUnknownEventType = errors.New("unknown event type")
)

var knownEventTypes = map[string]bool{
	models.EventProgramStart:   true,
	models.EventProgramStop:    true,
	models.EventStartFailed:    true,
	models.EventCrash:          true,
	models.EventHolidayStart:   true,
	models.EventHolidayEnd:     true,
	models.EventRetryExhausted: true,
	models.EventWeatherStart:   true,
	models.EventWeatherEnd:     true,
}

// normalizeToUTC returns t in UTC, preserving zero time values.
func normalizeToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

// normalizeEventType trims spaces and uppercases the event type filter.
func normalizeEventType(s string) string {
	return strings.TrimSpace(strings.ToUpper(s))
}

// normalizeAndValidateFilter prepares query parameters and validates the time range.
func normalizeAndValidateFilter(f LogFilter) (time.Time, time.Time, string, error) {
	from := normalizeToUTC(f.From)
	to := normalizeToUTC(f.To)

	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return time.Time{}, time.Time{}, "", ErrInvalidTimeRange
	}

	eventType := normalizeEventType(f.Type)
	if eventType != "" && !knownEventTypes[eventType] {
		return time.Time{}, time.Time{}, "", fmt.Errorf("%w: %q", ErrUnknownEventType, eventType)
	}
	return from, to, eventType, nil
}

// List returns journal entries matching f, oldest first. With a Limit only
// the newest Limit entries are returned.
func (s *EventLogService) List(ctx context.Context, f LogFilter) ([]models.DisplayEvent, error) {
	from, to, typ, err := normalizeAndValidateFilter(f)
	if err != nil {
		return nil, err
	}
	events, err := s.eventRepo.List(ctx, from, to, typ)
	if err != nil {
		return nil, fmt.Errorf("list display events: %w", err)
	}
	return tail(byProgram(events, strings.TrimSpace(f.Program)), f.Limit), nil
}

func byProgram(events []models.DisplayEvent, program string) []models.DisplayEvent {
	if program == "" {
		return events
	}
	out := events[:0:0]
	for _, e := range events {
		if e.Program == program {
			out = append(out, e)
		}
	}
	return out
}

// tail keeps the last n events; n <= 0 keeps everything.
func tail(events []models.DisplayEvent, n int) []models.DisplayEvent {
	if n <= 0 || len(events) <= n {
		return events
	}
	return events[len(events)-n:]
}

// Prune drops journal entries older than keep, counted back from now.
// keep <= 0 keeps everything.
func (s *EventLogService) Prune(ctx context.Context, now time.Time, keep time.Duration) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	return s.eventRepo.Prune(ctx, now.Add(-keep).UTC())
}
