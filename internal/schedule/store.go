package schedule

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"matrix_orchestrator/internal/logger"
	"matrix_orchestrator/internal/models"
)

const (
	fieldCount     = 4
	commentPrefix  = "#"
	fieldSeparator = ","
	dateSeparator  = "-"
)

// leapYear lets 02-29 pass calendar validation.
const leapYear = 2024

var (
	errFieldCount   = errors.New("expected MM-DD,duration_hours,program_name,priority")
	errDate         = errors.New("invalid MM-DD date")
	errDuration     = errors.New("duration_hours must be a positive integer")
	errProgramName  = errors.New("program_name must be a bare identifier")
	errPriority     = errors.New("priority must be an integer")
	errCalendarDate = errors.New("date does not exist in the calendar")
)

// Store loads holiday schedule files.
type Store struct {
	log *logger.Logger
}

func NewStore(log *logger.Logger) *Store {
	if log == nil {
		log = logger.Nop()
	}
	return &Store{log: log}
}

// Load parses the schedule file at path. Blank lines and '#' comments are
// skipped; malformed lines are logged and dropped. A missing file yields an
// empty schedule and no error.
func (s *Store) Load(path string) ([]models.ScheduleEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.log.Warnw("schedule_file_missing", "path", path)
			return nil, nil
		}
		return nil, fmt.Errorf("open schedule %q: %w", path, err)
	}
	defer f.Close()

	var entries []models.ScheduleEntry
	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, commentPrefix) {
			continue
		}
		e, err := parseLine(line)
		if err != nil {
			s.log.Warnw("schedule_line_skipped", "path", path, "line", lineNo, "text", line, "err", err)
			continue
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return entries, fmt.Errorf("read schedule %q: %w", path, err)
	}

	s.log.Infow("schedule_loaded", "path", path, "entries", len(entries))
	return entries, nil
}

// parseLine parses "MM-DD,duration_hours,program_name,priority".
func parseLine(line string) (models.ScheduleEntry, error) {
	fields := strings.Split(line, fieldSeparator)
	if len(fields) != fieldCount {
		return models.ScheduleEntry{}, errFieldCount
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	month, day, err := parseMonthDay(fields[0])
	if err != nil {
		return models.ScheduleEntry{}, err
	}

	hours, err := strconv.Atoi(fields[1])
	if err != nil || hours <= 0 {
		return models.ScheduleEntry{}, errDuration
	}

	name := fields[2]
	if name == "" || strings.ContainsAny(name, "/\\ \t") || name == "." || name == ".." {
		return models.ScheduleEntry{}, errProgramName
	}

	priority, err := strconv.Atoi(fields[3])
	if err != nil {
		return models.ScheduleEntry{}, errPriority
	}

	return models.ScheduleEntry{
		Month:         month,
		Day:           day,
		DurationHours: hours,
		ProgramName:   name,
		Priority:      priority,
	}, nil
}

func parseMonthDay(s string) (int, int, error) {
	parts := strings.Split(s, dateSeparator)
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return 0, 0, errDate
	}
	month, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, errDate
	}
	day, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, errDate
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return 0, 0, errDate
	}
	// time.Date normalizes overflow (04-31 -> 05-01); a changed month means no such day.
	if time.Date(leapYear, time.Month(month), day, 0, 0, 0, 0, time.UTC).Month() != time.Month(month) {
		return 0, 0, errCalendarDate
	}
	return month, day, nil
}
