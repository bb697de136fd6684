package service

import (
	"context"
	"time"

	"matrix_orchestrator/internal/clock"
	"matrix_orchestrator/internal/logger"
	"matrix_orchestrator/internal/models"
	"matrix_orchestrator/internal/repository"
	"matrix_orchestrator/internal/schedule"
	"matrix_orchestrator/internal/supervisor"
	"matrix_orchestrator/internal/weather"
)

const (
	DefaultPollInterval = 30 * time.Second
	shutdownTimeout     = 10 * time.Second

	// retrySlack absorbs tick jitter so a retry due at a poll runs at that poll.
	retrySlack = time.Second
)

// Transition reasons, logged and journaled with every program change.
const (
	reasonInitial        = "initial"
	reasonHolidayStarted = "holiday_started"
	reasonHolidayEnded   = "holiday_ended"
	reasonRetryExhausted = "retry_exhausted"
)

// ProcessSupervisor is the process control the orchestrator relies on.
type ProcessSupervisor interface {
	Start(ctx context.Context, name string, variant supervisor.Variant) (*supervisor.Handle, error)
	Stop(h *supervisor.Handle)
	IsRunning(h *supervisor.Handle) bool
	KillAll(ctx context.Context, name string) int
	Sweep(ctx context.Context, names []string) int
}

// OrchestratorService keeps the matrix showing the program the schedule asks
// for. All state below is owned by the Run goroutine.
type OrchestratorService struct {
	sup            ProcessSupervisor
	weather        *weather.Controller
	clock          clock.Clock
	entries        []models.ScheduleEntry
	defaultProgram string
	retry          RetryPolicy
	eventRepo      repository.EventRepo
	status         *StatusStore
	log            *logger.Logger

	current   string // "" until the first program is chosen
	target    string
	handle    *supervisor.Handle
	startedAt time.Time
	failures  int
	nextRetry time.Time
	abandoned string // scheduled program replaced by the default after exhausting retries
}

// NewOrchestratorService wires the loop. entries is treated as read-only.
func NewOrchestratorService(
	sup ProcessSupervisor,
	wc *weather.Controller,
	clk clock.Clock,
	entries []models.ScheduleEntry,
	defaultProgram string,
	retry RetryPolicy,
	eventRepo repository.EventRepo,
	status *StatusStore,
	log *logger.Logger,
) *OrchestratorService {
	if clk == nil {
		clk = clock.System{}
	}
	if log == nil {
		log = logger.Nop()
	}
	if status == nil {
		status = NewStatusStore()
	}
	if wc == nil {
		wc = weather.New(weather.Config{}, sup, log)
	}
	return &OrchestratorService{
		sup:            sup,
		weather:        wc,
		clock:          clk,
		entries:        entries,
		defaultProgram: defaultProgram,
		retry:          retry.withDefaults(),
		eventRepo:      eventRepo,
		status:         status,
		log:            log,
	}
}

// Run sweeps stale programs, then polls the schedule every interval until ctx
// is canceled. On return the active program and the weather program are stopped.
func (o *OrchestratorService) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	o.sweep(ctx)
	defer o.shutdown()

	o.poll(ctx)

	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			o.poll(ctx)
		case <-o.weather.Done():
			o.endWeather(ctx)
		}
	}
}

// KnownPrograms lists every program the orchestrator may launch.
func (o *OrchestratorService) KnownPrograms() []string {
	names := schedule.ProgramNames(o.entries)
	names = append(names, o.defaultProgram, o.weather.Program())
	return names
}

func (o *OrchestratorService) sweep(ctx context.Context) {
	names := o.KnownPrograms()
	killed := o.sup.Sweep(ctx, names)
	o.log.Infow("startup_sweep", "programs", names, "killed", killed)
}

// poll runs one iteration: the weather check always precedes the schedule check.
func (o *OrchestratorService) poll(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	now := o.clock.Now()
	defer o.publish()

	if o.weather.Showing() {
		// the restore picks up whatever the schedule says by then
		o.target = schedule.Resolve(now, o.entries, o.defaultProgram)
		return
	}
	if o.weather.ShouldFire(now) {
		o.beginWeather(ctx, now)
		return
	}
	o.reconcile(ctx, now)
}

// reconcile compares the resolved program with the one on display.
func (o *OrchestratorService) reconcile(ctx context.Context, now time.Time) {
	o.target = schedule.Resolve(now, o.entries, o.defaultProgram)

	want := o.target
	if o.abandoned != "" {
		if want == o.abandoned {
			want = o.defaultProgram
		} else {
			o.abandoned = ""
		}
	}

	if want != o.current {
		o.transition(ctx, now, want, o.reason(want))
		return
	}

	if o.handle != nil {
		if o.sup.IsRunning(o.handle) {
			o.failures = 0
			o.nextRetry = time.Time{}
			return
		}
		o.crashed(ctx, now)
		if o.handle != nil || o.current != want {
			return
		}
	}

	if now.Add(retrySlack).Before(o.nextRetry) {
		return
	}
	o.start(ctx, now)
}

func (o *OrchestratorService) reason(want string) string {
	switch {
	case o.current == "":
		return reasonInitial
	case want == o.defaultProgram:
		return reasonHolidayEnded
	default:
		return reasonHolidayStarted
	}
}

// transition stops the current program and starts want.
func (o *OrchestratorService) transition(ctx context.Context, now time.Time, want, reason string) {
	prev := o.current
	o.log.Infow("program_transition", "from", prev, "to", want, "reason", reason)

	switch reason {
	case reasonHolidayStarted:
		o.journal(ctx, now, models.EventHolidayStart, want, "holiday program scheduled",
			map[string]any{"from": prev, "to": want})
	case reasonHolidayEnded:
		o.journal(ctx, now, models.EventHolidayEnd, prev, "holiday ended",
			map[string]any{"from": prev, "to": want})
	}

	o.stopCurrent(ctx, now)
	o.current = want
	o.failures = 0
	o.nextRetry = time.Time{}
	o.start(ctx, now)
}

// start launches the current program. A failure counts against the retry policy.
func (o *OrchestratorService) start(ctx context.Context, now time.Time) {
	h, err := o.sup.Start(ctx, o.current, supervisor.VariantStandard)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		o.log.Warnw("start_failed", "program", o.current, "attempt", o.failures+1, "err", err)
		o.journal(ctx, now, models.EventStartFailed, o.current, "program failed to start",
			map[string]any{"attempt": o.failures + 1, "error": err.Error()})
		o.fail(ctx, now)
		return
	}
	o.handle = h
	o.startedAt = now
	o.journal(ctx, now, models.EventProgramStart, o.current, "program started",
		map[string]any{"pid": h.PID})
}

// crashed handles a program that was started but is gone at poll time.
// A program that had been healthy is restarted at once; repeated failures back off.
func (o *OrchestratorService) crashed(ctx context.Context, now time.Time) {
	h := o.handle
	o.handle = nil
	o.sup.Stop(h)

	o.log.Warnw("crash_detected", "program", o.current, "pid", h.PID, "exit", h.ExitErr())
	o.journal(ctx, now, models.EventCrash, o.current, "program exited unexpectedly",
		map[string]any{"pid": h.PID, "uptime_seconds": int(now.Sub(o.startedAt).Seconds())})

	healthy := o.failures == 0
	prog := o.current
	o.fail(ctx, now)
	if healthy && o.current == prog && o.handle == nil {
		o.nextRetry = time.Time{}
	}
}

// fail records one more consecutive failure of the current program.
func (o *OrchestratorService) fail(ctx context.Context, now time.Time) {
	o.failures++
	if !o.retry.Exhausted(o.failures) {
		o.nextRetry = now.Add(o.retry.Delay(o.failures))
		return
	}

	if o.current != o.defaultProgram {
		o.log.Errorw("retry_exhausted", "program", o.current, "attempts", o.failures, "fallback", o.defaultProgram)
		o.journal(ctx, now, models.EventRetryExhausted, o.current, "giving up, falling back to default program",
			map[string]any{"attempts": o.failures, "fallback": o.defaultProgram})
		o.abandoned = o.current
		o.transition(ctx, now, o.defaultProgram, reasonRetryExhausted)
		return
	}

	// the default program is never abandoned
	if o.failures == o.retry.MaxAttempts {
		o.log.Errorw("retry_exhausted", "program", o.current, "attempts", o.failures, "retry_every", o.retry.MaxDelay)
		o.journal(ctx, now, models.EventRetryExhausted, o.current, "default program keeps failing",
			map[string]any{"attempts": o.failures, "retry_every_seconds": int(o.retry.MaxDelay.Seconds())})
	}
	o.nextRetry = now.Add(o.retry.MaxDelay)
}

func (o *OrchestratorService) stopCurrent(ctx context.Context, now time.Time) {
	if o.handle == nil {
		return
	}
	h := o.handle
	o.handle = nil
	o.sup.Stop(h)
	o.journal(ctx, now, models.EventProgramStop, h.Name, "program stopped",
		map[string]any{"pid": h.PID})
}

// beginWeather hands the matrix to the weather program. If it cannot start,
// the display is restored right away.
func (o *OrchestratorService) beginWeather(ctx context.Context, now time.Time) {
	o.journal(ctx, now, models.EventWeatherStart, o.weather.Program(), "weather interrupt",
		map[string]any{"saved_program": o.current})

	h := o.handle
	o.handle = nil
	if !o.weather.Interrupt(ctx, now, o.current, h) {
		o.endWeather(ctx)
	}
}

// endWeather stops the weather program and starts whatever is scheduled now.
func (o *OrchestratorService) endWeather(ctx context.Context) {
	saved := o.weather.Finish()
	now := o.clock.Now()
	o.journal(ctx, now, models.EventWeatherEnd, o.weather.Program(), "weather interrupt finished",
		map[string]any{"saved_program": saved})
	if ctx.Err() != nil {
		return
	}
	o.reconcile(ctx, now)
	o.publish()
}

// shutdown runs with its own context: the loop's context is already done.
func (o *OrchestratorService) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	o.weather.Cancel()
	o.stopCurrent(ctx, o.clock.Now())
	o.sup.KillAll(ctx, o.current)
	o.sup.KillAll(ctx, o.weather.Program())
	o.publish()
	o.log.Infow("orchestrator_stopped", "program", o.current)
}

func (o *OrchestratorService) journal(ctx context.Context, now time.Time, typ, program, msg string, meta map[string]any) {
	if o.eventRepo == nil {
		return
	}
	err := o.eventRepo.Append(ctx, models.DisplayEvent{
		OccurredAt:  now.UTC(),
		Type:        typ,
		Program:     program,
		Description: msg,
		Metadata:    meta,
	})
	if err != nil {
		o.log.Warnw("journal_append_failed", "type", typ, "err", err)
	}
}

// State returns a copy of what the loop believes is on the matrix.
func (o *OrchestratorService) State() models.OrchestratorState {
	st := models.OrchestratorState{
		CurrentProgram:   o.current,
		TargetProgram:    o.target,
		LastWeatherCheck: o.weather.LastCheck(),
		WeatherState:     o.weather.State(),
		FailedAttempts:   o.failures,
		NextRetryAt:      o.nextRetry,
		UpdatedAt:        o.clock.Now(),
	}
	if o.handle != nil {
		st.PID = o.handle.PID
		st.ProgramStartTime = o.startedAt
	}
	return st
}

func (o *OrchestratorService) publish() {
	o.status.Publish(o.State())
}
