// Package weather preempts the active display with a weather program twice an hour.
package weather

import (
	"context"
	"time"

	"matrix_orchestrator/internal/logger"
	"matrix_orchestrator/internal/models"
	"matrix_orchestrator/internal/supervisor"
)

// refireGuard keeps the interrupt from firing twice within one trigger minute.
const refireGuard = 60 * time.Second

const (
	defaultDuration = 30 * time.Second
	defaultProgram  = "weather"
)

// DefaultTriggerMinutes are the minutes of every hour the interrupt fires at.
var DefaultTriggerMinutes = []int{18, 48}

// Supervisor is the subset of process control the interrupt needs.
type Supervisor interface {
	Start(ctx context.Context, name string, variant supervisor.Variant) (*supervisor.Handle, error)
	Stop(h *supervisor.Handle)
	KillAll(ctx context.Context, name string) int
}

// Config is captured once at startup.
type Config struct {
	Enabled        bool // an API key is configured
	Program        string
	Duration       time.Duration
	TriggerMinutes []int
}

// Controller is a two-state machine: NORMAL and SHOWING_WEATHER. While showing,
// Done delivers when the on-screen time is up; the caller then calls Finish.
type Controller struct {
	cfg  Config
	sup  Supervisor
	log  *logger.Logger
	trig map[int]bool

	state     string
	lastCheck time.Time
	saved     string
	handle    *supervisor.Handle
	timer     *time.Timer
}

func New(cfg Config, sup Supervisor, log *logger.Logger) *Controller {
	if cfg.Program == "" {
		cfg.Program = defaultProgram
	}
	if cfg.Duration <= 0 {
		cfg.Duration = defaultDuration
	}
	if len(cfg.TriggerMinutes) == 0 {
		cfg.TriggerMinutes = DefaultTriggerMinutes
	}
	if log == nil {
		log = logger.Nop()
	}
	trig := make(map[int]bool, len(cfg.TriggerMinutes))
	for _, m := range cfg.TriggerMinutes {
		trig[m] = true
	}
	return &Controller{
		cfg:   cfg,
		sup:   sup,
		log:   log,
		trig:  trig,
		state: models.WeatherNormal,
	}
}

func (c *Controller) Enabled() bool              { return c.cfg.Enabled }
func (c *Controller) Program() string            { return c.cfg.Program }
func (c *Controller) State() string              { return c.state }
func (c *Controller) Showing() bool              { return c.state == models.WeatherShowing }
func (c *Controller) LastCheck() time.Time       { return c.lastCheck }
func (c *Controller) SavedProgram() string       { return c.saved }
func (c *Controller) Handle() *supervisor.Handle { return c.handle }

// ShouldFire reports whether the interrupt is due at now.
func (c *Controller) ShouldFire(now time.Time) bool {
	if !c.cfg.Enabled || c.state != models.WeatherNormal {
		return false
	}
	if !c.trig[now.Minute()] {
		return false
	}
	return c.lastCheck.IsZero() || now.Sub(c.lastCheck) >= refireGuard
}

// Interrupt stops current, kills anything else still running the saved
// program, and starts the weather program. It returns false if
// the weather program failed to start; the caller should Finish right away so
// the display is restored without waiting out the duration.
func (c *Controller) Interrupt(ctx context.Context, now time.Time, saved string, current *supervisor.Handle) bool {
	c.state = models.WeatherShowing
	c.lastCheck = now
	c.saved = saved

	c.log.Infow("weather_interrupt_started", "saved_program", saved, "duration", c.cfg.Duration)
	c.sup.Stop(current)
	if saved != "" {
		c.sup.KillAll(ctx, saved)
	}

	h, err := c.sup.Start(ctx, c.cfg.Program, supervisor.VariantWeather)
	if err != nil {
		c.log.Warnw("weather_start_failed", "program", c.cfg.Program, "err", err)
		return false
	}
	c.handle = h
	c.timer = time.NewTimer(c.cfg.Duration)
	return true
}

// Done delivers once the weather has been on screen for the configured
// duration. It is nil (blocks forever) when no timer is armed.
func (c *Controller) Done() <-chan time.Time {
	if c.timer == nil {
		return nil
	}
	return c.timer.C
}

// Finish stops the weather program and returns to NORMAL. It returns the
// program that was showing before the interrupt.
func (c *Controller) Finish() string {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.sup.Stop(c.handle)
	saved := c.saved

	c.handle = nil
	c.saved = ""
	c.state = models.WeatherNormal
	c.log.Infow("weather_interrupt_finished", "restore_program", saved)
	return saved
}

// Cancel aborts an in-flight interrupt without restoring anything.
func (c *Controller) Cancel() {
	if c.state != models.WeatherShowing {
		return
	}
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.sup.Stop(c.handle)
	c.handle = nil
	c.saved = ""
	c.state = models.WeatherNormal
	c.log.Infow("weather_interrupt_cancelled")
}
