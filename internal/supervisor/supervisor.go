// Package supervisor starts, watches and stops the external display programs.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"matrix_orchestrator/internal/logger"
	"matrix_orchestrator/internal/models"
)

const (
	defaultStartGrace = 2 * time.Second
	defaultKillWait   = 1 * time.Second
)

var (
	// ErrNotRunning is returned when a started program is gone after the grace period.
	ErrNotRunning = errors.New("program not running after start grace period")
	// ErrUnknownProgram is returned for an empty program name.
	ErrUnknownProgram = errors.New("empty program name")
)

// RecordStore persists the last known PID per program name.
type RecordStore interface {
	Save(ctx context.Context, rec models.ProcessRecord) error
	List(ctx context.Context) ([]models.ProcessRecord, error)
	DeleteAll(ctx context.Context) error
}

// Supervisor owns every child it launches through a Handle. At most one handle
// per program name is tracked: starting a name stops its previous handle first.
type Supervisor struct {
	cfg     Config
	log     *logger.Logger
	records RecordStore
	table   ProcessTable

	mu      sync.Mutex
	handles map[string]*Handle
}

// New returns a supervisor backed by the host process table.
func New(cfg Config, records RecordStore, log *logger.Logger) *Supervisor {
	return newSupervisor(cfg, records, newProcTable(), log)
}

func newSupervisor(cfg Config, records RecordStore, table ProcessTable, log *logger.Logger) *Supervisor {
	if cfg.StartGrace <= 0 {
		cfg.StartGrace = defaultStartGrace
	}
	if cfg.KillWait <= 0 {
		cfg.KillWait = defaultKillWait
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Supervisor{
		cfg:     cfg,
		log:     log,
		records: records,
		table:   table,
		handles: make(map[string]*Handle),
	}
}

// Config returns the supervisor's launch configuration.
func (s *Supervisor) Config() Config { return s.cfg }

// Start launches name detached with stdio discarded. Every running instance
// of name goes first: the tracked handle is stopped and anything else running
// the executable is killed, so at most one instance is ever on the matrix.
// Start then waits the start grace period and fails with ErrNotRunning if
// neither the child nor a process it detached is still running.
func (s *Supervisor) Start(ctx context.Context, name string, variant Variant) (*Handle, error) {
	if name == "" {
		return nil, ErrUnknownProgram
	}
	s.Stop(s.tracked(name))
	s.KillAll(ctx, name)

	cmd := s.cfg.BuildCommand(name, variant)
	c := exec.Command(cmd.Path, cmd.Args...)
	// nil stdio is wired to the null device
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if err := c.Start(); err != nil {
		s.log.Errorw("start_failed", "program", name, "path", cmd.Path, "err", err)
		return nil, fmt.Errorf("start %s: %w", name, err)
	}

	h := newHandle(name, cmd.Path, c.Process.Pid, time.Now())
	go func() {
		h.markExited(c.Wait())
	}()

	s.mu.Lock()
	s.handles[name] = h
	s.mu.Unlock()
	s.saveRecord(ctx, h, models.ProcessRunning)

	select {
	case <-ctx.Done():
		s.Stop(h)
		return nil, ctx.Err()
	case <-h.Done():
	case <-time.After(s.cfg.StartGrace):
	}

	if !s.IsRunning(h) {
		s.forget(h)
		s.saveRecord(ctx, h, models.ProcessStopped)
		s.log.Errorw("start_failed", "program", name, "pid", h.PID, "exit", h.ExitErr())
		return nil, fmt.Errorf("start %s: %w", name, ErrNotRunning)
	}

	s.log.Infow("program_started", "program", name, "pid", h.PID, "args", cmd.Args)
	return h, nil
}

// IsRunning reports whether the process behind h is still alive. Once the
// launched child has exited, a program that daemonized itself counts as
// running while a process still runs its executable.
func (s *Supervisor) IsRunning(h *Handle) bool {
	if h == nil {
		return false
	}
	if !h.Exited() {
		return true
	}
	return len(s.detached(h)) > 0
}

// Stop terminates the process group behind h: SIGTERM, then SIGKILL if it is
// still alive after the kill wait. If the child already exited, processes it
// left running the same executable are killed instead.
func (s *Supervisor) Stop(h *Handle) {
	if h == nil {
		return
	}
	defer s.forget(h)
	if h.Exited() {
		s.killDetached(h)
		return
	}

	_ = s.table.Signal(-h.PID, syscall.SIGTERM)
	select {
	case <-h.Done():
	case <-time.After(s.cfg.KillWait):
		_ = s.table.Signal(-h.PID, syscall.SIGKILL)
		select {
		case <-h.Done():
		case <-time.After(s.cfg.KillWait):
			s.log.Warnw("stop_timed_out", "program", h.Name, "pid", h.PID)
		}
	}

	s.saveRecord(context.Background(), h, models.ProcessStopped)
	s.log.Infow("program_stopped", "program", h.Name, "pid", h.PID)
}

// KillAll forcefully kills every process running name's executable, whether or
// not this supervisor launched it, plus any still-matching PID recorded for
// name by a previous run. It waits the kill wait if anything was signalled and
// returns the number of processes killed.
func (s *Supervisor) KillAll(ctx context.Context, name string) int {
	if name == "" {
		return 0
	}
	path := s.cfg.ProgramPath(name)

	targets := make(map[int]bool)
	if h := s.tracked(name); h != nil && !h.Exited() {
		targets[h.PID] = true
	}
	pids, err := s.table.Find(path)
	if err != nil {
		s.log.Warnw("process_scan_failed", "program", name, "err", err)
	}
	for _, pid := range pids {
		targets[pid] = true
	}
	for _, rec := range s.listRecords(ctx) {
		if rec.Name == name && rec.PID > 0 && s.table.Matches(rec.PID, path) {
			targets[rec.PID] = true
		}
	}

	killed := 0
	for pid := range targets {
		if err := s.table.Signal(pid, syscall.SIGKILL); err == nil {
			killed++
		}
	}
	if killed > 0 {
		s.log.Infow("program_killed", "program", name, "count", killed)
		sleepCtx(ctx, s.cfg.KillWait)
	}
	if h := s.tracked(name); h != nil {
		s.forget(h)
	}
	return killed
}

// detached returns the processes running h's executable after the child
// itself exited.
func (s *Supervisor) detached(h *Handle) []int {
	pids, err := s.table.Find(h.Path)
	if err != nil {
		s.log.Warnw("process_scan_failed", "program", h.Name, "err", err)
		return nil
	}
	return pids
}

func (s *Supervisor) killDetached(h *Handle) {
	killed := 0
	for _, pid := range s.detached(h) {
		if err := s.table.Signal(pid, syscall.SIGKILL); err == nil {
			killed++
		}
	}
	if killed == 0 {
		return
	}
	sleepCtx(context.Background(), s.cfg.KillWait)
	s.saveRecord(context.Background(), h, models.ProcessStopped)
	s.log.Infow("detached_program_killed", "program", h.Name, "count", killed)
}

// Sweep kills every instance of the given names and clears the process
// records, so the orchestrator starts from a clean slate.
func (s *Supervisor) Sweep(ctx context.Context, names []string) int {
	total := 0
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		total += s.KillAll(ctx, name)
	}
	if s.records != nil {
		if err := s.records.DeleteAll(ctx); err != nil {
			s.log.Warnw("process_records_clear_failed", "err", err)
		}
	}
	s.log.Infow("sweep_completed", "programs", len(seen), "killed", total)
	return total
}

func (s *Supervisor) tracked(name string) *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handles[name]
}

// forget drops h from the tracked set unless a newer handle replaced it.
func (s *Supervisor) forget(h *Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handles[h.Name] == h {
		delete(s.handles, h.Name)
	}
}

func (s *Supervisor) saveRecord(ctx context.Context, h *Handle, status string) {
	if s.records == nil {
		return
	}
	err := s.records.Save(ctx, models.ProcessRecord{
		Name:      h.Name,
		PID:       h.PID,
		Path:      h.Path,
		Status:    status,
		UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		s.log.Warnw("process_record_save_failed", "program", h.Name, "err", err)
	}
}

func (s *Supervisor) listRecords(ctx context.Context) []models.ProcessRecord {
	if s.records == nil {
		return nil
	}
	recs, err := s.records.List(ctx)
	if err != nil {
		s.log.Warnw("process_records_load_failed", "err", err)
		return nil
	}
	return recs
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
