package supervisor

import (
	"sync"
	"time"
)

// Handle identifies one launched child process.
type Handle struct {
	Name      string
	PID       int
	Path      string
	StartedAt time.Time

	done    chan struct{}
	mu      sync.Mutex
	exitErr error
}

func newHandle(name, path string, pid int, startedAt time.Time) *Handle {
	return &Handle{
		Name:      name,
		PID:       pid,
		Path:      path,
		StartedAt: startedAt,
		done:      make(chan struct{}),
	}
}

// Done is closed once the process has been reaped.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Exited reports whether the process has been reaped.
func (h *Handle) Exited() bool {
	if h == nil || h.done == nil {
		return true
	}
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// ExitErr is the error returned by Wait, valid once Exited is true.
func (h *Handle) ExitErr() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.exitErr
}

func (h *Handle) markExited(err error) {
	h.mu.Lock()
	h.exitErr = err
	h.mu.Unlock()
	close(h.done)
}
