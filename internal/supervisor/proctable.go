package supervisor

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"syscall"
)

// ProcessTable finds and signals processes that the supervisor does not hold
// handles for, e.g. leftovers from a previous orchestrator run.
type ProcessTable interface {
	// Find returns the PIDs of processes running the executable at path.
	Find(path string) ([]int, error)
	// Matches reports whether pid currently runs the executable at path.
	Matches(pid int, path string) bool
	Signal(pid int, sig syscall.Signal) error
}

const procRoot = "/proc"

// procTable reads Linux /proc.
type procTable struct {
	root string
	self int
}

func newProcTable() *procTable {
	return &procTable{root: procRoot, self: os.Getpid()}
}

func (p *procTable) Find(path string) ([]int, error) {
	dirs, err := os.ReadDir(p.root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var pids []int
	for _, d := range dirs {
		pid, err := strconv.Atoi(d.Name())
		if err != nil || pid == p.self {
			continue
		}
		if p.Matches(pid, path) {
			pids = append(pids, pid)
		}
	}
	return pids, nil
}

// Matches compares path against the process executable, argv[0], and argv[1]
// (the script when a shebang interpreter is running it).
func (p *procTable) Matches(pid int, path string) bool {
	want := cleanPath(path)
	base := filepath.Join(p.root, strconv.Itoa(pid))

	if exe, err := os.Readlink(filepath.Join(base, "exe")); err == nil && cleanPath(exe) == want {
		return true
	}
	raw, err := os.ReadFile(filepath.Join(base, "cmdline"))
	if err != nil || len(raw) == 0 {
		return false
	}
	argv := bytes.Split(bytes.TrimRight(raw, "\x00"), []byte{0})
	for i := 0; i < len(argv) && i < 2; i++ {
		arg := string(argv[i])
		if filepath.IsAbs(arg) && cleanPath(arg) == want {
			return true
		}
	}
	return false
}

func (p *procTable) Signal(pid int, sig syscall.Signal) error {
	return syscall.Kill(pid, sig)
}

func cleanPath(p string) string {
	if resolved, err := filepath.EvalSymlinks(p); err == nil {
		return resolved
	}
	return filepath.Clean(p)
}
