// Package platform holds host-level helpers for the orchestrator process.
package platform

import (
	"errors"
	"fmt"
	"hash/fnv"
	"net"
)

// ErrAlreadyRunning means another orchestrator already owns the matrix.
var ErrAlreadyRunning = errors.New("orchestrator already running")

const (
	minGuardPort = 20000
	maxGuardPort = 39999
)

// InstanceGuard is held for the lifetime of the process.
type InstanceGuard struct {
	listener net.Listener
	address  string
}

// Acquire binds a localhost port derived from name. Only one process per name
// can hold it; the OS releases it if the process dies.
func Acquire(name string) (*InstanceGuard, error) {
	address := fmt.Sprintf("127.0.0.1:%d", guardPort(name))
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("%w: %s busy: %v", ErrAlreadyRunning, address, err)
	}
	return &InstanceGuard{listener: listener, address: address}, nil
}

func (g *InstanceGuard) Release() error {
	if g == nil || g.listener == nil {
		return nil
	}
	return g.listener.Close()
}

func (g *InstanceGuard) Address() string {
	if g == nil {
		return ""
	}
	return g.address
}

func guardPort(name string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	size := maxGuardPort - minGuardPort + 1
	return minGuardPort + int(h.Sum32()%uint32(size))
}
