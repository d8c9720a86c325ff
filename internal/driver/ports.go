package driver

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
)

const (
	MinPort = 9515 // chromedriver's default port
	MaxPort = 9565 // 50 ports for local drivers
)

// PortAllocator hands out listen ports for local driver processes.
// Ports are reused LIFO once returned.
type PortAllocator struct {
	mu    sync.Mutex
	min   int
	max   int
	stack []int
	free  map[int]bool // Tracks which ports are available
}

// defaultPorts is shared by every Process created with NewProcess.
var defaultPorts = NewPortAllocator(MinPort, MaxPort)

// NewPortAllocator creates an allocator over [min, max).
func NewPortAllocator(min, max int) *PortAllocator {
	a := &PortAllocator{
		min:  min,
		max:  max,
		free: make(map[int]bool, max-min),
	}
	// Push highest first so the lowest port is handed out first
	for port := max - 1; port >= min; port-- {
		a.stack = append(a.stack, port)
		a.free[port] = true
	}
	return a
}

// IsPortAvailable checks if a port is available by attempting to listen on it
func IsPortAvailable(port int) bool {
	listener, err := net.Listen("tcp", "127.0.0.1:"+strconv.Itoa(port))
	if err != nil {
		return false
	}
	listener.Close()
	return true
}

// Acquire pops ports until it finds one nothing else is listening on.
func (a *PortAllocator) Acquire() (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for len(a.stack) > 0 {
		port := a.stack[len(a.stack)-1]
		a.stack = a.stack[:len(a.stack)-1]
		delete(a.free, port)

		if IsPortAvailable(port) {
			slog.Debug("allocated driver port", "port", port, "remaining", len(a.stack))
			return port, nil
		}

		// Port was in use by another process, try next one
		slog.Debug("driver port in use by external process", "port", port)
	}

	return 0, fmt.Errorf("no free driver ports in range %d-%d", a.min, a.max-1)
}

// Release returns a port to the allocator. Out-of-range and duplicate
// returns are ignored.
func (a *PortAllocator) Release(port int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if port < a.min || port >= a.max {
		slog.Warn("attempted to release invalid driver port", "port", port)
		return
	}
	if a.free[port] {
		slog.Warn("driver port already free, ignoring duplicate release", "port", port)
		return
	}

	a.stack = append(a.stack, port)
	a.free[port] = true
	slog.Debug("released driver port", "port", port, "available", len(a.stack))
}

// Stats returns the size of the range and how many ports are free.
func (a *PortAllocator) Stats() (total, available int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.max - a.min, len(a.stack)
}
