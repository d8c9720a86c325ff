package driver

import (
	"context"
	"fmt"
	"os/exec"
	"syscall"
	"time"

	"github.com/dhruvsoni1802/browser-webdriver/internal/webdriver"
)

type ProcessStatus string

const (
	StatusStarting ProcessStatus = "starting"
	StatusRunning  ProcessStatus = "running"
	StatusStopped  ProcessStatus = "stopped"
	StatusFailed   ProcessStatus = "failed"
)

// Process is a local WebDriver server (chromedriver, geckodriver, ...)
// listening on a port taken from the allocator.
type Process struct {
	BinaryPath string        // Path to the driver binary
	Port       int           // Port the driver listens on
	Args       []string      // Extra command-line arguments
	Cmd        *exec.Cmd     // Running command
	StartedAt  time.Time     // Time when the process started
	Status     ProcessStatus // Status of the process

	ports *PortAllocator
}

// NewProcess creates a driver process configuration with a free port.
func NewProcess(binaryPath string, args ...string) (*Process, error) {
	return newProcess(defaultPorts, binaryPath, args...)
}

func newProcess(ports *PortAllocator, binaryPath string, args ...string) (*Process, error) {
	if binaryPath == "" {
		return nil, fmt.Errorf("driver binary path is required")
	}

	port, err := ports.Acquire()
	if err != nil {
		return nil, fmt.Errorf("failed to get free port: %w", err)
	}

	return &Process{
		BinaryPath: binaryPath,
		Port:       port,
		Args:       args,
		Status:     StatusStarting,
		ports:      ports,
	}, nil
}

// buildFlags constructs the command-line flags for the driver
func (p *Process) buildFlags() []string {
	flags := []string{
		fmt.Sprintf("--port=%d", p.Port), // chromedriver, msedgedriver and geckodriver all accept --port
	}
	return append(flags, p.Args...)
}

// Start launches the driver process
func (p *Process) Start() error {
	p.Cmd = exec.Command(p.BinaryPath, p.buildFlags()...)

	if err := p.Cmd.Start(); err != nil {
		p.Status = StatusFailed
		p.ports.Release(p.Port)
		return fmt.Errorf("failed to start driver process: %w", err)
	}

	p.Status = StatusRunning
	p.StartedAt = time.Now()
	return nil
}

// WaitReady polls GET /status until the driver reports ready or ctx ends.
func (p *Process) WaitReady(ctx context.Context, interval time.Duration) error {
	inv, err := webdriver.NewInvoker(p.URL(), webdriver.WithTimeout(interval))
	if err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if resp, err := inv.Cmd(ctx, "", webdriver.Status{}); err == nil {
			if status, err := webdriver.DecodeValue[webdriver.StatusResult](resp); err == nil && status.Ready {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("driver on port %d not ready: %w", p.Port, ctx.Err())
		case <-ticker.C:
		}
	}
}

// Stop gracefully terminates the driver process
func (p *Process) Stop() error {
	if p.Cmd == nil || p.Cmd.Process == nil {
		return fmt.Errorf("process was never started")
	}

	// Send SIGTERM for graceful shutdown
	if err := p.Cmd.Process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to send termination signal: %w", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- p.Cmd.Wait()
	}()

	select {
	case err := <-done:
		if err != nil && err.Error() != "signal: terminated" {
			return fmt.Errorf("process exit error: %w", err)
		}
	case <-time.After(5 * time.Second):
		// Timeout exceeded - force kill
		if err := p.Cmd.Process.Kill(); err != nil {
			return fmt.Errorf("failed to force kill process: %w", err)
		}
	}

	p.Status = StatusStopped
	p.ports.Release(p.Port)
	return nil
}

// IsAlive checks if the process is still running
func (p *Process) IsAlive() bool {
	if p.Cmd == nil || p.Cmd.Process == nil {
		return false
	}

	// Signal 0 checks existence without affecting the process
	err := p.Cmd.Process.Signal(syscall.Signal(0))
	return err == nil
}

// GetPID returns the process ID if the process is running
func (p *Process) GetPID() int {
	if p.Cmd != nil && p.Cmd.Process != nil {
		return p.Cmd.Process.Pid
	}
	return 0
}

// URL returns the WebDriver base URL of this process
func (p *Process) URL() string {
	return fmt.Sprintf("http://127.0.0.1:%d", p.Port)
}
