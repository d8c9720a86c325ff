package pool

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dhruvsoni1802/browser-webdriver/internal/driver"
	"github.com/dhruvsoni1802/browser-webdriver/internal/webdriver"
)

// driverStartTimeout bounds how long a launched driver has to report ready
const driverStartTimeout = 30 * time.Second

// Pool manages the WebDriver endpoints sessions can be created on
type Pool struct {
	endpoints   []*Endpoint        // Remote ends, configured and launched
	invokerOpts []webdriver.Option // Applied to every endpoint's invoker
	mu          sync.RWMutex       // Protects endpoints slice
}

// PoolMetrics contains metrics about the entire pool
type PoolMetrics struct {
	TotalEndpoints int               `json:"total_endpoints"`
	Healthy        int               `json:"healthy"`
	TotalSessions  int64             `json:"total_sessions"`
	Endpoints      []EndpointMetrics `json:"endpoints"`
}

// New creates a pool over already running remote ends.
func New(urls []string, opts ...webdriver.Option) (*Pool, error) {
	p := &Pool{
		endpoints:   make([]*Endpoint, 0, len(urls)),
		invokerOpts: opts,
	}

	for _, u := range urls {
		if err := p.AddURL(u); err != nil {
			return nil, err
		}
	}

	slog.Info("endpoint pool initialized", "size", len(p.endpoints))
	return p, nil
}

// AddURL adds a remote end by URL. Duplicates are rejected.
func (p *Pool) AddURL(rawURL string) error {
	e, err := newEndpoint(rawURL, nil, p.invokerOpts...)
	if err != nil {
		return fmt.Errorf("failed to add endpoint: %w", err)
	}
	return p.add(e)
}

// StartDrivers launches count local driver processes and adds them to the
// pool once each reports ready. On failure every driver started by this
// call is stopped.
func (p *Pool) StartDrivers(ctx context.Context, binaryPath string, count int, args ...string) error {
	if count < 1 || count > 10 {
		return fmt.Errorf("driver count must be between 1 and 10, got %d", count)
	}

	started := make([]*driver.Process, 0, count)
	cleanup := func() {
		for _, proc := range started {
			if err := proc.Stop(); err != nil {
				slog.Warn("failed to stop driver during cleanup", "port", proc.Port, "error", err)
			}
		}
	}

	endpoints := make([]*Endpoint, 0, count)
	for i := 0; i < count; i++ {
		proc, err := driver.NewProcess(binaryPath, args...)
		if err != nil {
			cleanup()
			return fmt.Errorf("failed to create driver %d: %w", i, err)
		}
		if err := proc.Start(); err != nil {
			cleanup()
			return fmt.Errorf("failed to start driver %d: %w", i, err)
		}
		started = append(started, proc)

		readyCtx, cancel := context.WithTimeout(ctx, driverStartTimeout)
		err = proc.WaitReady(readyCtx, 250*time.Millisecond)
		cancel()
		if err != nil {
			cleanup()
			return fmt.Errorf("driver %d: %w", i, err)
		}

		e, err := newEndpoint(proc.URL(), proc, p.invokerOpts...)
		if err != nil {
			cleanup()
			return err
		}
		endpoints = append(endpoints, e)
		slog.Info("started driver process", "index", i, "port", proc.Port, "pid", proc.GetPID())
	}

	for _, e := range endpoints {
		if err := p.add(e); err != nil {
			cleanup()
			return err
		}
	}
	return nil
}

func (p *Pool) add(e *Endpoint) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, existing := range p.endpoints {
		if existing.url == e.url {
			return fmt.Errorf("endpoint already in pool: %s", e.url)
		}
	}
	p.endpoints = append(p.endpoints, e)
	return nil
}

// GetEndpoints returns a copy of all endpoints (for monitoring)
func (p *Pool) GetEndpoints() []*Endpoint {
	p.mu.RLock()
	defer p.mu.RUnlock()

	endpoints := make([]*Endpoint, len(p.endpoints))
	copy(endpoints, p.endpoints)
	return endpoints
}

// Lookup finds an endpoint by its base URL.
func (p *Pool) Lookup(rawURL string) (*Endpoint, bool) {
	normalized, err := webdriver.NormalizeURL(rawURL)
	if err != nil {
		return nil, false
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, e := range p.endpoints {
		if e.url == normalized {
			return e, true
		}
	}
	return nil, false
}

// GetEndpointCount returns the number of endpoints in the pool
func (p *Pool) GetEndpointCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.endpoints)
}

// CheckHealth refreshes every endpoint's health concurrently.
func (p *Pool) CheckHealth(ctx context.Context) {
	var wg sync.WaitGroup
	for _, e := range p.GetEndpoints() {
		wg.Add(1)
		go func(e *Endpoint) {
			defer wg.Done()
			if err := e.CheckHealth(ctx); err != nil {
				slog.Warn("endpoint health check failed", "url", e.URL(), "error", err)
			}
		}(e)
	}
	wg.Wait()
}

// StartHealthWorker checks endpoint health every interval until ctx ends.
func (p *Pool) StartHealthWorker(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		slog.Info("health worker started", "check_interval", interval)

		for {
			select {
			case <-ctx.Done():
				slog.Info("health worker stopping")
				return
			case <-ticker.C:
				p.CheckHealth(ctx)
			}
		}
	}()
}

// Shutdown stops all managed driver processes (best effort)
func (p *Pool) Shutdown() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errors []error

	for i, e := range p.endpoints {
		if e.process == nil {
			continue
		}
		if err := e.process.Stop(); err != nil {
			slog.Warn("failed to stop driver", "index", i, "port", e.process.Port, "error", err)
			errors = append(errors, err)
		} else {
			slog.Info("driver stopped", "index", i, "port", e.process.Port)
		}
	}

	p.endpoints = p.endpoints[:0]

	if len(errors) > 0 {
		slog.Warn("shutdown completed with errors", "failed_count", len(errors))
		return fmt.Errorf("failed to stop %d drivers", len(errors))
	}

	slog.Info("endpoint pool shut down")
	return nil
}

// GetMetrics returns metrics for the entire pool
func (p *Pool) GetMetrics() PoolMetrics {
	p.mu.RLock()
	defer p.mu.RUnlock()

	metrics := PoolMetrics{
		TotalEndpoints: len(p.endpoints),
		Endpoints:      make([]EndpointMetrics, len(p.endpoints)),
	}

	for i, e := range p.endpoints {
		m := e.GetMetrics()
		metrics.Endpoints[i] = m
		metrics.TotalSessions += m.SessionCount
		if m.Healthy {
			metrics.Healthy++
		}
	}

	return metrics
}
