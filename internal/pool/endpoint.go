package pool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dhruvsoni1802/browser-webdriver/internal/driver"
	"github.com/dhruvsoni1802/browser-webdriver/internal/webdriver"
)

// Endpoint is one WebDriver remote end: a remote grid/driver URL or a
// driver process this pool launched.
type Endpoint struct {
	url     string
	invoker *webdriver.Invoker
	process *driver.Process // nil for remote endpoints

	sessionCount atomic.Int64
	healthy      atomic.Bool

	mu          sync.Mutex
	lastChecked time.Time
	lastMessage string
}

// EndpointMetrics contains metrics about a single endpoint
type EndpointMetrics struct {
	URL          string    `json:"url"`
	Managed      bool      `json:"managed"`
	PID          int       `json:"pid,omitempty"`
	Healthy      bool      `json:"healthy"`
	SessionCount int64     `json:"session_count"`
	LastChecked  time.Time `json:"last_checked,omitempty"`
	Message      string    `json:"message,omitempty"`
}

func newEndpoint(rawURL string, process *driver.Process, opts ...webdriver.Option) (*Endpoint, error) {
	inv, err := webdriver.NewInvoker(rawURL, opts...)
	if err != nil {
		return nil, err
	}
	e := &Endpoint{
		url:     inv.BaseURL(),
		invoker: inv,
		process: process,
	}
	// Endpoints are assumed healthy until the first check says otherwise
	e.healthy.Store(true)
	return e, nil
}

func (e *Endpoint) URL() string {
	return e.url
}

// Invoker returns the invoker shared by every session on this endpoint.
func (e *Endpoint) Invoker() *webdriver.Invoker {
	return e.invoker
}

func (e *Endpoint) IsHealthy() bool {
	return e.healthy.Load()
}

func (e *Endpoint) GetSessionCount() int64 {
	return e.sessionCount.Load()
}

func (e *Endpoint) IncrementSessionCount() {
	e.sessionCount.Add(1)
}

// DecrementSessionCount never takes the count below zero.
func (e *Endpoint) DecrementSessionCount() {
	for {
		n := e.sessionCount.Load()
		if n <= 0 {
			return
		}
		if e.sessionCount.CompareAndSwap(n, n-1) {
			return
		}
	}
}

// CheckHealth sends a Status command and records whether the remote end is
// ready to create sessions.
func (e *Endpoint) CheckHealth(ctx context.Context) error {
	status, err := e.status(ctx)

	e.mu.Lock()
	e.lastChecked = time.Now()
	if err != nil {
		e.lastMessage = err.Error()
	} else {
		e.lastMessage = status.Message
	}
	e.mu.Unlock()

	if err != nil {
		e.healthy.Store(false)
		return err
	}
	e.healthy.Store(status.Ready)
	if !status.Ready {
		return fmt.Errorf("endpoint %s not ready: %s", e.url, status.Message)
	}
	return nil
}

func (e *Endpoint) status(ctx context.Context) (webdriver.StatusResult, error) {
	resp, err := e.invoker.Cmd(ctx, "", webdriver.Status{})
	if err != nil {
		return webdriver.StatusResult{}, err
	}
	return webdriver.DecodeValue[webdriver.StatusResult](resp)
}

// GetMetrics returns a snapshot of the endpoint's state
func (e *Endpoint) GetMetrics() EndpointMetrics {
	e.mu.Lock()
	defer e.mu.Unlock()

	m := EndpointMetrics{
		URL:          e.url,
		Managed:      e.process != nil,
		Healthy:      e.healthy.Load(),
		SessionCount: e.sessionCount.Load(),
		LastChecked:  e.lastChecked,
		Message:      e.lastMessage,
	}
	if e.process != nil {
		m.PID = e.process.GetPID()
	}
	return m
}
