package session

import (
	"sync"
	"time"

	"github.com/dhruvsoni1802/browser-webdriver/internal/webdriver"
)

// SessionStatus represents the current state of a session
type SessionStatus string

const (
	SessionActive  SessionStatus = "active"  // Session is running
	SessionClosed  SessionStatus = "closed"  // Session was explicitly closed
	SessionExpired SessionStatus = "expired" // Session timed out
)

// Session is the registry record for one remote WebDriver session.
// The exported fields are fixed at creation; name, activity and status
// change over time and are read through methods.
type Session struct {
	ID           string                 // Remote session id
	Endpoint     string                 // Base URL of the remote end
	Handle       *Handle                // Command handle shared by every caller
	Capabilities webdriver.Capabilities // Capabilities the remote end returned
	CreatedAt    time.Time              // When session was created or attached

	mu           sync.RWMutex
	name         string
	lastActivity time.Time
	status       SessionStatus
}

func newSession(handle *Handle, name string, caps webdriver.Capabilities, createdAt time.Time) *Session {
	return &Session{
		ID:           handle.ID(),
		Endpoint:     handle.Endpoint(),
		Handle:       handle,
		Capabilities: caps,
		CreatedAt:    createdAt,
		name:         name,
		lastActivity: time.Now(),
		status:       SessionActive,
	}
}

func (s *Session) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *Session) setName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

func (s *Session) LastActivity() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActivity
}

func (s *Session) Status() SessionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *Session) setStatus(status SessionStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

// IsExpired checks if the session has been inactive too long
func (s *Session) IsExpired(timeout time.Duration) bool {
	return time.Since(s.LastActivity()) > timeout
}

// UpdateActivity updates the last activity timestamp
func (s *Session) UpdateActivity() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = time.Now()
}
