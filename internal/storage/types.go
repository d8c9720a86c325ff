package storage

import (
	"fmt"
	"time"
)

// SessionState represents a persisted WebDriver session record
type SessionState struct {
	SessionID    string         `json:"session_id"`
	SessionName  string         `json:"session_name"`
	Endpoint     string         `json:"endpoint"`
	CreatedAt    time.Time      `json:"created_at"`
	LastActivity time.Time      `json:"last_activity"`
	Status       string         `json:"status"`
	Capabilities map[string]any `json:"capabilities,omitempty"`
}

// Validate checks the fields a session needs to be resumed later
func (s *SessionState) Validate() error {
	if s.SessionID == "" {
		return fmt.Errorf("session_id is required")
	}
	if s.Endpoint == "" {
		return fmt.Errorf("endpoint is required")
	}
	return nil
}

// EnsureSessionName generates a name like "session-2026-02-08-1a2b3c4d" when none is set
func (s *SessionState) EnsureSessionName() {
	if s.SessionName != "" {
		return
	}
	shortID := s.SessionID
	if len(shortID) > 8 {
		shortID = shortID[:8]
	}
	s.SessionName = fmt.Sprintf("session-%s-%s", s.CreatedAt.Format("2006-01-02"), shortID)
}
