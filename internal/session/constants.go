package session

import "fmt"

const (
	// MaxTotalSessions is the global limit across all endpoints
	MaxTotalSessions = 100

	// DefaultSessionNamePrefix for auto-generated names
	DefaultSessionNamePrefix = "session"
)

// Error definitions
var (
	ErrSessionLimitReached = fmt.Errorf("session limit reached")
	ErrSessionNameConflict = fmt.Errorf("session name already exists")
	ErrInvalidSessionName  = fmt.Errorf("invalid session name")
	ErrSessionNotFound     = fmt.Errorf("session not found")
	ErrNoEndpoint          = fmt.Errorf("no webdriver endpoint available")
	ErrPersistenceDisabled = fmt.Errorf("session persistence is disabled")

	errAlreadyRegistered = fmt.Errorf("session already registered")
)
