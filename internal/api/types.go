package api

import (
	"time"

	"github.com/dhruvsoni1802/browser-webdriver/internal/pool"
	"github.com/dhruvsoni1802/browser-webdriver/internal/session"
	"github.com/dhruvsoni1802/browser-webdriver/internal/storage"
)

// Request Types

// CreateSessionRequest for POST /sessions
type CreateSessionRequest struct {
	SessionName string `json:"session_name,omitempty"`
	// Passed through to the driver as the "capabilities" member
	Capabilities map[string]any `json:"capabilities,omitempty"`
}

// AttachSessionRequest for POST /sessions/attach
type AttachSessionRequest struct {
	SessionID   string `json:"session_id"`
	Endpoint    string `json:"endpoint"`
	SessionName string `json:"session_name,omitempty"`
}

// RenameSessionRequest for PUT /sessions/{id}/rename
type RenameSessionRequest struct {
	SessionName string `json:"session_name"`
}

// SendAlertTextRequest for POST /sessions/{id}/alert/text. Keys are named
// keys ("Control", "Shift", ...) pressed before Text is typed.
type SendAlertTextRequest struct {
	Text *string  `json:"text"`
	Keys []string `json:"keys,omitempty"`
}

// Response Types

// SessionInfo describes a session in every session response
type SessionInfo struct {
	SessionID    string                `json:"session_id"`
	SessionName  string                `json:"session_name"`
	Endpoint     string                `json:"endpoint"`
	Capabilities map[string]any        `json:"capabilities,omitempty"`
	CreatedAt    time.Time             `json:"created_at"`
	LastActivity time.Time             `json:"last_activity"`
	Status       session.SessionStatus `json:"status"`
}

// ListSessionsResponse returned with all sessions
type ListSessionsResponse struct {
	Sessions []SessionInfo `json:"sessions"`
	Count    int           `json:"count"`
}

// PersistedSessionsResponse lists session records stored in Redis
type PersistedSessionsResponse struct {
	Sessions []*storage.SessionState `json:"sessions"`
	Count    int                     `json:"count"`
}

// MetricsResponse is the pool snapshot plus the Redis session count when
// persistence is enabled
type MetricsResponse struct {
	pool.PoolMetrics
	PersistedSessions *int `json:"persisted_sessions,omitempty"`
}

// AlertTextResponse returned by GET /sessions/{id}/alert/text
type AlertTextResponse struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

// SuccessResponse for operations that just need success confirmation
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// HealthResponse returned by GET /healthz
type HealthResponse struct {
	Status           string `json:"status"`
	Sessions         int    `json:"sessions"`
	HealthyEndpoints int    `json:"healthy_endpoints"`
}

// Error Types

// ErrorResponse for all error cases
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information. Code is either one of the
// ErrCode constants below or the driver's own WebDriver error code.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes
const (
	ErrCodeSessionNotFound     = "SESSION_NOT_FOUND"
	ErrCodeSessionNameConflict = "SESSION_NAME_CONFLICT"
	ErrCodeSessionLimit        = "SESSION_LIMIT_REACHED"
	ErrCodeNoEndpoint          = "NO_ENDPOINT_AVAILABLE"
	ErrCodePersistenceDisabled = "PERSISTENCE_DISABLED"
	ErrCodeInvalidRequest      = "INVALID_REQUEST"
	ErrCodeTransportError      = "DRIVER_UNREACHABLE"
	ErrCodeDecodeError         = "DRIVER_RESPONSE_INVALID"
	ErrCodeInternalError       = "INTERNAL_ERROR"
)

func toSessionInfo(s *session.Session) SessionInfo {
	return SessionInfo{
		SessionID:    s.ID,
		SessionName:  s.Name(),
		Endpoint:     s.Endpoint,
		Capabilities: s.Capabilities,
		CreatedAt:    s.CreatedAt,
		LastActivity: s.LastActivity(),
		Status:       s.Status(),
	}
}
