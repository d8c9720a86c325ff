package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dhruvsoni1802/browser-webdriver/internal/pool"
	"github.com/dhruvsoni1802/browser-webdriver/internal/session"
	"github.com/dhruvsoni1802/browser-webdriver/internal/webdriver"
)

// Handlers contains HTTP handlers for the API
type Handlers struct {
	sessionManager *session.Manager
	loadBalancer   *pool.LoadBalancer
}

// NewHandlers creates a new Handlers instance
func NewHandlers(manager *session.Manager, loadBalancer *pool.LoadBalancer) *Handlers {
	return &Handlers{
		sessionManager: manager,
		loadBalancer:   loadBalancer,
	}
}

// CreateSession handles POST /sessions
func (h *Handlers) CreateSession(w http.ResponseWriter, r *http.Request) {
	// An empty body asks for a default session
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON body")
		return
	}

	sess, err := h.sessionManager.CreateSession(r.Context(), req.SessionName, req.Capabilities)
	if err != nil {
		writeSessionError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toSessionInfo(sess))
}

// AttachSession handles POST /sessions/attach
func (h *Handlers) AttachSession(w http.ResponseWriter, r *http.Request) {
	var req AttachSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON body")
		return
	}
	if req.SessionID == "" || req.Endpoint == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "session_id and endpoint are required")
		return
	}

	sess, err := h.sessionManager.AttachSession(r.Context(), req.SessionID, req.Endpoint, req.SessionName)
	if err != nil {
		writeSessionError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toSessionInfo(sess))
}

// ListSessions handles GET /sessions
func (h *Handlers) ListSessions(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("persisted") == "true" {
		h.listPersistedSessions(w)
		return
	}

	sessions := h.sessionManager.ListSessions()

	infos := make([]SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		infos = append(infos, toSessionInfo(sess))
	}

	writeJSON(w, http.StatusOK, ListSessionsResponse{
		Sessions: infos,
		Count:    len(infos),
	})
}

// listPersistedSessions handles GET /sessions?persisted=true: every record in
// Redis, including sessions another gateway process created
func (h *Handlers) listPersistedSessions(w http.ResponseWriter) {
	states, err := h.sessionManager.ListPersistedSessions()
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PersistedSessionsResponse{
		Sessions: states,
		Count:    len(states),
	})
}

// GetSession handles GET /sessions/{id}
func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessionManager.GetSession(chi.URLParam(r, "id"))
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionInfo(sess))
}

// DestroySession handles DELETE /sessions/{id}
func (h *Handlers) DestroySession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessionManager.DestroySession(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeSessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ResumeSession handles POST /sessions/{id}/resume
func (h *Handlers) ResumeSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessionManager.ResumeSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionInfo(sess))
}

// RenameSession handles PUT /sessions/{id}/rename
func (h *Handlers) RenameSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	var req RenameSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON body")
		return
	}

	if err := h.sessionManager.RenameSession(sessionID, req.SessionName); err != nil {
		writeSessionError(w, err)
		return
	}

	sess, err := h.sessionManager.GetSession(sessionID)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionInfo(sess))
}

// GetAlertText handles GET /sessions/{id}/alert/text
func (h *Handlers) GetAlertText(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	text, err := h.sessionManager.GetAlertText(r.Context(), sessionID)
	if err != nil {
		writeSessionError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, AlertTextResponse{
		SessionID: sessionID,
		Text:      text,
	})
}

// SendAlertText handles POST /sessions/{id}/alert/text
func (h *Handlers) SendAlertText(w http.ResponseWriter, r *http.Request) {
	var req SendAlertTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON body")
		return
	}
	if req.Text == nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "text is required")
		return
	}

	keys := make([]webdriver.Key, 0, len(req.Keys))
	for _, name := range req.Keys {
		k, ok := webdriver.ParseKey(name)
		if !ok {
			writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, fmt.Sprintf("unknown key %q", name))
			return
		}
		keys = append(keys, k)
	}

	data := webdriver.Keys(keys...).AppendText(*req.Text)
	if err := h.sessionManager.SendAlertText(r.Context(), chi.URLParam(r, "id"), data); err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// AcceptAlert handles POST /sessions/{id}/alert/accept
func (h *Handlers) AcceptAlert(w http.ResponseWriter, r *http.Request) {
	if err := h.sessionManager.AcceptAlert(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true, Message: "alert accepted"})
}

// DismissAlert handles POST /sessions/{id}/alert/dismiss
func (h *Handlers) DismissAlert(w http.ResponseWriter, r *http.Request) {
	if err := h.sessionManager.DismissAlert(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true, Message: "alert dismissed"})
}

// Metrics handles GET /metrics
func (h *Handlers) Metrics(w http.ResponseWriter, r *http.Request) {
	resp := MetricsResponse{PoolMetrics: h.loadBalancer.GetMetrics()}
	if n, err := h.sessionManager.PersistedSessionCount(); err == nil {
		resp.PersistedSessions = &n
	}
	writeJSON(w, http.StatusOK, resp)
}

// Health handles GET /healthz. It reports 503 when no endpoint can take
// new sessions.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	metrics := h.loadBalancer.GetMetrics()

	resp := HealthResponse{
		Status:           "ok",
		Sessions:         h.sessionManager.GetSessionCount(),
		HealthyEndpoints: metrics.Healthy,
	}
	status := http.StatusOK
	if metrics.Healthy == 0 {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// writeSessionError maps manager and WebDriver errors onto HTTP responses.
// Driver errors keep the driver's status and WebDriver error code.
func writeSessionError(w http.ResponseWriter, err error) {
	var (
		perr *webdriver.ProtocolError
		terr *webdriver.TransportError
		derr *webdriver.DecodeError
	)

	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, ErrCodeSessionNotFound, err.Error())
	case errors.Is(err, session.ErrSessionNameConflict):
		writeError(w, http.StatusConflict, ErrCodeSessionNameConflict, err.Error())
	case errors.Is(err, session.ErrInvalidSessionName):
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
	case errors.Is(err, session.ErrSessionLimitReached):
		writeError(w, http.StatusTooManyRequests, ErrCodeSessionLimit, err.Error())
	case errors.Is(err, session.ErrNoEndpoint):
		writeError(w, http.StatusServiceUnavailable, ErrCodeNoEndpoint, err.Error())
	case errors.Is(err, session.ErrPersistenceDisabled):
		writeError(w, http.StatusNotImplemented, ErrCodePersistenceDisabled, err.Error())
	case errors.As(err, &perr):
		status := perr.StatusCode
		if status < 400 {
			status = http.StatusInternalServerError
		}
		writeError(w, status, string(perr.Code), perr.Message)
	case errors.As(err, &terr):
		writeError(w, http.StatusBadGateway, ErrCodeTransportError, err.Error())
	case errors.As(err, &derr):
		writeError(w, http.StatusBadGateway, ErrCodeDecodeError, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
	}
}
