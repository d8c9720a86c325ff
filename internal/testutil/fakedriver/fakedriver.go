// Package fakedriver is an in-process W3C WebDriver remote end that serves
// the session and user prompt endpoints. Tests open alerts on it directly
// and inspect every request it received.
package fakedriver

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Request is a request recorded by the fake driver.
type Request struct {
	Method string
	Path   string
	Body   []byte
}

type cannedResponse struct {
	status int
	body   string
}

type alertState struct {
	open     bool
	text     string
	typed    string
	accepted bool
}

// Server is a fake remote end. Create it with New.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	sessions  map[string]*alertState
	requests  []Request
	overrides map[string]cannedResponse
	ready     bool
}

// New starts a fake driver and registers its shutdown with t.Cleanup.
func New(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		sessions:  make(map[string]*alertState),
		overrides: make(map[string]cannedResponse),
		ready:     true,
	}

	router := chi.NewRouter()
	router.Use(s.record)
	router.Get("/status", s.handleStatus)
	router.Post("/session", s.handleNewSession)
	router.Route("/session/{id}", func(r chi.Router) {
		r.Delete("/", s.handleDeleteSession)
		r.Get("/alert/text", s.handleGetAlertText)
		r.Post("/alert/text", s.handleSendAlertText)
		r.Post("/alert/accept", s.handleCloseAlert(true))
		r.Post("/alert/dismiss", s.handleCloseAlert(false))
	})

	s.Server = httptest.NewServer(router)
	t.Cleanup(s.Close)
	return s
}

// AddSession registers a session without going through POST /session.
func (s *Server) AddSession() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	s.sessions[id] = &alertState{}
	return id
}

// OpenAlert opens a user prompt with the given text in a session.
func (s *Server) OpenAlert(sessionID, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.sessions[sessionID]
	if !ok {
		st = &alertState{}
		s.sessions[sessionID] = st
	}
	st.open = true
	st.text = text
	st.typed = ""
	st.accepted = false
}

// AlertOpen reports whether a prompt is open in the session.
func (s *Server) AlertOpen(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sessions[sessionID]
	return ok && st.open
}

// Typed returns what was last sent to the session's prompt.
func (s *Server) Typed(sessionID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.sessions[sessionID]; ok {
		return st.typed
	}
	return ""
}

// Accepted reports whether the last closed prompt was accepted.
func (s *Server) Accepted(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sessions[sessionID]
	return ok && st.accepted
}

func (s *Server) HasSession(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[sessionID]
	return ok
}

// SetReady controls the "ready" flag reported by GET /status.
func (s *Server) SetReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = ready
}

// Override makes method+path answer with a fixed status and raw body.
func (s *Server) Override(method, path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[method+" "+path] = cannedResponse{status: status, body: body}
}

// Requests returns a copy of every request received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// LastRequest returns the most recent request, or the zero Request.
func (s *Server) LastRequest() Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return Request{}
	}
	return s.requests[len(s.requests)-1]
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		s.mu.Lock()
		s.requests = append(s.requests, Request{Method: r.Method, Path: r.URL.Path, Body: body})
		canned, overridden := s.overrides[r.Method+" "+r.URL.Path]
		s.mu.Unlock()

		if overridden {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(canned.status)
			_, _ = io.WriteString(w, canned.body)
			return
		}

		r.Body = io.NopCloser(bytes.NewReader(body))
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	ready := s.ready
	s.mu.Unlock()

	message := "ready to create sessions"
	if !ready {
		message = "busy"
	}
	writeValue(w, http.StatusOK, map[string]any{"ready": ready, "message": message})
}

func (s *Server) handleNewSession(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Capabilities map[string]any `json:"capabilities"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid argument", "malformed new session body")
		return
	}

	id := s.AddSession()
	writeValue(w, http.StatusOK, map[string]any{
		"sessionId":    id,
		"capabilities": map[string]any{"browserName": "fake", "acceptInsecureCerts": false},
	})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, "invalid session id", "session "+id+" does not exist")
		return
	}
	writeValue(w, http.StatusOK, nil)
}

func (s *Server) handleGetAlertText(w http.ResponseWriter, r *http.Request) {
	st, ok := s.openAlert(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	text := st.text
	s.mu.Unlock()
	writeValue(w, http.StatusOK, text)
}

func (s *Server) handleSendAlertText(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text *string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Text == nil {
		writeError(w, http.StatusBadRequest, "invalid argument", "text must be a string")
		return
	}

	st, ok := s.openAlert(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	st.typed = *body.Text
	s.mu.Unlock()
	writeValue(w, http.StatusOK, nil)
}

func (s *Server) handleCloseAlert(accept bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, ok := s.openAlert(w, r)
		if !ok {
			return
		}
		s.mu.Lock()
		st.open = false
		st.accepted = accept
		s.mu.Unlock()
		writeValue(w, http.StatusOK, nil)
	}
}

// openAlert resolves the session and its open prompt or writes the
// matching WebDriver error.
func (s *Server) openAlert(w http.ResponseWriter, r *http.Request) (*alertState, bool) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	st, ok := s.sessions[id]
	open := ok && st.open
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, "invalid session id", "session "+id+" does not exist")
		return nil, false
	}
	if !open {
		writeError(w, http.StatusNotFound, "no such alert", "no user prompt is currently open")
		return nil, false
	}
	return st, true
}

func writeValue(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"value": value})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeValue(w, status, map[string]any{
		"error":      code,
		"message":    message,
		"stacktrace": "",
	})
}
