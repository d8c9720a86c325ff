package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dhruvsoni1802/browser-webdriver/internal/pool"
	"github.com/dhruvsoni1802/browser-webdriver/internal/storage"
	"github.com/dhruvsoni1802/browser-webdriver/internal/webdriver"
)

// Manager tracks every WebDriver session this service created or attached to
type Manager struct {
	sessions map[string]*Session
	mu       sync.RWMutex
	ctx      context.Context
	cancel   context.CancelFunc

	balancer *pool.LoadBalancer
	repo     *storage.SessionRepository // nil when persistence is disabled
	logger   *slog.Logger

	// Invokers for endpoints outside the pool, keyed by base URL
	invokers    map[string]*webdriver.Invoker
	invokerOpts []webdriver.Option

	maxSessions int
}

// ManagerOption configures a Manager
type ManagerOption func(*Manager)

// WithMaxSessions overrides MaxTotalSessions
func WithMaxSessions(n int) ManagerOption {
	return func(m *Manager) {
		if n > 0 {
			m.maxSessions = n
		}
	}
}

// WithInvokerOptions sets the options used for invokers the manager builds
// itself when attaching to endpoints outside the pool.
func WithInvokerOptions(opts ...webdriver.Option) ManagerOption {
	return func(m *Manager) {
		m.invokerOpts = append(m.invokerOpts, opts...)
	}
}

func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager creates a new session manager. repo may be nil.
func NewManager(balancer *pool.LoadBalancer, repo *storage.SessionRepository, opts ...ManagerOption) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	m := &Manager{
		sessions:    make(map[string]*Session),
		ctx:         ctx,
		cancel:      cancel,
		balancer:    balancer,
		repo:        repo,
		logger:      slog.Default(),
		invokers:    make(map[string]*webdriver.Invoker),
		maxSessions: MaxTotalSessions,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CreateSession asks the least loaded endpoint for a new session and registers it
func (m *Manager) CreateSession(ctx context.Context, name string, caps webdriver.Capabilities) (*Session, error) {
	if err := m.checkLimits(name); err != nil {
		return nil, err
	}

	endpoint, err := m.balancer.SelectEndpoint()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoEndpoint, err)
	}

	result, err := newRemoteSession(ctx, endpoint.Invoker(), caps)
	if err != nil {
		return nil, fmt.Errorf("failed to create session on %s: %w", endpoint.URL(), err)
	}

	handle, err := NewHandle(result.SessionID, endpoint.Invoker())
	if err != nil {
		return nil, err
	}

	session := newSession(handle, name, result.Capabilities, time.Now())
	if err := m.register(session); err != nil {
		// The remote session exists but we cannot track it; do not leak it
		m.deleteRemote(ctx, handle)
		return nil, err
	}
	endpoint.IncrementSessionCount()
	m.persist(session)

	m.logger.Info("session created",
		"session_id", session.ID,
		"session_name", session.Name(),
		"endpoint", session.Endpoint)

	return session, nil
}

// AttachSession registers a session that already exists on a remote end.
// No command is sent; the first operation will surface an invalid id.
func (m *Manager) AttachSession(ctx context.Context, sessionID, endpointURL, name string) (*Session, error) {
	if err := m.checkLimits(name); err != nil {
		return nil, err
	}

	invoker, err := m.invokerFor(endpointURL)
	if err != nil {
		return nil, err
	}

	handle, err := NewHandle(sessionID, invoker)
	if err != nil {
		return nil, err
	}

	session := newSession(handle, name, nil, time.Now())
	if err := m.register(session); err != nil {
		return nil, err
	}
	if e, ok := m.balancer.Lookup(handle.Endpoint()); ok {
		e.IncrementSessionCount()
	}
	m.persist(session)

	m.logger.Info("session attached",
		"session_id", session.ID,
		"session_name", session.Name(),
		"endpoint", session.Endpoint)

	return session, nil
}

func newRemoteSession(ctx context.Context, invoker *webdriver.Invoker, caps webdriver.Capabilities) (webdriver.NewSessionResult, error) {
	resp, err := invoker.Cmd(ctx, "", webdriver.NewSession{Capabilities: caps})
	if err != nil {
		return webdriver.NewSessionResult{}, err
	}
	result, err := webdriver.DecodeValue[webdriver.NewSessionResult](resp)
	if err != nil {
		return webdriver.NewSessionResult{}, err
	}
	if result.SessionID == "" {
		return webdriver.NewSessionResult{}, &webdriver.DecodeError{
			Expected: "sessionId",
			Actual:   "empty string",
			Raw:      resp.Value,
		}
	}
	return result, nil
}

// invokerFor reuses the pool's invoker for known endpoints and caches one
// per URL otherwise.
func (m *Manager) invokerFor(endpointURL string) (*webdriver.Invoker, error) {
	if e, ok := m.balancer.Lookup(endpointURL); ok {
		return e.Invoker(), nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if inv, ok := m.invokers[endpointURL]; ok {
		return inv, nil
	}
	inv, err := webdriver.NewInvoker(endpointURL, m.invokerOpts...)
	if err != nil {
		return nil, err
	}
	m.invokers[endpointURL] = inv
	return inv, nil
}

func (m *Manager) checkLimits(name string) error {
	if name != "" && m.repo != nil {
		exists, err := m.repo.CheckSessionNameExists(name)
		if err != nil {
			m.logger.Warn("failed to check session name", "error", err)
		} else if exists {
			return ErrSessionNameConflict
		}
	}

	m.mu.RLock()
	total := len(m.sessions)
	m.mu.RUnlock()

	if total >= m.maxSessions {
		return fmt.Errorf("%w: %d sessions (max %d)", ErrSessionLimitReached, total, m.maxSessions)
	}
	return nil
}

// register adds the session under the write lock, generating a name when
// none was given and enforcing name uniqueness.
func (m *Manager) register(session *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[session.ID]; exists {
		return fmt.Errorf("%w: %s", errAlreadyRegistered, session.ID)
	}
	if len(m.sessions) >= m.maxSessions {
		return fmt.Errorf("%w: max %d", ErrSessionLimitReached, m.maxSessions)
	}

	if session.Name() == "" {
		session.setName(generateSessionName(session))
	}
	for _, other := range m.sessions {
		if other.Name() == session.Name() {
			return ErrSessionNameConflict
		}
	}

	m.sessions[session.ID] = session
	return nil
}

// generateSessionName builds a name like "session-2026-02-08-1a2b3c4d"
func generateSessionName(session *Session) string {
	shortID := session.ID
	if len(shortID) > 8 {
		shortID = shortID[:8]
	}
	return fmt.Sprintf("%s-%s-%s", DefaultSessionNamePrefix, session.CreatedAt.Format("2006-01-02"), shortID)
}

func sessionToState(s *Session) *storage.SessionState {
	return &storage.SessionState{
		SessionID:    s.ID,
		SessionName:  s.Name(),
		Endpoint:     s.Endpoint,
		CreatedAt:    s.CreatedAt,
		LastActivity: s.LastActivity(),
		Status:       string(s.Status()),
		Capabilities: s.Capabilities,
	}
}

func (m *Manager) persist(session *Session) {
	if m.repo == nil {
		return
	}
	if err := m.repo.SaveSession(sessionToState(session)); err != nil {
		m.logger.Warn("failed to persist session to Redis",
			"session_id", session.ID,
			"error", err)
	}
}

// GetSession retrieves a session by ID
func (m *Manager) GetSession(sessionID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[sessionID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return session, nil
}

// GetSessionByName finds an in-memory session by its name
func (m *Manager) GetSessionByName(name string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, session := range m.sessions {
		if session.Name() == name {
			return session, nil
		}
	}
	return nil, fmt.Errorf("%w: name %q", ErrSessionNotFound, name)
}

// DestroySession deletes the remote session and forgets it locally. A remote
// end that no longer knows the id is treated as already deleted.
func (m *Manager) DestroySession(ctx context.Context, sessionID string) error {
	return m.destroy(ctx, sessionID, SessionClosed)
}

// destroy removes the session locally and remotely and records final as its
// status. The Redis record is dropped once the remote session is gone; if the
// remote delete fails it is kept, marked final, so it is not resumed.
func (m *Manager) destroy(ctx context.Context, sessionID string, final SessionStatus) error {
	m.mu.Lock()
	session, exists := m.sessions[sessionID]
	if exists {
		delete(m.sessions, sessionID)
	}
	m.mu.Unlock()

	if !exists {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	err := m.deleteRemote(ctx, session.Handle)

	session.setStatus(final)
	if e, ok := m.balancer.Lookup(session.Endpoint); ok {
		e.DecrementSessionCount()
	}
	if m.repo != nil {
		if err == nil {
			if err := m.repo.DeleteSession(sessionID); err != nil {
				m.logger.Warn("failed to delete session from Redis", "error", err)
			}
		} else if err := m.repo.UpdateStatus(sessionID, string(final)); err != nil && !errors.Is(err, storage.ErrSessionNotFound) {
			m.logger.Warn("failed to update session status",
				"session_id", sessionID,
				"status", final,
				"error", err)
		}
	}

	m.logger.Info("session destroyed",
		"session_id", sessionID,
		"session_name", session.Name(),
		"status", final)

	return err
}

func (m *Manager) deleteRemote(ctx context.Context, handle *Handle) error {
	_, err := handle.Cmd(ctx, webdriver.DeleteSession{})
	if err == nil || errors.Is(err, webdriver.ErrInvalidSessionID) {
		return nil
	}
	return fmt.Errorf("failed to delete remote session: %w", err)
}

// ListSessions returns all active sessions
func (m *Manager) ListSessions() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sessions := make([]*Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		sessions = append(sessions, session)
	}
	return sessions
}

// GetSessionCount returns the number of active sessions
func (m *Manager) GetSessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// ListPersistedSessions returns every live session record in Redis,
// including ones this process has not resumed
func (m *Manager) ListPersistedSessions() ([]*storage.SessionState, error) {
	if m.repo == nil {
		return nil, ErrPersistenceDisabled
	}
	return m.repo.ListSessions()
}

// PersistedSessionCount returns the number of live session records in Redis
func (m *Manager) PersistedSessionCount() (int, error) {
	if m.repo == nil {
		return 0, ErrPersistenceDisabled
	}
	return m.repo.CountSessions()
}

// ResumeSession returns the in-memory session or rebuilds it from Redis
func (m *Manager) ResumeSession(ctx context.Context, sessionID string) (*Session, error) {
	if session, err := m.GetSession(sessionID); err == nil {
		m.touch(session)
		return session, nil
	}

	if m.repo == nil {
		return nil, fmt.Errorf("%w: %s (persistence disabled)", ErrSessionNotFound, sessionID)
	}

	state, err := m.repo.GetSession(sessionID)
	if errors.Is(err, storage.ErrSessionNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if state.Status != "" && state.Status != string(SessionActive) {
		return nil, fmt.Errorf("%w: %s is %s", ErrSessionNotFound, sessionID, state.Status)
	}

	invoker, err := m.invokerFor(state.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild invoker: %w", err)
	}
	handle, err := NewHandle(state.SessionID, invoker)
	if err != nil {
		return nil, err
	}

	session := newSession(handle, state.SessionName, state.Capabilities, state.CreatedAt)

	if err := m.register(session); err != nil {
		if errors.Is(err, errAlreadyRegistered) {
			// Another caller resumed it first
			return m.GetSession(sessionID)
		}
		return nil, err
	}

	if e, ok := m.balancer.Lookup(session.Endpoint); ok {
		e.IncrementSessionCount()
	}
	m.touch(session)

	m.logger.Info("resurrected session from Redis",
		"session_id", session.ID,
		"session_name", session.Name())

	return session, nil
}

// RenameSession updates a session's name
func (m *Manager) RenameSession(sessionID, newName string) error {
	if newName == "" {
		return ErrInvalidSessionName
	}

	session, err := m.GetSession(sessionID)
	if err != nil {
		return err
	}
	oldName := session.Name()
	if oldName == newName {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for id, other := range m.sessions {
		if id != sessionID && other.Name() == newName {
			return ErrSessionNameConflict
		}
	}

	expired := false
	if m.repo != nil {
		err := m.repo.RenameSession(sessionID, oldName, newName)
		switch {
		case errors.Is(err, storage.ErrSessionNameTaken):
			return fmt.Errorf("%w: %q", ErrSessionNameConflict, newName)
		case errors.Is(err, storage.ErrSessionNotFound):
			expired = true
		case err != nil:
			return fmt.Errorf("failed to rename session: %w", err)
		}
	}
	session.setName(newName)
	if expired {
		// The Redis record lapsed while the session stayed in use
		m.persist(session)
		if err := m.repo.ReleaseSessionName(oldName, sessionID); err != nil {
			m.logger.Warn("failed to release old session name", "error", err)
		}
	}

	m.logger.Info("session renamed",
		"session_id", sessionID,
		"old_name", oldName,
		"new_name", newName)

	return nil
}

// touch records activity locally and in Redis
func (m *Manager) touch(session *Session) {
	session.UpdateActivity()
	if m.repo != nil {
		if err := m.repo.UpdateLastActivity(session.ID); err != nil && !errors.Is(err, storage.ErrSessionNotFound) {
			m.logger.Warn("failed to update last activity", "session_id", session.ID, "error", err)
		}
	}
}

// Close stops background workers and forgets local sessions. Remote
// sessions are left running so they can be resumed later.
func (m *Manager) Close() error {
	m.cancel()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions = make(map[string]*Session)
	m.invokers = make(map[string]*webdriver.Invoker)
	return nil
}

// StartCleanupWorker starts a background worker to clean up expired sessions
func (m *Manager) StartCleanupWorker(interval, timeout time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		m.logger.Info("cleanup worker started",
			"check_interval", interval,
			"session_timeout", timeout)

		for {
			select {
			case <-m.ctx.Done():
				m.logger.Info("cleanup worker stopping")
				return

			case <-ticker.C:
				m.cleanupExpiredSessions(m.ctx, timeout)
			}
		}
	}()
}

// cleanupExpiredSessions removes sessions inactive for longer than timeout
func (m *Manager) cleanupExpiredSessions(ctx context.Context, timeout time.Duration) int {
	// Phase 1: collect under the read lock
	m.mu.RLock()
	expired := make([]*Session, 0)
	for _, session := range m.sessions {
		if session.IsExpired(timeout) {
			expired = append(expired, session)
		}
	}
	m.mu.RUnlock()

	if len(expired) == 0 {
		return 0
	}

	m.logger.Info("cleaning up expired sessions",
		"count", len(expired),
		"timeout", timeout)

	// Phase 2: destroy, each call takes its own lock
	for _, session := range expired {
		if err := m.destroy(ctx, session.ID, SessionExpired); err != nil {
			m.logger.Warn("failed to destroy expired session",
				"session_id", session.ID,
				"error", err)
		}
	}
	return len(expired)
}
