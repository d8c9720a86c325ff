package storage

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
)

var (
	// ErrSessionNotFound is returned when no live hash exists for a session
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionNameTaken is returned when another live session holds a name
	ErrSessionNameTaken = errors.New("session name already taken")
)

// SessionRepository handles session persistence in Redis
type SessionRepository struct {
	redis *RedisClient  // The Redis client to use for persistence
	ttl   time.Duration // Default TTL for sessions
}

// DefaultSessionTTL is used when NewSessionRepository is given no TTL
const DefaultSessionTTL = 24 * time.Hour

// NewSessionRepository creates a new session repository
func NewSessionRepository(redisClient *RedisClient, ttl time.Duration) *SessionRepository {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionRepository{
		redis: redisClient,
		ttl:   ttl,
	}
}

// SaveSession persists session state to Redis using a hash
func (r *SessionRepository) SaveSession(state *SessionState) error {
	if err := state.Validate(); err != nil {
		return fmt.Errorf("invalid session state: %w", err)
	}
	state.EnsureSessionName()

	key := sessionKey(state.SessionID)

	fields := map[string]interface{}{
		"session_id":    state.SessionID,
		"session_name":  state.SessionName,
		"endpoint":      state.Endpoint,
		"created_at":    state.CreatedAt.Format(time.RFC3339),
		"last_activity": state.LastActivity.Format(time.RFC3339),
		"status":        state.Status,
	}

	if err := r.redis.client.HSet(r.redis.ctx, key, fields).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	if err := r.redis.client.Expire(r.redis.ctx, key, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set TTL: %w", err)
	}

	if err := r.redis.client.SAdd(r.redis.ctx, activeSessionsKey(), state.SessionID).Err(); err != nil {
		slog.Warn("failed to add to active sessions set", "error", err)
	}

	if err := r.ReserveSessionName(state.SessionName, state.SessionID); err != nil {
		slog.Warn("failed to reserve session name",
			"session_id", state.SessionID,
			"session_name", state.SessionName,
			"error", err)
	}

	if len(state.Capabilities) > 0 {
		if err := r.SaveCapabilities(state.SessionID, state.Capabilities); err != nil {
			slog.Warn("failed to save capabilities", "error", err)
		}
	}

	slog.Debug("session saved to Redis", "session_id", state.SessionID)
	return nil
}

// GetSession retrieves session state from Redis
func (r *SessionRepository) GetSession(sessionID string) (*SessionState, error) {
	data, err := r.redis.client.HGetAll(r.redis.ctx, sessionKey(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	// Empty map means not found
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	state := &SessionState{
		SessionID:   data["session_id"],
		SessionName: data["session_name"],
		Endpoint:    data["endpoint"],
		Status:      data["status"],
	}

	if createdAt, err := time.Parse(time.RFC3339, data["created_at"]); err == nil {
		state.CreatedAt = createdAt
	}
	if lastActivity, err := time.Parse(time.RFC3339, data["last_activity"]); err == nil {
		state.LastActivity = lastActivity
	}

	if caps, err := r.GetCapabilities(sessionID); err == nil {
		state.Capabilities = caps
	}

	return state, nil
}

// ListActiveSessions returns the IDs of sessions whose hash still exists.
// IDs whose hash has expired are pruned from the active set.
func (r *SessionRepository) ListActiveSessions() ([]string, error) {
	ids, err := r.redis.client.SMembers(r.redis.ctx, activeSessionsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list active sessions: %w", err)
	}

	live := make([]string, 0, len(ids))
	for _, id := range ids {
		n, err := r.redis.client.Exists(r.redis.ctx, sessionKey(id)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to check session %s: %w", id, err)
		}
		if n == 0 {
			r.redis.client.SRem(r.redis.ctx, activeSessionsKey(), id)
			continue
		}
		live = append(live, id)
	}
	return live, nil
}

// DeleteSession removes a session and its name reservation from Redis
func (r *SessionRepository) DeleteSession(sessionID string) error {
	key := sessionKey(sessionID)

	// Look up the name first so its reservation can be released
	name, err := r.redis.client.HGet(r.redis.ctx, key, "session_name").Result()
	if err == nil && name != "" {
		if err := r.ReleaseSessionName(name, sessionID); err != nil {
			slog.Warn("failed to release session name", "error", err)
		}
	}

	if err := r.redis.client.Del(r.redis.ctx, key, capabilitiesKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	r.redis.client.SRem(r.redis.ctx, activeSessionsKey(), sessionID)

	slog.Debug("session deleted from Redis", "session_id", sessionID)
	return nil
}
