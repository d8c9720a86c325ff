package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// UpdateLastActivity updates the last activity timestamp and refreshes the
// TTL of the session, its capabilities and its name
func (r *SessionRepository) UpdateLastActivity(sessionID string) error {
	key := sessionKey(sessionID)
	if err := r.requireSession(sessionID); err != nil {
		return err
	}

	err := r.redis.client.HSet(r.redis.ctx, key, "last_activity", time.Now().Format(time.RFC3339)).Err()
	if err != nil {
		return fmt.Errorf("failed to update last activity: %w", err)
	}

	if err := r.redis.client.Expire(r.redis.ctx, key, r.ttl).Err(); err != nil {
		slog.Warn("failed to refresh TTL", "error", err)
	}
	r.redis.client.Expire(r.redis.ctx, capabilitiesKey(sessionID), r.ttl)

	if name, err := r.redis.client.HGet(r.redis.ctx, key, "session_name").Result(); err == nil && name != "" {
		r.redis.client.Expire(r.redis.ctx, sessionNameKey(name), r.ttl)
	}
	return nil
}

// UpdateStatus sets the status field of a stored session
func (r *SessionRepository) UpdateStatus(sessionID, status string) error {
	if err := r.requireSession(sessionID); err != nil {
		return err
	}
	if err := r.redis.client.HSet(r.redis.ctx, sessionKey(sessionID), "status", status).Err(); err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	return nil
}

// requireSession keeps single-field updates from recreating an expired
// session as a partial hash without a TTL
func (r *SessionRepository) requireSession(sessionID string) error {
	n, err := r.redis.client.Exists(r.redis.ctx, sessionKey(sessionID)).Result()
	if err != nil {
		return fmt.Errorf("failed to check session: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return nil
}

// SaveCapabilities stores the negotiated capabilities as a JSON string
func (r *SessionRepository) SaveCapabilities(sessionID string, caps map[string]any) error {
	data, err := json.Marshal(caps)
	if err != nil {
		return fmt.Errorf("failed to marshal capabilities: %w", err)
	}

	if err := r.redis.client.Set(r.redis.ctx, capabilitiesKey(sessionID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save capabilities: %w", err)
	}
	return nil
}

// GetCapabilities retrieves stored capabilities; a missing key yields nil
func (r *SessionRepository) GetCapabilities(sessionID string) (map[string]any, error) {
	data, err := r.redis.client.Get(r.redis.ctx, capabilitiesKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get capabilities: %w", err)
	}

	var caps map[string]any
	if err := json.Unmarshal([]byte(data), &caps); err != nil {
		return nil, fmt.Errorf("failed to unmarshal capabilities: %w", err)
	}
	return caps, nil
}

// GetSessionByName returns the ID of the live session holding name
func (r *SessionRepository) GetSessionByName(sessionName string) (string, error) {
	owner, err := r.nameOwner(sessionName)
	if err != nil {
		return "", err
	}
	if owner == "" {
		return "", fmt.Errorf("%w: name '%s'", ErrSessionNotFound, sessionName)
	}
	return owner, nil
}

// CheckSessionNameExists reports whether a live session holds name
func (r *SessionRepository) CheckSessionNameExists(sessionName string) (bool, error) {
	owner, err := r.nameOwner(sessionName)
	if err != nil {
		return false, err
	}
	return owner != "", nil
}

// nameOwner returns the session holding name, or "" when the name is free.
// A name whose owning session hash has expired counts as free.
func (r *SessionRepository) nameOwner(sessionName string) (string, error) {
	owner, err := r.redis.client.Get(r.redis.ctx, sessionNameKey(sessionName)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to check session name: %w", err)
	}

	n, err := r.redis.client.Exists(r.redis.ctx, sessionKey(owner)).Result()
	if err != nil {
		return "", fmt.Errorf("failed to check session name: %w", err)
	}
	if n == 0 {
		return "", nil
	}
	return owner, nil
}

// ReserveSessionName maps a name to a session ID with the session TTL. It
// fails with ErrSessionNameTaken if another live session holds the name.
func (r *SessionRepository) ReserveSessionName(sessionName, sessionID string) error {
	if sessionName == "" {
		return nil
	}
	key := sessionNameKey(sessionName)

	ok, err := r.redis.client.SetNX(r.redis.ctx, key, sessionID, r.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to reserve session name: %w", err)
	}
	if ok {
		return nil
	}

	owner, err := r.nameOwner(sessionName)
	if err != nil {
		return err
	}
	if owner != "" && owner != sessionID {
		return fmt.Errorf("%w: '%s'", ErrSessionNameTaken, sessionName)
	}

	// Ours already, or left behind by a session that has expired
	if err := r.redis.client.Set(r.redis.ctx, key, sessionID, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to reserve session name: %w", err)
	}
	return nil
}

// ReleaseSessionName removes the name mapping if sessionID still owns it
func (r *SessionRepository) ReleaseSessionName(sessionName, sessionID string) error {
	if sessionName == "" {
		return nil
	}
	key := sessionNameKey(sessionName)

	owner, err := r.redis.client.Get(r.redis.ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to release session name: %w", err)
	}
	if owner != sessionID {
		return nil
	}
	return r.redis.client.Del(r.redis.ctx, key).Err()
}

// RenameSession moves a session to a new name
func (r *SessionRepository) RenameSession(sessionID, oldName, newName string) error {
	if err := r.requireSession(sessionID); err != nil {
		return err
	}
	if err := r.ReserveSessionName(newName, sessionID); err != nil {
		return err
	}

	if oldName != "" && oldName != newName {
		if err := r.ReleaseSessionName(oldName, sessionID); err != nil {
			slog.Warn("failed to release old session name", "error", err)
		}
	}

	if err := r.redis.client.HSet(r.redis.ctx, sessionKey(sessionID), "session_name", newName).Err(); err != nil {
		return fmt.Errorf("failed to update session name: %w", err)
	}

	slog.Info("session renamed in Redis",
		"session_id", sessionID,
		"old_name", oldName,
		"new_name", newName)
	return nil
}

// CountSessions returns the number of live persisted sessions
func (r *SessionRepository) CountSessions() (int, error) {
	ids, err := r.ListActiveSessions()
	if err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return len(ids), nil
}

// ListSessions returns every active session with details, skipping
// entries whose hash has expired
func (r *SessionRepository) ListSessions() ([]*SessionState, error) {
	sessionIDs, err := r.ListActiveSessions()
	if err != nil {
		return nil, err
	}

	sessions := make([]*SessionState, 0, len(sessionIDs))
	for _, sessionID := range sessionIDs {
		state, err := r.GetSession(sessionID)
		if err != nil {
			slog.Warn("failed to load session",
				"session_id", sessionID,
				"error", err)
			continue
		}
		sessions = append(sessions, state)
	}
	return sessions, nil
}
