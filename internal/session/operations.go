package session

import (
	"context"
	"fmt"

	"github.com/dhruvsoni1802/browser-webdriver/internal/webdriver"
)

// handleFor looks up a session and records activity on it
func (m *Manager) handleFor(sessionID string) (*Handle, error) {
	session, err := m.GetSession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	m.touch(session)
	return session.Handle, nil
}

// GetAlertText returns the text of the active alert in a session
func (m *Manager) GetAlertText(ctx context.Context, sessionID string) (string, error) {
	h, err := m.handleFor(sessionID)
	if err != nil {
		return "", err
	}
	return h.GetAlertText(ctx)
}

// DismissAlert dismisses the active alert in a session
func (m *Manager) DismissAlert(ctx context.Context, sessionID string) error {
	h, err := m.handleFor(sessionID)
	if err != nil {
		return err
	}
	return h.DismissAlert(ctx)
}

// AcceptAlert accepts the active alert in a session
func (m *Manager) AcceptAlert(ctx context.Context, sessionID string) error {
	h, err := m.handleFor(sessionID)
	if err != nil {
		return err
	}
	return h.AcceptAlert(ctx)
}

// SendAlertText types into the active prompt in a session
func (m *Manager) SendAlertText(ctx context.Context, sessionID string, keys webdriver.TypingData) error {
	h, err := m.handleFor(sessionID)
	if err != nil {
		return err
	}
	return h.SendAlertText(ctx, keys)
}
