package session

import (
	"context"
	"fmt"

	"github.com/dhruvsoni1802/browser-webdriver/internal/webdriver"
)

// GetAlertText returns the text of the active alert.
func (h *Handle) GetAlertText(ctx context.Context) (string, error) {
	resp, err := h.Cmd(ctx, webdriver.GetAlertText{})
	if err != nil {
		return "", err
	}

	text, err := webdriver.DecodeValue[string](resp)
	if err != nil {
		return "", fmt.Errorf("%s: %w", webdriver.GetAlertText{}.Name(), err)
	}
	return text, nil
}

// DismissAlert dismisses the active alert.
func (h *Handle) DismissAlert(ctx context.Context) error {
	_, err := h.Cmd(ctx, webdriver.DismissAlert{})
	return err
}

// AcceptAlert accepts the active alert.
func (h *Handle) AcceptAlert(ctx context.Context) error {
	_, err := h.Cmd(ctx, webdriver.AcceptAlert{})
	return err
}

// SendAlertText types keys into the active prompt. Key actions can be mixed
// with text:
//
//	h.SendAlertText(ctx, webdriver.KeyControl.With("a"))
//	h.SendAlertText(ctx, webdriver.Text("selenium"))
//	h.AcceptAlert(ctx)
func (h *Handle) SendAlertText(ctx context.Context, keys webdriver.TypingData) error {
	_, err := h.Cmd(ctx, webdriver.SendAlertText{Text: keys})
	return err
}

// Alert is the old alert API. It only forwards to its Handle.
//
// Deprecated: call the alert methods on Handle directly.
type Alert struct {
	handle *Handle
}

// NewAlert wraps h in the legacy alert API.
//
// Deprecated: call the alert methods on Handle directly.
func NewAlert(h *Handle) *Alert {
	return &Alert{handle: h}
}

// SwitchToAlert returns the legacy alert API for this session.
//
// Deprecated: call the alert methods on Handle directly.
func (h *Handle) SwitchToAlert() *Alert {
	return NewAlert(h)
}

// Text returns the text of the active alert.
//
// Deprecated: use Handle.GetAlertText.
func (a *Alert) Text(ctx context.Context) (string, error) {
	return a.handle.GetAlertText(ctx)
}

// Dismiss dismisses the active alert.
//
// Deprecated: use Handle.DismissAlert.
func (a *Alert) Dismiss(ctx context.Context) error {
	return a.handle.DismissAlert(ctx)
}

// Accept accepts the active alert.
//
// Deprecated: use Handle.AcceptAlert.
func (a *Alert) Accept(ctx context.Context) error {
	return a.handle.AcceptAlert(ctx)
}

// SendKeys types keys into the active prompt.
//
// Deprecated: use Handle.SendAlertText.
func (a *Alert) SendKeys(ctx context.Context, keys webdriver.TypingData) error {
	return a.handle.SendAlertText(ctx, keys)
}
