package session

import (
	"context"
	"fmt"

	"github.com/dhruvsoni1802/browser-webdriver/internal/webdriver"
)

// Handle routes commands to one remote WebDriver session. Its fields never
// change after NewHandle, so a single *Handle can be shared by any number of
// goroutines and facades without locking.
type Handle struct {
	id      string
	invoker *webdriver.Invoker
}

// NewHandle binds a session id to the invoker for its remote end.
func NewHandle(sessionID string, invoker *webdriver.Invoker) (*Handle, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session id is required")
	}
	if invoker == nil {
		return nil, fmt.Errorf("invoker is required")
	}
	return &Handle{id: sessionID, invoker: invoker}, nil
}

// ID returns the remote session id.
func (h *Handle) ID() string {
	return h.id
}

// Endpoint returns the base URL of the remote end.
func (h *Handle) Endpoint() string {
	return h.invoker.BaseURL()
}

// Cmd sends one command to this session. Errors keep their kind
// (*webdriver.TransportError, *webdriver.ProtocolError, *webdriver.DecodeError)
// and can be recovered with errors.As.
func (h *Handle) Cmd(ctx context.Context, cmd webdriver.Command) (*webdriver.Response, error) {
	return h.invoker.Cmd(ctx, h.id, cmd)
}
