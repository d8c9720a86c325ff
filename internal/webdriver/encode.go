package webdriver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// RequestData is the protocol request a Command maps to. Path is relative to
// the remote end's base URL; Body is nil when the request has no body.
type RequestData struct {
	Command string
	Method  string
	Path    string
	Body    []byte
}

// emptyBody is sent with POST commands that carry no parameters.
var emptyBody = []byte("{}")

type sendAlertTextBody struct {
	Text string `json:"text"`
}

type newSessionBody struct {
	Capabilities Capabilities `json:"capabilities"`
}

// Encode maps cmd to its request. Session-scoped commands need a non-empty
// sessionID. Identical commands always encode to identical bytes.
func Encode(sessionID string, cmd Command) (RequestData, error) {
	switch c := cmd.(type) {
	case GetAlertText:
		return sessionRequest(sessionID, c, http.MethodGet, "/alert/text", nil)

	case DismissAlert:
		return sessionRequest(sessionID, c, http.MethodPost, "/alert/dismiss", emptyBody)

	case AcceptAlert:
		return sessionRequest(sessionID, c, http.MethodPost, "/alert/accept", emptyBody)

	case SendAlertText:
		body, err := json.Marshal(sendAlertTextBody{Text: c.Text.String()})
		if err != nil {
			return RequestData{}, fmt.Errorf("failed to encode %s body: %w", c.Name(), err)
		}
		return sessionRequest(sessionID, c, http.MethodPost, "/alert/text", body)

	case NewSession:
		caps := c.Capabilities
		if caps == nil {
			caps = Capabilities{}
		}
		// encoding/json sorts map keys, so capability bodies stay deterministic
		body, err := json.Marshal(newSessionBody{Capabilities: caps})
		if err != nil {
			return RequestData{}, fmt.Errorf("failed to encode %s body: %w", c.Name(), err)
		}
		return RequestData{Command: c.Name(), Method: http.MethodPost, Path: "/session", Body: body}, nil

	case DeleteSession:
		return sessionRequest(sessionID, c, http.MethodDelete, "", nil)

	case Status:
		return RequestData{Command: c.Name(), Method: http.MethodGet, Path: "/status"}, nil

	default:
		return RequestData{}, fmt.Errorf("%w: %T", ErrUnknownCommandType, cmd)
	}
}

func sessionRequest(sessionID string, cmd Command, method, suffix string, body []byte) (RequestData, error) {
	if sessionID == "" {
		return RequestData{}, fmt.Errorf("%s: %w", cmd.Name(), ErrMissingSessionID)
	}
	return RequestData{
		Command: cmd.Name(),
		Method:  method,
		Path:    "/session/" + url.PathEscape(sessionID) + suffix,
		Body:    body,
	}, nil
}
