package webdriver

import (
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"
)

// ErrorCode is a W3C WebDriver error code such as "no such alert".
// It implements error so that errors.Is can match a ProtocolError by code.
type ErrorCode string

func (c ErrorCode) Error() string {
	return string(c)
}

// W3C WebDriver error codes
const (
	ErrElementClickIntercepted ErrorCode = "element click intercepted"
	ErrElementNotInteractable  ErrorCode = "element not interactable"
	ErrInsecureCertificate     ErrorCode = "insecure certificate"
	ErrInvalidArgument         ErrorCode = "invalid argument"
	ErrInvalidCookieDomain     ErrorCode = "invalid cookie domain"
	ErrInvalidElementState     ErrorCode = "invalid element state"
	ErrInvalidSelector         ErrorCode = "invalid selector"
	ErrInvalidSessionID        ErrorCode = "invalid session id"
	ErrJavascriptError         ErrorCode = "javascript error"
	ErrMoveTargetOutOfBounds   ErrorCode = "move target out of bounds"
	ErrNoSuchAlert             ErrorCode = "no such alert"
	ErrNoSuchCookie            ErrorCode = "no such cookie"
	ErrNoSuchElement           ErrorCode = "no such element"
	ErrNoSuchFrame             ErrorCode = "no such frame"
	ErrNoSuchWindow            ErrorCode = "no such window"
	ErrScriptTimeout           ErrorCode = "script timeout"
	ErrSessionNotCreated       ErrorCode = "session not created"
	ErrStaleElementReference   ErrorCode = "stale element reference"
	ErrTimeout                 ErrorCode = "timeout"
	ErrUnableToSetCookie       ErrorCode = "unable to set cookie"
	ErrUnableToCaptureScreen   ErrorCode = "unable to capture screen"
	ErrUnexpectedAlertOpen     ErrorCode = "unexpected alert open"
	ErrUnknownCommand          ErrorCode = "unknown command"
	ErrUnknownError            ErrorCode = "unknown error"
	ErrUnknownMethod           ErrorCode = "unknown method"
	ErrUnsupportedOperation    ErrorCode = "unsupported operation"
)

var (
	ErrUnknownCommandType = errors.New("unknown command type")
	ErrMissingSessionID   = errors.New("command requires a session id")
)

// TransportError is a connection-level failure: unreachable endpoint, timeout,
// cancelled request, unreadable or malformed response.
type TransportError struct {
	Method     string
	URL        string
	StatusCode int // zero when no response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("webdriver transport: %s %s: status %d: %v", e.Method, e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("webdriver transport: %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProtocolError is an error reported by the remote driver in a WebDriver
// error payload. Code and Message are kept exactly as the driver sent them.
type ProtocolError struct {
	StatusCode int
	Code       ErrorCode
	Message    string
	Stacktrace string
	Data       json.RawMessage
}

func (e *ProtocolError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("webdriver: %s (status %d)", e.Code, e.StatusCode)
	}
	return fmt.Sprintf("webdriver: %s: %s (status %d)", e.Code, e.Message, e.StatusCode)
}

// Is matches an ErrorCode target against the driver's code.
func (e *ProtocolError) Is(target error) bool {
	code, ok := target.(ErrorCode)
	return ok && code == e.Code
}

// DecodeError reports a response whose shape does not match what the
// command expects.
type DecodeError struct {
	Expected string
	Actual   string
	Raw      json.RawMessage
	Err      error
}

func (e *DecodeError) Error() string {
	msg := fmt.Sprintf("webdriver decode: expected %s, got %s", e.Expected, e.Actual)
	if len(e.Raw) > 0 {
		msg += fmt.Sprintf(" (%s)", truncate(string(e.Raw), 128))
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// truncate shortens s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
