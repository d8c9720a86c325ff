package webdriver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultTimeout   = 60 * time.Second
	DefaultUserAgent = "browser-webdriver/1.0"

	// maxResponseSize bounds how much of a response body is read.
	maxResponseSize = 64 << 20
)

// HTTPClient is the subset of *http.Client the invoker needs.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// RawResponse is a successful (2xx) exchange whose body is valid JSON.
type RawResponse struct {
	StatusCode int
	Body       []byte
}

type Option func(*Invoker)

// WithHTTPClient replaces the default *http.Client.
func WithHTTPClient(c HTTPClient) Option {
	return func(i *Invoker) {
		i.client = c
	}
}

// WithLogger sets the logger used for per-request debug output.
func WithLogger(l *slog.Logger) Option {
	return func(i *Invoker) {
		i.logger = l
	}
}

// WithTimeout bounds each exchange. Zero disables the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(i *Invoker) {
		i.timeout = d
	}
}

func WithUserAgent(ua string) Option {
	return func(i *Invoker) {
		i.userAgent = ua
	}
}

// Invoker performs request/response exchanges against one remote end.
// It holds no per-request state and is safe for concurrent use.
type Invoker struct {
	baseURL   *url.URL
	client    HTTPClient
	logger    *slog.Logger
	timeout   time.Duration
	userAgent string
}

// NormalizeURL validates a remote end URL and strips any trailing slash,
// so "http://grid:4444/wd/hub/" and "http://grid:4444/wd/hub" compare equal.
func NormalizeURL(rawURL string) (string, error) {
	base, err := parseBaseURL(rawURL)
	if err != nil {
		return "", err
	}
	return base.String(), nil
}

func parseBaseURL(rawURL string) (*url.URL, error) {
	base, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid webdriver url %q: %w", rawURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid webdriver url %q: scheme must be http or https", rawURL)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("invalid webdriver url %q: missing host", rawURL)
	}
	base.Path = strings.TrimSuffix(base.Path, "/")
	return base, nil
}

// NewInvoker creates an invoker for the remote end at rawURL
// (e.g. "http://localhost:4444" or "http://grid:4444/wd/hub").
func NewInvoker(rawURL string, opts ...Option) (*Invoker, error) {
	base, err := parseBaseURL(rawURL)
	if err != nil {
		return nil, err
	}

	i := &Invoker{
		baseURL:   base,
		client:    http.DefaultClient,
		logger:    slog.Default(),
		timeout:   DefaultTimeout,
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// BaseURL returns the remote end URL without a trailing slash.
func (i *Invoker) BaseURL() string {
	return i.baseURL.String()
}

// Cmd sends one command: encode, invoke, decode. sessionID is ignored by
// commands that are not scoped to a session (NewSession, Status). Errors keep
// their kind (*TransportError, *ProtocolError, *DecodeError) for errors.As.
func (i *Invoker) Cmd(ctx context.Context, sessionID string, cmd Command) (*Response, error) {
	req, err := Encode(sessionID, cmd)
	if err != nil {
		return nil, err
	}

	raw, err := i.Invoke(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cmd.Name(), err)
	}

	resp, err := DecodeResponse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cmd.Name(), err)
	}
	return resp, nil
}

// Invoke performs exactly one exchange for req. It never retries.
func (i *Invoker) Invoke(ctx context.Context, req RequestData) (*RawResponse, error) {
	target := i.baseURL.String() + req.Path

	if i.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, &TransportError{Method: req.Method, URL: target, Err: err}
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", i.userAgent)
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json; charset=utf-8")
	}

	start := time.Now()
	resp, err := i.client.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Method: req.Method, URL: target, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &TransportError{Method: req.Method, URL: target, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	i.logger.Debug("webdriver exchange",
		"command", req.Command,
		"method", req.Method,
		"path", req.Path,
		"status", resp.StatusCode,
		"duration", time.Since(start))

	// Non-success statuses are protocol errors when the body says so
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if perr := parseErrorBody(resp.StatusCode, data); perr != nil {
			return nil, perr
		}
		return nil, &TransportError{
			Method:     req.Method,
			URL:        target,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status without webdriver error body: %s", truncate(string(data), 128)),
		}
	}

	if !json.Valid(data) {
		return nil, &TransportError{
			Method:     req.Method,
			URL:        target,
			StatusCode: resp.StatusCode,
			Err:        errors.New("malformed response body: not valid JSON"),
		}
	}

	return &RawResponse{StatusCode: resp.StatusCode, Body: data}, nil
}

// errorValue is the W3C error payload found under "value".
type errorValue struct {
	Error      *string         `json:"error"`
	Message    string          `json:"message"`
	Stacktrace string          `json:"stacktrace"`
	Data       json.RawMessage `json:"data,omitempty"`
}

// parseErrorBody returns a ProtocolError when body carries
// {"value":{"error":"...",...}}, nil otherwise.
func parseErrorBody(status int, body []byte) *ProtocolError {
	var envelope struct {
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Value) == 0 {
		return nil
	}
	return parseErrorValue(status, envelope.Value)
}

func parseErrorValue(status int, value json.RawMessage) *ProtocolError {
	if jsonKind(value) != "object" {
		return nil
	}
	var ev errorValue
	if err := json.Unmarshal(value, &ev); err != nil || ev.Error == nil || *ev.Error == "" {
		return nil
	}
	return &ProtocolError{
		StatusCode: status,
		Code:       ErrorCode(*ev.Error),
		Message:    ev.Message,
		Stacktrace: ev.Stacktrace,
		Data:       ev.Data,
	}
}
