package webdriver

// Command is one WebDriver protocol operation. The set of implementations is
// closed: every variant lives in this file and Encode handles each of them.
type Command interface {
	// Name identifies the command in logs and metrics.
	Name() string
	isCommand()
}

// Capabilities is the capability object sent with NewSession.
type Capabilities map[string]any

// GetAlertText reads the text of the active user prompt.
type GetAlertText struct{}

// DismissAlert dismisses the active user prompt.
type DismissAlert struct{}

// AcceptAlert accepts the active user prompt.
type AcceptAlert struct{}

// SendAlertText types into the active prompt's input field.
type SendAlertText struct {
	Text TypingData
}

// NewSession asks the remote end for a new session.
type NewSession struct {
	Capabilities Capabilities
}

// DeleteSession ends the session and closes its browser.
type DeleteSession struct{}

// Status queries whether the remote end can create new sessions.
type Status struct{}

func (GetAlertText) Name() string  { return "GetAlertText" }
func (DismissAlert) Name() string  { return "DismissAlert" }
func (AcceptAlert) Name() string   { return "AcceptAlert" }
func (SendAlertText) Name() string { return "SendAlertText" }
func (NewSession) Name() string    { return "NewSession" }
func (DeleteSession) Name() string { return "DeleteSession" }
func (Status) Name() string        { return "Status" }

func (GetAlertText) isCommand()  {}
func (DismissAlert) isCommand()  {}
func (AcceptAlert) isCommand()   {}
func (SendAlertText) isCommand() {}
func (NewSession) isCommand()    {}
func (DeleteSession) isCommand() {}
func (Status) isCommand()        {}

// NewSessionResult is the value returned by NewSession.
type NewSessionResult struct {
	SessionID    string       `json:"sessionId"`
	Capabilities Capabilities `json:"capabilities"`
}

// StatusResult is the value returned by Status.
type StatusResult struct {
	Ready   bool   `json:"ready"`
	Message string `json:"message"`
}
