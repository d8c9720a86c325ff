package webdriver

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeAlertCommands(t *testing.T) {
	tests := []struct {
		name   string
		cmd    Command
		method string
		path   string
		body   string
	}{
		{"get alert text", GetAlertText{}, http.MethodGet, "/session/abc/alert/text", ""},
		{"dismiss alert", DismissAlert{}, http.MethodPost, "/session/abc/alert/dismiss", "{}"},
		{"accept alert", AcceptAlert{}, http.MethodPost, "/session/abc/alert/accept", "{}"},
		{"send alert text", SendAlertText{Text: Text("hello")}, http.MethodPost, "/session/abc/alert/text", `{"text":"hello"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := Encode("abc", tt.cmd)
			require.NoError(t, err)

			assert.Equal(t, tt.cmd.Name(), req.Command)
			assert.Equal(t, tt.method, req.Method)
			assert.Equal(t, tt.path, req.Path)
			if tt.body == "" {
				assert.Nil(t, req.Body)
			} else {
				assert.JSONEq(t, tt.body, string(req.Body))
			}
		})
	}
}

func TestEncodeSendAlertTextWithModifier(t *testing.T) {
	req, err := Encode("abc", SendAlertText{Text: KeyControl.With("a")})
	require.NoError(t, err)

	// The control marker comes first, then the literal character
	assert.Equal(t, "{\"text\":\"\uE009a\"}", string(req.Body))
}

func TestEncodeIsDeterministic(t *testing.T) {
	cmds := []Command{
		GetAlertText{},
		AcceptAlert{},
		SendAlertText{Text: Keys(KeyShift).AppendText("abc").AppendKeys(KeyEnter)},
		NewSession{Capabilities: Capabilities{"browserName": "chrome", "acceptInsecureCerts": true, "platformName": "linux"}},
	}

	for _, cmd := range cmds {
		first, err := Encode("sess-1", cmd)
		require.NoError(t, err)
		for i := 0; i < 20; i++ {
			again, err := Encode("sess-1", cmd)
			require.NoError(t, err)
			assert.Equal(t, first, again, cmd.Name())
		}
	}
}

func TestEncodeLifecycleCommands(t *testing.T) {
	t.Run("new session without capabilities", func(t *testing.T) {
		req, err := Encode("", NewSession{})
		require.NoError(t, err)
		assert.Equal(t, http.MethodPost, req.Method)
		assert.Equal(t, "/session", req.Path)
		assert.JSONEq(t, `{"capabilities":{}}`, string(req.Body))
	})

	t.Run("delete session", func(t *testing.T) {
		req, err := Encode("abc", DeleteSession{})
		require.NoError(t, err)
		assert.Equal(t, http.MethodDelete, req.Method)
		assert.Equal(t, "/session/abc", req.Path)
		assert.Nil(t, req.Body)
	})

	t.Run("status needs no session", func(t *testing.T) {
		req, err := Encode("", Status{})
		require.NoError(t, err)
		assert.Equal(t, http.MethodGet, req.Method)
		assert.Equal(t, "/status", req.Path)
	})
}

func TestEncodeErrors(t *testing.T) {
	t.Run("missing session id", func(t *testing.T) {
		_, err := Encode("", AcceptAlert{})
		require.ErrorIs(t, err, ErrMissingSessionID)
	})

	t.Run("nil command", func(t *testing.T) {
		_, err := Encode("abc", nil)
		require.ErrorIs(t, err, ErrUnknownCommandType)
	})
}

func TestEncodeEscapesSessionID(t *testing.T) {
	req, err := Encode("a/b c", GetAlertText{})
	require.NoError(t, err)
	assert.Equal(t, "/session/a%2Fb%20c/alert/text", req.Path)
}
