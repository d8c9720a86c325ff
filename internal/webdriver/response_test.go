package webdriver

import (
	"net/http"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func raw(body string) *RawResponse {
	return &RawResponse{StatusCode: http.StatusOK, Body: []byte(body)}
}

func TestDecodeValueString(t *testing.T) {
	resp, err := DecodeResponse(raw(`{"value": "Are you sure?"}`))
	require.NoError(t, err)

	text, err := DecodeValue[string](resp)
	require.NoError(t, err)
	assert.Equal(t, "Are you sure?", text)
}

func TestDecodeValueRejectsWrongShapes(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		actual string
	}{
		{"null value", `{"value": null}`, "null"},
		{"number value", `{"value": 42}`, "number"},
		{"object value", `{"value": {"text": "hi"}}`, "object"},
		{"missing value", `{"sessionId": "x"}`, "missing value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := DecodeResponse(raw(tt.body))
			require.NoError(t, err)

			text, err := DecodeValue[string](resp)
			assert.Empty(t, text)

			var derr *DecodeError
			require.ErrorAs(t, err, &derr)
			assert.Equal(t, "string", derr.Expected)
			assert.Equal(t, tt.actual, derr.Actual)
		})
	}
}

func TestDecodeResponseUnitCommands(t *testing.T) {
	for _, body := range []string{`{"value": null}`, `{}`, `{"value": {}}`, `{"value": "ignored"}`} {
		resp, err := DecodeResponse(raw(body))
		require.NoError(t, err, body)
		assert.NotNil(t, resp)
	}
}

func TestDecodeResponseNotAnObject(t *testing.T) {
	for _, body := range []string{`[]`, `"value"`, `42`, `null`} {
		_, err := DecodeResponse(raw(body))
		var derr *DecodeError
		require.ErrorAs(t, err, &derr, body)
		assert.Equal(t, "response object", derr.Expected)
	}

	_, err := DecodeResponse(nil)
	var derr *DecodeError
	require.ErrorAs(t, err, &derr)
}

func TestDecodeResponseErrorUnderSuccessStatus(t *testing.T) {
	_, err := DecodeResponse(raw(`{"value":{"error":"no such alert","message":"none open","stacktrace":""}}`))

	var perr *ProtocolError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ErrNoSuchAlert, perr.Code)
	assert.Equal(t, "none open", perr.Message)
}

func TestDecodeValueStructs(t *testing.T) {
	resp, err := DecodeResponse(raw(`{"value":{"sessionId":"s1","capabilities":{"browserName":"firefox"}}}`))
	require.NoError(t, err)

	result, err := DecodeValue[NewSessionResult](resp)
	require.NoError(t, err)
	assert.Equal(t, "s1", result.SessionID)
	assert.Equal(t, "firefox", result.Capabilities["browserName"])

	status, err := DecodeValue[StatusResult](&Response{Value: []byte(`{"ready":true,"message":"ok"}`)})
	require.NoError(t, err)
	assert.True(t, status.Ready)
}

func TestErrorMessages(t *testing.T) {
	perr := &ProtocolError{StatusCode: 404, Code: ErrNoSuchAlert, Message: "nothing"}
	assert.Equal(t, "webdriver: no such alert: nothing (status 404)", perr.Error())

	derr := &DecodeError{Expected: "string", Actual: "number", Raw: []byte("42")}
	assert.Equal(t, "webdriver decode: expected string, got number (42)", derr.Error())
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	// 127 ASCII bytes then a 3-byte rune straddling the 128 byte cut
	s := strings.Repeat("a", 127) + "€" + "tail"
	got := truncate(s, 128)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("a", 127)+"...", got)

	assert.Equal(t, "short", truncate("short", 128))

	derr := &DecodeError{Expected: "string", Actual: "object", Raw: []byte(`{"v":"` + strings.Repeat("é", 100) + `"}`)}
	assert.True(t, utf8.ValidString(derr.Error()))
}
