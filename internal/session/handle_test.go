package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhruvsoni1802/browser-webdriver/internal/testutil/fakedriver"
	"github.com/dhruvsoni1802/browser-webdriver/internal/webdriver"
)

func newTestHandle(t *testing.T, driver *fakedriver.Server, sessionID string) *Handle {
	t.Helper()
	inv, err := webdriver.NewInvoker(driver.URL)
	require.NoError(t, err)
	h, err := NewHandle(sessionID, inv)
	require.NoError(t, err)
	return h
}

func TestNewHandleRequiresIDAndInvoker(t *testing.T) {
	inv, err := webdriver.NewInvoker("http://localhost:4444")
	require.NoError(t, err)

	_, err = NewHandle("", inv)
	assert.Error(t, err)
	_, err = NewHandle("abc", nil)
	assert.Error(t, err)

	h, err := NewHandle("abc", inv)
	require.NoError(t, err)
	assert.Equal(t, "abc", h.ID())
	assert.Equal(t, "http://localhost:4444", h.Endpoint())
}

func TestGetAlertText(t *testing.T) {
	driver := fakedriver.New(t)
	id := driver.AddSession()
	driver.OpenAlert(id, "Are you sure?")
	h := newTestHandle(t, driver, id)

	text, err := h.GetAlertText(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Are you sure?", text)

	last := driver.LastRequest()
	assert.Equal(t, http.MethodGet, last.Method)
	assert.Equal(t, "/session/"+id+"/alert/text", last.Path)
	assert.Empty(t, last.Body)
}

func TestAcceptAndDismissAlert(t *testing.T) {
	driver := fakedriver.New(t)
	id := driver.AddSession()
	h := newTestHandle(t, driver, id)
	ctx := context.Background()

	driver.OpenAlert(id, "ok?")
	require.NoError(t, h.AcceptAlert(ctx))
	assert.False(t, driver.AlertOpen(id))
	assert.True(t, driver.Accepted(id))
	assert.Equal(t, "/session/"+id+"/alert/accept", driver.LastRequest().Path)
	assert.JSONEq(t, `{}`, string(driver.LastRequest().Body))

	driver.OpenAlert(id, "ok?")
	require.NoError(t, h.DismissAlert(ctx))
	assert.False(t, driver.AlertOpen(id))
	assert.False(t, driver.Accepted(id))
	assert.Equal(t, "/session/"+id+"/alert/dismiss", driver.LastRequest().Path)
	assert.JSONEq(t, `{}`, string(driver.LastRequest().Body))
}

func TestSendAlertTextLiteral(t *testing.T) {
	driver := fakedriver.New(t)
	id := driver.AddSession()
	driver.OpenAlert(id, "name?")
	h := newTestHandle(t, driver, id)

	require.NoError(t, h.SendAlertText(context.Background(), webdriver.Text("hello")))

	last := driver.LastRequest()
	assert.Equal(t, http.MethodPost, last.Method)
	assert.Equal(t, "/session/"+id+"/alert/text", last.Path)
	assert.JSONEq(t, `{"text":"hello"}`, string(last.Body))
	assert.Equal(t, "hello", driver.Typed(id))
}

func TestSendAlertTextModifierPrecedesText(t *testing.T) {
	driver := fakedriver.New(t)
	id := driver.AddSession()
	driver.OpenAlert(id, "name?")
	h := newTestHandle(t, driver, id)

	require.NoError(t, h.SendAlertText(context.Background(), webdriver.KeyControl.With("a")))
	assert.Equal(t, string(rune(webdriver.KeyControl))+"a", driver.Typed(id))
}

func TestCmdErrorKinds(t *testing.T) {
	ctx := context.Background()

	t.Run("protocol", func(t *testing.T) {
		driver := fakedriver.New(t)
		id := driver.AddSession()
		h := newTestHandle(t, driver, id)

		_, err := h.Cmd(ctx, webdriver.GetAlertText{})
		require.Error(t, err)

		var perr *webdriver.ProtocolError
		require.True(t, errors.As(err, &perr))
		assert.Equal(t, webdriver.ErrNoSuchAlert, perr.Code)
		assert.Equal(t, http.StatusNotFound, perr.StatusCode)
		assert.NotEmpty(t, perr.Message)
	})

	t.Run("transport", func(t *testing.T) {
		driver := fakedriver.New(t)
		h := newTestHandle(t, driver, "abc")
		driver.Close()

		_, err := h.Cmd(ctx, webdriver.AcceptAlert{})
		var terr *webdriver.TransportError
		assert.True(t, errors.As(err, &terr))
	})

	t.Run("decode", func(t *testing.T) {
		driver := fakedriver.New(t)
		id := driver.AddSession()
		driver.Override(http.MethodPost, "/session/"+id+"/alert/accept", http.StatusOK, `[1,2]`)
		h := newTestHandle(t, driver, id)

		_, err := h.Cmd(ctx, webdriver.AcceptAlert{})
		var derr *webdriver.DecodeError
		assert.True(t, errors.As(err, &derr))
	})
}

func TestGetAlertTextRejectsWrongShapes(t *testing.T) {
	for _, body := range []string{`{"value":null}`, `{"value":42}`, `{}`} {
		t.Run(body, func(t *testing.T) {
			driver := fakedriver.New(t)
			id := driver.AddSession()
			driver.Override(http.MethodGet, "/session/"+id+"/alert/text", http.StatusOK, body)
			h := newTestHandle(t, driver, id)

			text, err := h.GetAlertText(context.Background())
			assert.Empty(t, text)
			var derr *webdriver.DecodeError
			require.True(t, errors.As(err, &derr), "got %v", err)
			assert.Equal(t, "string", derr.Expected)
		})
	}
}

func TestAcceptIgnoresMissingOrNullValue(t *testing.T) {
	for _, body := range []string{`{"value":null}`, `{}`} {
		t.Run(body, func(t *testing.T) {
			driver := fakedriver.New(t)
			id := driver.AddSession()
			driver.Override(http.MethodPost, "/session/"+id+"/alert/accept", http.StatusOK, body)
			driver.Override(http.MethodPost, "/session/"+id+"/alert/dismiss", http.StatusOK, body)
			h := newTestHandle(t, driver, id)

			assert.NoError(t, h.AcceptAlert(context.Background()))
			assert.NoError(t, h.DismissAlert(context.Background()))
		})
	}
}

func TestNoSuchAlertFromEveryOperation(t *testing.T) {
	driver := fakedriver.New(t)
	id := driver.AddSession()
	h := newTestHandle(t, driver, id)
	ctx := context.Background()

	_, err := h.GetAlertText(ctx)
	assert.ErrorIs(t, err, webdriver.ErrNoSuchAlert)
	assert.ErrorIs(t, h.DismissAlert(ctx), webdriver.ErrNoSuchAlert)
	assert.ErrorIs(t, h.AcceptAlert(ctx), webdriver.ErrNoSuchAlert)
	assert.ErrorIs(t, h.SendAlertText(ctx, webdriver.Text("x")), webdriver.ErrNoSuchAlert)
}

func TestInvalidSessionID(t *testing.T) {
	driver := fakedriver.New(t)
	h := newTestHandle(t, driver, "gone")

	err := h.AcceptAlert(context.Background())
	assert.ErrorIs(t, err, webdriver.ErrInvalidSessionID)
	assert.NotErrorIs(t, err, webdriver.ErrNoSuchAlert)
}

func TestCancelledContext(t *testing.T) {
	driver := fakedriver.New(t)
	id := driver.AddSession()
	driver.OpenAlert(id, "x")
	h := newTestHandle(t, driver, id)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.GetAlertText(ctx)
	var terr *webdriver.TransportError
	require.True(t, errors.As(err, &terr))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConcurrentCommandsGetTheirOwnResponses(t *testing.T) {
	driver := fakedriver.New(t)
	inv, err := webdriver.NewInvoker(driver.URL)
	require.NoError(t, err)

	const n = 16
	handles := make([]*Handle, n)
	for i := range handles {
		id := driver.AddSession()
		driver.OpenAlert(id, fmt.Sprintf("alert-%d", i))
		handles[i], err = NewHandle(id, inv)
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	got := make([]string, n)
	errs := make([]error, n)
	for i, h := range handles {
		wg.Add(1)
		go func(i int, h *Handle) {
			defer wg.Done()
			got[i], errs[i] = h.GetAlertText(context.Background())
		}(i, h)
	}
	wg.Wait()

	for i := range handles {
		require.NoError(t, errs[i])
		assert.Equal(t, fmt.Sprintf("alert-%d", i), got[i])
	}
}

func TestSharedHandleConcurrentUse(t *testing.T) {
	driver := fakedriver.New(t)
	id := driver.AddSession()
	driver.OpenAlert(id, "shared")
	h := newTestHandle(t, driver, id)
	legacy := h.SwitchToAlert()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			text, err := h.GetAlertText(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, "shared", text)
		}()
		go func() {
			defer wg.Done()
			text, err := legacy.Text(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, "shared", text)
		}()
	}
	wg.Wait()
}
