package storage

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStateValidate(t *testing.T) {
	assert.Error(t, (&SessionState{Endpoint: "http://localhost:4444"}).Validate())
	assert.Error(t, (&SessionState{SessionID: "abc"}).Validate())
	assert.NoError(t, (&SessionState{SessionID: "abc", Endpoint: "http://localhost:4444"}).Validate())
}

func TestEnsureSessionName(t *testing.T) {
	s := &SessionState{
		SessionID: "0123456789abcdef",
		CreatedAt: time.Date(2026, 2, 8, 10, 0, 0, 0, time.UTC),
	}
	s.EnsureSessionName()
	assert.Equal(t, "session-2026-02-08-01234567", s.SessionName)

	s.SessionName = "kept"
	s.EnsureSessionName()
	assert.Equal(t, "kept", s.SessionName)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "webdriver:session:abc", sessionKey("abc"))
	assert.Equal(t, "webdriver:session:abc:capabilities", capabilitiesKey("abc"))
	assert.Equal(t, "webdriver:sessions:active", activeSessionsKey())
	assert.Equal(t, "webdriver:session_name:checkout", sessionNameKey("checkout"))
}

// newTestRepository returns a repository backed by an in-process Redis
func newTestRepository(t *testing.T, ttl time.Duration) (*SessionRepository, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client, err := NewRedisClient(mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionRepository(client, ttl), mr
}

func testState(name string) *SessionState {
	now := time.Now().Truncate(time.Second)
	return &SessionState{
		SessionID:    uuid.NewString(),
		SessionName:  name,
		Endpoint:     "http://localhost:4444",
		CreatedAt:    now,
		LastActivity: now,
		Status:       "active",
	}
}

func TestSessionRepositoryRoundTrip(t *testing.T) {
	repo, mr := newTestRepository(t, time.Minute)

	state := testState("checkout")
	state.Capabilities = map[string]any{"browserName": "chrome"}
	require.NoError(t, repo.SaveSession(state))

	got, err := repo.GetSession(state.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "checkout", got.SessionName)
	assert.Equal(t, "http://localhost:4444", got.Endpoint)
	assert.True(t, state.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, "chrome", got.Capabilities["browserName"])

	byName, err := repo.GetSessionByName("checkout")
	require.NoError(t, err)
	assert.Equal(t, state.SessionID, byName)

	active, err := repo.ListActiveSessions()
	require.NoError(t, err)
	assert.Equal(t, []string{state.SessionID}, active)

	assert.Equal(t, time.Minute, mr.TTL(sessionKey(state.SessionID)))
	assert.Equal(t, time.Minute, mr.TTL(sessionNameKey("checkout")))

	require.NoError(t, repo.UpdateStatus(state.SessionID, "closed"))
	got, err = repo.GetSession(state.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "closed", got.Status)

	require.NoError(t, repo.DeleteSession(state.SessionID))
	_, err = repo.GetSession(state.SessionID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.False(t, mr.Exists(sessionNameKey("checkout")))
	assert.False(t, mr.Exists(capabilitiesKey(state.SessionID)))
}

func TestUpdateLastActivityRefreshesTTL(t *testing.T) {
	repo, mr := newTestRepository(t, time.Minute)

	state := testState("refresh")
	state.Capabilities = map[string]any{"browserName": "chrome"}
	require.NoError(t, repo.SaveSession(state))

	mr.FastForward(50 * time.Second)
	require.NoError(t, repo.UpdateLastActivity(state.SessionID))
	mr.FastForward(50 * time.Second)

	_, err := repo.GetSession(state.SessionID)
	require.NoError(t, err)
	exists, err := repo.CheckSessionNameExists("refresh")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.True(t, mr.Exists(capabilitiesKey(state.SessionID)))
}

func TestSessionRepositoryNames(t *testing.T) {
	repo, _ := newTestRepository(t, time.Minute)

	state := testState("names-old")
	other := uuid.NewString()
	require.NoError(t, repo.SaveSession(state))

	// Reserving your own name again is fine, taking another's is not
	assert.NoError(t, repo.ReserveSessionName("names-old", state.SessionID))
	assert.ErrorIs(t, repo.ReserveSessionName("names-old", other), ErrSessionNameTaken)

	require.NoError(t, repo.RenameSession(state.SessionID, "names-old", "names-new"))
	exists, err := repo.CheckSessionNameExists("names-old")
	require.NoError(t, err)
	assert.False(t, exists)

	got, err := repo.GetSession(state.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "names-new", got.SessionName)

	// Releasing a name held by someone else leaves it in place
	require.NoError(t, repo.ReleaseSessionName("names-new", other))
	exists, err = repo.CheckSessionNameExists("names-new")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, repo.DeleteSession(state.SessionID))
	exists, err = repo.CheckSessionNameExists("names-new")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestExpiredSessionFreesName(t *testing.T) {
	repo, mr := newTestRepository(t, time.Minute)

	state := testState("checkout")
	require.NoError(t, repo.SaveSession(state))

	mr.FastForward(2 * time.Hour)

	_, err := repo.GetSession(state.SessionID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	exists, err := repo.CheckSessionNameExists("checkout")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.False(t, mr.Exists(sessionNameKey("checkout")))

	next := testState("checkout")
	require.NoError(t, repo.SaveSession(next))
	owner, err := repo.GetSessionByName("checkout")
	require.NoError(t, err)
	assert.Equal(t, next.SessionID, owner)
}

func TestNameOfExpiredOwnerCanBeTaken(t *testing.T) {
	repo, mr := newTestRepository(t, time.Minute)

	state := testState("orphan")
	require.NoError(t, repo.SaveSession(state))

	// The session hash is gone but the name key survived
	mr.Del(sessionKey(state.SessionID))

	exists, err := repo.CheckSessionNameExists("orphan")
	require.NoError(t, err)
	assert.False(t, exists)

	taker := uuid.NewString()
	require.NoError(t, repo.ReserveSessionName("orphan", taker))
	owner, err := mr.Get(sessionNameKey("orphan"))
	require.NoError(t, err)
	assert.Equal(t, taker, owner)
}

func TestListAndCountPruneExpired(t *testing.T) {
	repo, mr := newTestRepository(t, time.Minute)

	live := testState("live")
	gone := testState("gone")
	require.NoError(t, repo.SaveSession(live))
	require.NoError(t, repo.SaveSession(gone))
	mr.Del(sessionKey(gone.SessionID))

	sessions, err := repo.ListSessions()
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, live.SessionID, sessions[0].SessionID)

	count, err := repo.CountSessions()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	members, err := mr.Members(activeSessionsKey())
	require.NoError(t, err)
	assert.Equal(t, []string{live.SessionID}, members)
}

func TestNewSessionRepositoryDefaultTTL(t *testing.T) {
	repo, mr := newTestRepository(t, 0)

	state := testState("default-ttl")
	require.NoError(t, repo.SaveSession(state))
	assert.Equal(t, DefaultSessionTTL, mr.TTL(sessionKey(state.SessionID)))
}

func TestUpdatesDoNotRecreateExpiredSession(t *testing.T) {
	repo, mr := newTestRepository(t, time.Minute)

	err := repo.UpdateStatus("missing", "closed")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	err = repo.UpdateLastActivity("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.False(t, mr.Exists(sessionKey("missing")))
}
