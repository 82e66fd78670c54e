package shareme

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestLoginStoresSession(t *testing.T) {
	token := testSessionTokenString(t, "user-1", "ana@email.com", "ana")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, r.URL.Path, "/auth/login")
		w.Write([]byte(token))
	}))
	defer server.Close()

	sessionStore := NewSessionStore()
	api := testApi(sessionStore, server.URL)
	defer api.Close()

	var observed *Session
	sessionStore.AddSessionChangeCallback(func(session *Session) {
		observed = session
	})

	session, err := sessionStore.Login(api, "ana@email.com", "123456")
	assert.Equal(t, err, nil)
	assert.Equal(t, session.UserId, "user-1")
	assert.Equal(t, session.Email, "ana@email.com")
	assert.Equal(t, session.Username, "ana")
	assert.Equal(t, session.Token, token)

	assert.Equal(t, sessionStore.Current(), session)
	assert.Equal(t, observed, session)
}

func TestLoginMalformedToken(t *testing.T) {
	// a token that fails to parse surfaces an AuthError, nothing is stored

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not-a-jwt"))
	}))
	defer server.Close()

	sessionStore := NewSessionStore()
	api := testApi(sessionStore, server.URL)
	defer api.Close()

	_, err := sessionStore.Login(api, "ana@email.com", "123456")
	assert.NotEqual(t, err, nil)
	_, isAuthError := err.(*AuthError)
	assert.Equal(t, isAuthError, true)
	assert.Equal(t, sessionStore.Current(), nil)
}

func TestLoginBadCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
	}))
	defer server.Close()

	sessionStore := NewSessionStore()
	api := testApi(sessionStore, server.URL)
	defer api.Close()

	_, err := sessionStore.Login(api, "ana@email.com", "wrong")
	assert.NotEqual(t, err, nil)

	// the identity service's message is surfaced
	authErr, isAuthError := err.(*AuthError)
	assert.Equal(t, isAuthError, true)
	assert.Equal(t, authErr.Message, "invalid credentials")
	assert.Equal(t, sessionStore.Current(), nil)
}

func TestLogoutIdempotent(t *testing.T) {
	token := testSessionTokenString(t, "user-1", "ana@email.com", "ana")
	sessionStore := testSessionStore(t, token)
	assert.NotEqual(t, sessionStore.Current(), nil)

	logoutCount := 0
	sessionStore.AddSessionChangeCallback(func(session *Session) {
		assert.Equal(t, session, nil)
		logoutCount += 1
	})

	sessionStore.Logout()
	assert.Equal(t, sessionStore.Current(), nil)

	// calling again with no active session is a no-op
	sessionStore.Logout()
	assert.Equal(t, sessionStore.Current(), nil)
	assert.Equal(t, logoutCount, 1)
}

func TestSessionRehydrate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session")
	persister := NewFileSessionPersister(path)

	token := testSessionTokenString(t, "user-1", "ana@email.com", "ana")
	err := persister.Save(token)
	assert.Equal(t, err, nil)

	sessionStore := NewSessionStoreWithPersister(persister)
	session := sessionStore.Current()
	assert.NotEqual(t, session, nil)
	assert.Equal(t, session.Username, "ana")
	assert.Equal(t, session.Token, token)
}

func TestSessionRehydrateBadToken(t *testing.T) {
	// a persisted token that no longer parses yields anonymous, never a
	// partial session

	path := filepath.Join(t.TempDir(), "session")
	persister := NewFileSessionPersister(path)
	err := persister.Save("garbage")
	assert.Equal(t, err, nil)

	sessionStore := NewSessionStoreWithPersister(persister)
	assert.Equal(t, sessionStore.Current(), nil)

	// the bad token was also cleared from storage
	persisted, err := persister.Load()
	assert.Equal(t, err, nil)
	assert.Equal(t, persisted, "")
}

func TestLogoutClearsPersisted(t *testing.T) {
	token := testSessionTokenString(t, "user-1", "ana@email.com", "ana")
	path := filepath.Join(t.TempDir(), "session")
	persister := NewFileSessionPersister(path)
	err := persister.Save(token)
	assert.Equal(t, err, nil)

	sessionStore := NewSessionStoreWithPersister(persister)
	sessionStore.Logout()

	persisted, err := persister.Load()
	assert.Equal(t, err, nil)
	assert.Equal(t, persisted, "")
}

func TestParseSessionTokenMissingIdentity(t *testing.T) {
	token := testSessionTokenString(t, "", "", "")
	_, err := ParseSessionTokenUnverified(token)
	assert.NotEqual(t, err, nil)
	_, isAuthError := err.(*AuthError)
	assert.Equal(t, isAuthError, true)
}
