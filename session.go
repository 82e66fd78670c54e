package shareme

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/golang/glog"
)

// a session is the composite of the issued token and the identity decoded
// from it. it is never stored partially populated. absence of a session
// means anonymous
type Session struct {
	UserId   string
	Email    string
	Username string
	Token    string
}

type SessionChangeFunction = func(session *Session)

// persisted storage for the session token across process restarts.
// `Load` returns "" when nothing is persisted
type SessionPersister interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// tab scoped in the web client. here, one store per client instance,
// shared by reference with the api gateway and the views
type SessionStore struct {
	persister SessionPersister

	stateLock sync.Mutex
	session   *Session

	sessionChangeCallbacks *CallbackList[SessionChangeFunction]
}

func NewSessionStore() *SessionStore {
	return NewSessionStoreWithPersister(nil)
}

// rehydrates from the persister if a token is present.
// a persisted token that no longer parses is discarded, never stored partially
func NewSessionStoreWithPersister(persister SessionPersister) *SessionStore {
	sessionStore := &SessionStore{
		persister:              persister,
		sessionChangeCallbacks: NewCallbackList[SessionChangeFunction](),
	}

	if persister != nil {
		if token, err := persister.Load(); err != nil {
			glog.Warningf("[session]could not load persisted session: %s\n", err)
		} else if token != "" {
			if sessionToken, err := ParseSessionTokenUnverified(token); err != nil {
				glog.Infof("[session]discarding unparseable persisted token\n")
				persister.Clear()
			} else {
				sessionStore.session = &Session{
					UserId:   sessionToken.UserId,
					Email:    sessionToken.Email,
					Username: sessionToken.Username,
					Token:    token,
				}
			}
		}
	}

	return sessionStore
}

// exchanges credentials with the identity service via the api,
// decodes the returned token, and stores the composite session.
// nothing is stored on any failure
func (self *SessionStore) Login(api *ShareMeApi, email string, password string) (*Session, error) {
	token, err := api.AuthLoginSync(&AuthLoginArgs{
		Email:    email,
		Password: password,
	})
	if err != nil {
		var httpErr *HttpError
		if errors.As(err, &httpErr) {
			return nil, &AuthError{Message: httpErr.Message}
		}
		return nil, err
	}
	if token == "" {
		return nil, &AuthError{}
	}

	sessionToken, err := ParseSessionTokenUnverified(token)
	if err != nil {
		return nil, err
	}

	session := &Session{
		UserId:   sessionToken.UserId,
		Email:    sessionToken.Email,
		Username: sessionToken.Username,
		Token:    token,
	}

	self.stateLock.Lock()
	self.session = session
	self.stateLock.Unlock()

	if self.persister != nil {
		if err := self.persister.Save(token); err != nil {
			glog.Warningf("[session]could not persist session: %s\n", err)
		}
	}

	self.sessionChanged(session)
	return session, nil
}

// synchronous, side effect free
func (self *SessionStore) Current() *Session {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	return self.session
}

// idempotent
func (self *SessionStore) Logout() {
	self.stateLock.Lock()
	active := self.session != nil
	self.session = nil
	self.stateLock.Unlock()

	if !active {
		return
	}

	if self.persister != nil {
		if err := self.persister.Clear(); err != nil {
			glog.Warningf("[session]could not clear persisted session: %s\n", err)
		}
	}

	self.sessionChanged(nil)
}

// the unsub function removes the callback
func (self *SessionStore) AddSessionChangeCallback(sessionChangeCallback SessionChangeFunction) func() {
	callbackId := self.sessionChangeCallbacks.Add(sessionChangeCallback)
	return func() {
		self.sessionChangeCallbacks.Remove(callbackId)
	}
}

func (self *SessionStore) sessionChanged(session *Session) {
	for _, callback := range self.sessionChangeCallbacks.Get() {
		callback(session)
	}
}

// stores the raw token in a mode 0600 file
type FileSessionPersister struct {
	path string
}

func NewFileSessionPersister(path string) *FileSessionPersister {
	return &FileSessionPersister{
		path: path,
	}
}

func (self *FileSessionPersister) Load() (string, error) {
	tokenBytes, err := os.ReadFile(self.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(tokenBytes)), nil
}

func (self *FileSessionPersister) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(self.path), 0700); err != nil {
		return err
	}
	return os.WriteFile(self.path, []byte(token), 0600)
}

func (self *FileSessionPersister) Clear() error {
	err := os.Remove(self.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
