package shareme

import (
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"
)

type SearchResultsFunction = func(usernames []string)

// keystroke-driven username search. exempt from page accumulation:
// every executed query replaces the entire result set. queries are
// debounced so only the last one inside the window executes, and a
// response for a query that is no longer current is dropped
type UserSearch struct {
	api             *ShareMeApi
	debounceTimeout time.Duration

	stateLock sync.Mutex
	query     string
	results   []string
	fetched   bool
	timer     *time.Timer

	resultsCallbacks *CallbackList[SearchResultsFunction]
}

func NewUserSearch(api *ShareMeApi) *UserSearch {
	return NewUserSearchWithTimeout(api, api.Settings().SearchDebounceTimeout)
}

func NewUserSearchWithTimeout(api *ShareMeApi, debounceTimeout time.Duration) *UserSearch {
	return &UserSearch{
		api:              api,
		debounceTimeout:  debounceTimeout,
		resultsCallbacks: NewCallbackList[SearchResultsFunction](),
	}
}

// called on every keystroke. restarts the debounce window
func (self *UserSearch) SetQuery(query string) {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	self.query = query

	if self.timer != nil {
		self.timer.Stop()
		self.timer = nil
	}

	if strings.TrimSpace(query) == "" {
		self.results = nil
		self.fetched = false
		return
	}

	self.timer = time.AfterFunc(self.debounceTimeout, func() {
		self.executeQuery(query)
	})
}

func (self *UserSearch) executeQuery(query string) {
	self.api.SearchUsers(query, NewApiCallback[[]string](func(usernames []string, err error) {
		if err != nil {
			glog.V(1).Infof("[search]query %q failed: %s\n", query, err)
			return
		}

		self.stateLock.Lock()
		if self.query != query {
			// a newer query superseded this one while it was in flight
			self.stateLock.Unlock()
			return
		}
		self.results = usernames
		self.fetched = true
		self.stateLock.Unlock()

		for _, callback := range self.resultsCallbacks.Get() {
			callback(usernames)
		}
	}))
}

// the current result set and whether any query has resolved
func (self *UserSearch) Results() ([]string, bool) {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	return self.results, self.fetched
}

// the unsub function removes the callback
func (self *UserSearch) AddResultsCallback(resultsCallback SearchResultsFunction) func() {
	callbackId := self.resultsCallbacks.Add(resultsCallback)
	return func() {
		self.resultsCallbacks.Remove(callbackId)
	}
}

func (self *UserSearch) Close() {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	if self.timer != nil {
		self.timer.Stop()
		self.timer = nil
	}
}
