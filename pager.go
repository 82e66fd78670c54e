package shareme

import (
	"sync"

	"github.com/golang/glog"
)

// pager state machine is:
// PagerStateEmpty
//
//	-> PagerStateLoadingFirst
//	  -> PagerStateReady (has more, or exhausted when the first page is short)
//	-> PagerStateReady
//	  -> PagerStateLoadingNext
//	    -> PagerStateReady
//
// a failed fetch rolls back to the prior state. a fetch that resolves after
// a reset is discarded
type PagerState string

const (
	PagerStateEmpty        PagerState = "Empty"
	PagerStateLoadingFirst PagerState = "LoadingFirst"
	PagerStateReady        PagerState = "Ready"
	PagerStateLoadingNext  PagerState = "LoadingNext"
)

func (self PagerState) IsLoading() bool {
	switch self {
	case PagerStateLoadingFirst, PagerStateLoadingNext:
		return true
	default:
		return false
	}
}

// `skip` counts pages, not items
type PageFetchFunction[T any] func(skip int, limit int) ([]T, error)

type PagerChangeFunction = func()

// accumulates ordered pages from a cursor-based collection endpoint.
// a short page (fewer items than the page size) signals exhaustion
type CollectionPager[T any] struct {
	fetch    PageFetchFunction[T]
	pageSize int

	stateLock  sync.Mutex
	state      PagerState
	pages      [][]T
	hasMore    bool
	generation int

	stateMonitor    *Monitor
	changeCallbacks *CallbackList[PagerChangeFunction]
}

func NewCollectionPager[T any](pageSize int, fetch PageFetchFunction[T]) *CollectionPager[T] {
	return &CollectionPager[T]{
		fetch:           fetch,
		pageSize:        pageSize,
		state:           PagerStateEmpty,
		pages:           [][]T{},
		hasMore:         false,
		stateMonitor:    NewMonitor(),
		changeCallbacks: NewCallbackList[PagerChangeFunction](),
	}
}

// issues the first page fetch. a no-op unless the pager is empty,
// so it is safe to call on every view mount
func (self *CollectionPager[T]) LoadFirst() error {
	self.stateLock.Lock()
	if self.state != PagerStateEmpty {
		self.stateLock.Unlock()
		return nil
	}
	self.state = PagerStateLoadingFirst
	generation := self.generation
	self.stateLock.Unlock()
	self.changed()

	page, err := self.fetch(0, self.pageSize)

	self.stateLock.Lock()
	if generation != self.generation {
		// a reset happened while the fetch was in flight
		self.stateLock.Unlock()
		glog.V(1).Infof("[pager]discarding stale first page\n")
		return nil
	}
	if err != nil {
		self.state = PagerStateEmpty
		self.stateLock.Unlock()
		self.changed()
		return err
	}
	self.pages = append(self.pages, page)
	self.hasMore = len(page) == self.pageSize
	self.state = PagerStateReady
	self.stateLock.Unlock()

	self.changed()
	return nil
}

// fetches the next page. a no-op unless the pager is ready with more pages,
// which serializes in-flight fetches (duplicate calls issue one request).
// returns whether a fetch was issued
func (self *CollectionPager[T]) LoadNext() (bool, error) {
	self.stateLock.Lock()
	if self.state != PagerStateReady || !self.hasMore {
		self.stateLock.Unlock()
		return false, nil
	}
	self.state = PagerStateLoadingNext
	skip := len(self.pages)
	generation := self.generation
	self.stateLock.Unlock()
	self.changed()

	page, err := self.fetch(skip, self.pageSize)

	self.stateLock.Lock()
	if generation != self.generation {
		self.stateLock.Unlock()
		glog.V(1).Infof("[pager]discarding stale page %d\n", skip)
		return true, nil
	}
	if err != nil {
		// roll the attempted transition back
		self.state = PagerStateReady
		self.stateLock.Unlock()
		self.changed()
		return true, err
	}
	self.pages = append(self.pages, page)
	self.hasMore = len(page) == self.pageSize
	self.state = PagerStateReady
	self.stateLock.Unlock()

	self.changed()
	return true, nil
}

// discards all accumulated pages and returns to empty.
// any in-flight fetch resolves against the old generation and is discarded
func (self *CollectionPager[T]) Reset() {
	self.stateLock.Lock()
	self.generation += 1
	self.pages = [][]T{}
	self.hasMore = false
	self.state = PagerStateEmpty
	self.stateLock.Unlock()

	self.changed()
}

func (self *CollectionPager[T]) State() PagerState {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	return self.state
}

func (self *CollectionPager[T]) HasMore() bool {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	return self.hasMore
}

// the number of fetched pages, which is also the next skip value
func (self *CollectionPager[T]) Cursor() int {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	return len(self.pages)
}

// all fetched items in page order, as a copy
func (self *CollectionPager[T]) Items() []T {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	items := []T{}
	for _, page := range self.pages {
		items = append(items, page...)
	}
	return items
}

// all fetched pages, as a copy of the page list
func (self *CollectionPager[T]) Pages() [][]T {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	pages := make([][]T, len(self.pages))
	copy(pages, self.pages)
	return pages
}

// applies `patch` to every cached item under the lock.
// the patch fully applies before any listener observes it
func (self *CollectionPager[T]) UpdateItems(patch func(item T)) {
	self.stateLock.Lock()
	for _, page := range self.pages {
		for _, item := range page {
			patch(item)
		}
	}
	self.stateLock.Unlock()

	self.changed()
}

// closed-channel broadcast for state transitions. grab the channel,
// re-check the state, then select
func (self *CollectionPager[T]) StateMonitor() *Monitor {
	return self.stateMonitor
}

// the unsub function removes the callback
func (self *CollectionPager[T]) AddChangeCallback(changeCallback PagerChangeFunction) func() {
	glog.V(2).Infof("[pager]add callback %s\n", CallbackName(changeCallback))
	callbackId := self.changeCallbacks.Add(changeCallback)
	return func() {
		self.changeCallbacks.Remove(callbackId)
	}
}

func (self *CollectionPager[T]) changed() {
	self.stateMonitor.NotifyAll()
	for _, callback := range self.changeCallbacks.Get() {
		callback()
	}
}
