package shareme

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/exp/maps"
)

// the active filter values of a paginated view, e.g. category or tab.
// part of the cache key: all pages under one key were fetched with the
// same snapshot
type FilterSnapshot map[string]string

// canonical form, stable across map iteration order
func (self FilterSnapshot) Key() string {
	keys := maps.Keys(self)
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", key, self[key]))
	}
	return strings.Join(parts, "&")
}

func (self FilterSnapshot) Clone() FilterSnapshot {
	return maps.Clone(self)
}

// a paginated collection keyed by (view identity, filter snapshot).
// changing any filter value discards the accumulated pages atomically and
// restarts pagination from the beginning. a response for the discarded key
// that is still in flight never reaches the new entry
type FilteredCollection[T any] struct {
	instanceId Id
	viewId     string
	pageSize   int
	newFetch   func(filters FilterSnapshot) PageFetchFunction[T]

	stateLock sync.Mutex
	filters   FilterSnapshot
	pager     *CollectionPager[T]

	stateMonitor    *Monitor
	changeCallbacks *CallbackList[PagerChangeFunction]
	unsubPager      func()
}

func NewFilteredCollection[T any](
	viewId string,
	pageSize int,
	filters FilterSnapshot,
	newFetch func(filters FilterSnapshot) PageFetchFunction[T],
) *FilteredCollection[T] {
	filteredCollection := &FilteredCollection[T]{
		instanceId:      NewId(),
		viewId:          viewId,
		pageSize:        pageSize,
		newFetch:        newFetch,
		stateMonitor:    NewMonitor(),
		changeCallbacks: NewCallbackList[PagerChangeFunction](),
	}
	filteredCollection.swapEntry(filters.Clone())
	return filteredCollection
}

// must not hold `stateLock`
func (self *FilteredCollection[T]) swapEntry(filters FilterSnapshot) {
	pager := NewCollectionPager(self.pageSize, self.newFetch(filters))
	unsubPager := pager.AddChangeCallback(self.changed)

	self.stateLock.Lock()
	if self.unsubPager != nil {
		self.unsubPager()
	}
	if self.pager != nil {
		// in-flight fetches for the old key resolve against the old
		// generation and are dropped
		self.pager.Reset()
	}
	self.filters = filters
	self.pager = pager
	self.unsubPager = unsubPager
	self.stateLock.Unlock()
}

// unique per collection instance, distinct from the cache key
func (self *FilteredCollection[T]) InstanceId() Id {
	return self.instanceId
}

func (self *FilteredCollection[T]) CacheKey() string {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	return fmt.Sprintf("%s|%s", self.viewId, self.filters.Key())
}

func (self *FilteredCollection[T]) Filters() FilterSnapshot {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	return self.filters.Clone()
}

// the pager for the active cache key
func (self *FilteredCollection[T]) Pager() *CollectionPager[T] {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	return self.pager
}

// when the snapshot is unchanged the existing entry is reused.
// when it changed, the accumulated pages are discarded and the first page
// of the new key is fetched immediately
func (self *FilteredCollection[T]) SetFilters(filters FilterSnapshot) {
	self.stateLock.Lock()
	unchanged := self.filters.Key() == filters.Key()
	self.stateLock.Unlock()

	if unchanged {
		return
	}

	glog.V(1).Infof("[cache]%s(%s) filters -> %s\n", self.viewId, self.instanceId, filters.Key())
	self.swapEntry(filters.Clone())
	self.changed()
	go self.Pager().LoadFirst()
}

func (self *FilteredCollection[T]) LoadFirst() error {
	return self.Pager().LoadFirst()
}

func (self *FilteredCollection[T]) LoadNext() (bool, error) {
	return self.Pager().LoadNext()
}

func (self *FilteredCollection[T]) Items() []T {
	return self.Pager().Items()
}

func (self *FilteredCollection[T]) HasMore() bool {
	return self.Pager().HasMore()
}

func (self *FilteredCollection[T]) State() PagerState {
	return self.Pager().State()
}

func (self *FilteredCollection[T]) UpdateItems(patch func(item T)) {
	self.Pager().UpdateItems(patch)
}

// closed-channel broadcast across filter swaps. grab the channel,
// re-check the state, then select
func (self *FilteredCollection[T]) StateMonitor() *Monitor {
	return self.stateMonitor
}

// the unsub function removes the callback
func (self *FilteredCollection[T]) AddChangeCallback(changeCallback PagerChangeFunction) func() {
	glog.V(2).Infof("[cache]%s add callback %s\n", self.viewId, CallbackName(changeCallback))
	callbackId := self.changeCallbacks.Add(changeCallback)
	return func() {
		self.changeCallbacks.Remove(callbackId)
	}
}

func (self *FilteredCollection[T]) changed() {
	self.stateMonitor.NotifyAll()
	for _, callback := range self.changeCallbacks.Get() {
		callback()
	}
}
