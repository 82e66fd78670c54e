package shareme

import (
	"sync"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// closed-channel broadcast. waiters select on `NotifyChannel`,
// `NotifyAll` closes the current channel and swaps in a new one
type Monitor struct {
	mutex  sync.Mutex
	update chan struct{}
}

func NewMonitor() *Monitor {
	return &Monitor{
		update: make(chan struct{}),
	}
}

func (self *Monitor) NotifyChannel() chan struct{} {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	return self.update
}

func (self *Monitor) NotifyAll() {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	close(self.update)
	self.update = make(chan struct{})
}

// makes a copy of the list on update
type CallbackList[T any] struct {
	mutex          sync.Mutex
	nextCallbackId int
	callbackIds    []int
	callbacks      map[int]T
}

func NewCallbackList[T any]() *CallbackList[T] {
	return &CallbackList[T]{
		nextCallbackId: 0,
		callbackIds:    []int{},
		callbacks:      map[int]T{},
	}
}

// in add order
func (self *CallbackList[T]) Get() []T {
	self.mutex.Lock()
	defer self.mutex.Unlock()

	callbacks := make([]T, 0, len(self.callbackIds))
	for _, callbackId := range self.callbackIds {
		callbacks = append(callbacks, self.callbacks[callbackId])
	}
	return callbacks
}

func (self *CallbackList[T]) Add(callback T) int {
	self.mutex.Lock()
	defer self.mutex.Unlock()

	callbackId := self.nextCallbackId
	self.nextCallbackId += 1
	self.callbackIds = append(self.callbackIds, callbackId)
	self.callbacks[callbackId] = callback
	return callbackId
}

func (self *CallbackList[T]) Remove(callbackId int) {
	self.mutex.Lock()
	defer self.mutex.Unlock()

	i := slices.Index(self.callbackIds, callbackId)
	if i < 0 {
		// not present
		return
	}
	self.callbackIds = slices.Delete(slices.Clone(self.callbackIds), i, i+1)
	callbacks := maps.Clone(self.callbacks)
	delete(callbacks, callbackId)
	self.callbacks = callbacks
}
