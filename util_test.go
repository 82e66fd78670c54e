package shareme

import (
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
)

func TestCallbackList(t *testing.T) {
	callbackList := NewCallbackList[func() int]()

	one := func() int { return 1 }
	two := func() int { return 2 }
	three := func() int { return 3 }

	oneId := callbackList.Add(one)
	callbackList.Add(two)
	callbackList.Add(three)

	callbacks := callbackList.Get()
	assert.Equal(t, len(callbacks), 3)
	assert.Equal(t, callbacks[0](), 1)
	assert.Equal(t, callbacks[1](), 2)
	assert.Equal(t, callbacks[2](), 3)

	callbackList.Remove(oneId)
	callbacks = callbackList.Get()
	assert.Equal(t, len(callbacks), 2)
	assert.Equal(t, callbacks[0](), 2)

	// removing an unknown id is a no-op
	callbackList.Remove(1000)
	assert.Equal(t, len(callbackList.Get()), 2)
}

func TestMonitor(t *testing.T) {
	monitor := NewMonitor()

	notify := monitor.NotifyChannel()
	select {
	case <-notify:
		t.Fatal("channel closed before notify")
	default:
	}

	monitor.NotifyAll()
	select {
	case <-notify:
	case <-time.After(time.Second):
		t.Fatal("channel not closed after notify")
	}

	// a fresh channel is swapped in for the next round
	next := monitor.NotifyChannel()
	select {
	case <-next:
		t.Fatal("fresh channel already closed")
	default:
	}
}
