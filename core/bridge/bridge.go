// Package bridge decouples producers of text that should be spoken from the
// playback that speaks it.
//
// A Bridge lives as long as the host process. Consumers attach with Subscribe
// when they are mounted and must call the returned function when they are torn
// down.
package bridge

import (
	"sync"

	"github.com/google/uuid"
)

// Handler receives published text. Handlers run inline on the publishing
// goroutine.
type Handler func(text string)

type Bridge struct {
	mu          sync.RWMutex
	subscribers map[string]Handler
	// order keeps delivery in attach order.
	order []string
}

func New() *Bridge {
	return &Bridge{subscribers: make(map[string]Handler)}
}

// Publish delivers text to every current subscriber. With no subscribers the
// text is dropped.
func (b *Bridge) Publish(text string) {
	if b == nil {
		return
	}

	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.order))
	for _, id := range b.order {
		handlers = append(handlers, b.subscribers[id])
	}
	b.mu.RUnlock()

	for _, handler := range handlers {
		handler(text)
	}
}

// Subscribe attaches handler and returns the function that detaches it.
// Detaching more than once is a no-op.
func (b *Bridge) Subscribe(handler Handler) (unsubscribe func()) {
	if b == nil || handler == nil {
		return func() {}
	}

	id := uuid.NewString()
	b.mu.Lock()
	b.subscribers[id] = handler
	b.order = append(b.order, id)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.unsubscribe(id) })
	}
}

func (b *Bridge) unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.subscribers, id)
	for i, subscriber := range b.order {
		if subscriber == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

// Subscribers reports how many handlers are attached.
func (b *Bridge) Subscribers() int {
	if b == nil {
		return 0
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
