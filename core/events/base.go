package events

import "time"

type Kind string

type Event interface {
	Kind() Kind
	Timestamp() time.Time
}

type Base struct {
	kind      Kind
	timestamp time.Time
}

func NewBase(kind Kind) Base {
	return Base{kind: kind, timestamp: time.Now()}
}

func (b Base) Kind() Kind {
	return b.kind
}

func (b Base) Timestamp() time.Time {
	return b.timestamp
}

// Handler receives events. Handlers run inline on the emitting goroutine and
// should not block.
type Handler func(Event)

// Noop discards events.
func Noop(Event) {}

// Join returns a handler that forwards each event to every non-nil handler in
// order.
func Join(handlers ...Handler) Handler {
	joined := make([]Handler, 0, len(handlers))
	for _, handler := range handlers {
		if handler != nil {
			joined = append(joined, handler)
		}
	}

	switch len(joined) {
	case 0:
		return Noop
	case 1:
		return joined[0]
	}
	return func(event Event) {
		for _, handler := range joined {
			handler(event)
		}
	}
}
