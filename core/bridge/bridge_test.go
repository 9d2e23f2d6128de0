package bridge

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestPublishWithoutSubscribersIsDropped(t *testing.T) {
	b := New()

	b.Publish("hi")

	if got := b.Subscribers(); got != 0 {
		t.Fatalf("expected no subscribers, got %d", got)
	}
}

func TestPublishDeliversExactlyOnce(t *testing.T) {
	b := New()
	received := []string{}
	unsubscribe := b.Subscribe(func(text string) { received = append(received, text) })
	defer unsubscribe()

	b.Publish("hi")

	if len(received) != 1 || received[0] != "hi" {
		t.Fatalf("expected subscriber to receive %q once, got %q", "hi", received)
	}
}

func TestUnsubscribeStopsDeliveryAndIsIdempotent(t *testing.T) {
	b := New()
	var calls atomic.Int32
	unsubscribe := b.Subscribe(func(string) { calls.Add(1) })

	unsubscribe()
	unsubscribe()
	b.Publish("hi")

	if got := calls.Load(); got != 0 {
		t.Fatalf("expected no delivery after unsubscribe, got %d", got)
	}
	if got := b.Subscribers(); got != 0 {
		t.Fatalf("expected no subscribers, got %d", got)
	}
}

func TestPublishDeliversInAttachOrder(t *testing.T) {
	b := New()
	order := []string{}
	defer b.Subscribe(func(string) { order = append(order, "first") })()
	second := b.Subscribe(func(string) { order = append(order, "second") })
	defer b.Subscribe(func(string) { order = append(order, "third") })()

	second()
	b.Publish("hi")

	if len(order) != 2 || order[0] != "first" || order[1] != "third" {
		t.Fatalf("expected first then third, got %q", order)
	}
}

func TestNilBridgeAndHandlerAreSafe(t *testing.T) {
	var b *Bridge
	b.Publish("hi")
	b.Subscribe(func(string) {})()

	if got := New().Subscribe(nil); got == nil {
		t.Fatalf("expected non-nil unsubscribe for nil handler")
	}
}

func TestConcurrentPublishAndSubscribe(t *testing.T) {
	b := New()
	var calls atomic.Int32
	var wg sync.WaitGroup

	for range 20 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			unsubscribe := b.Subscribe(func(string) { calls.Add(1) })
			unsubscribe()
		}()
		go func() {
			defer wg.Done()
			b.Publish("hi")
		}()
	}
	wg.Wait()

	if got := b.Subscribers(); got != 0 {
		t.Fatalf("expected all subscribers detached, got %d", got)
	}
}
