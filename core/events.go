package core

import (
	"sync"

	"github.com/huangsam/repolens/schema"
)

// ProgressObserver receives progress events synchronously, in publication order.
type ProgressObserver func(event schema.ProgressEvent)

// Subscription delivers progress events on a buffered channel. Events that do
// not fit in the buffer are dropped and counted.
type Subscription struct {
	id  uint64
	C   <-chan schema.ProgressEvent
	bus *eventBus
}

// Close detaches the subscription and closes its channel.
func (s *Subscription) Close() {
	s.bus.unsubscribe(s.id)
}

// eventBus fans progress events out to observers and channel subscribers.
type eventBus struct {
	mu        sync.RWMutex
	next      uint64
	observers map[uint64]ProgressObserver
	subs      map[uint64]chan schema.ProgressEvent
	onDrop    func()
}

func newEventBus(onDrop func()) *eventBus {
	return &eventBus{
		observers: make(map[uint64]ProgressObserver),
		subs:      make(map[uint64]chan schema.ProgressEvent),
		onDrop:    onDrop,
	}
}

func (b *eventBus) observe(fn ProgressObserver) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	id := b.next
	b.observers[id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.observers, id)
	}
}

func (b *eventBus) subscribe(buffer int) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	ch := make(chan schema.ProgressEvent, max(1, buffer))
	b.subs[b.next] = ch
	return &Subscription{id: b.next, C: ch, bus: b}
}

func (b *eventBus) unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}

// publish calls observers outside the lock so they may subscribe or unsubscribe.
func (b *eventBus) publish(event schema.ProgressEvent) {
	b.mu.RLock()
	observers := make([]ProgressObserver, 0, len(b.observers))
	for _, fn := range b.observers {
		observers = append(observers, fn)
	}
	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
			if b.onDrop != nil {
				b.onDrop()
			}
		}
	}
	b.mu.RUnlock()

	for _, fn := range observers {
		fn(event)
	}
}

// closeAll closes every subscriber channel.
func (b *eventBus) closeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
