package wizard

import "sync"

// The web frontend this replaces used a window-level custom DOM event to
// hop between unrelated sections. Bus is the typed equivalent: a small
// in-process publish/subscribe channel whose payloads are checked at
// compile time.

type Event interface{ isEvent() }

// StateChanged carries a snapshot of the store after every mutation.
type StateChanged struct{ State State }

// Navigate asks the embedding app to switch to another section, optionally
// landing on a specific wizard step.
type Navigate struct {
	Route string
	Step  int // 0 = section default
}

func (StateChanged) isEvent() {}
func (Navigate) isEvent()     {}

type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(Event)
}

func NewBus() *Bus {
	return &Bus{subs: map[int]func(Event){}}
}

// Subscribe registers a handler and returns its cancel func. Handlers run
// synchronously on the publishing goroutine, so they must not block.
func (b *Bus) Subscribe(fn func(Event)) (cancel func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[id] = fn
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	fns := make([]func(Event), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.Unlock()
	for _, fn := range fns {
		fn(e)
	}
}
