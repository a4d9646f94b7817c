package event

import "sync"

// HandlerID identifies one bus subscription for removal
type HandlerID uint64

// Bus is the named event surface exposed to guest scripts and demo
// services. Unlike the engine Queue it dispatches synchronously:
// Emit invokes every live handler for the name before returning
type Bus struct {
	mu       sync.RWMutex
	nextID   HandlerID
	handlers map[string]map[HandlerID]func(payload any)
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{
		nextID:   1,
		handlers: make(map[string]map[HandlerID]func(payload any)),
	}
}

// On subscribes a handler to a named event and returns its id
func (b *Bus) On(name string, fn func(payload any)) HandlerID {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	if b.handlers[name] == nil {
		b.handlers[name] = make(map[HandlerID]func(payload any))
	}
	b.handlers[name][id] = fn
	return id
}

// Remove drops a subscription. Idempotent: removing an unknown id is a no-op
func (b *Bus) Remove(id HandlerID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for name, set := range b.handlers {
		if _, ok := set[id]; ok {
			delete(set, id)
			if len(set) == 0 {
				delete(b.handlers, name)
			}
			return
		}
	}
}

// Emit invokes every handler subscribed to name with the payload.
// Handlers registered during dispatch see the next Emit, not this one
func (b *Bus) Emit(name string, payload any) {
	b.mu.RLock()
	set := b.handlers[name]
	fns := make([]func(payload any), 0, len(set))
	for _, fn := range set {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(payload)
	}
}

// HandlerCount reports live subscriptions for a name. Test helper
func (b *Bus) HandlerCount(name string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[name])
}
