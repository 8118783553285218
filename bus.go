package vesselsync

import "sync"

// BusHandler receives events emitted on the process-local bus.
// A non-nil return marks the emission as failed for that handler.
type BusHandler func(eventType, payload string) error

// EventBus is the process-local publish/subscribe mechanism used to fan
// entity changes out to in-process listeners. It is an explicit callback
// registry with explicit teardown so listener registration cannot leak.
//
// Delivery is synchronous and best-effort within the emitting goroutine;
// the bus never touches the broker.
type EventBus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[string]map[int]BusHandler
}

// BusEventAll subscribes a handler to every event type.
const BusEventAll = "*"

// NewEventBus creates an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{
		handlers: make(map[string]map[int]BusHandler),
	}
}

// Subscribe registers a handler for an event type (or BusEventAll).
// The returned function removes the handler; calling it more than once is safe.
func (b *EventBus) Subscribe(eventType string, handler BusHandler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.handlers[eventType] == nil {
		b.handlers[eventType] = make(map[int]BusHandler)
	}
	id := b.nextID
	b.nextID++
	b.handlers[eventType][id] = handler

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.handlers[eventType], id)
			if len(b.handlers[eventType]) == 0 {
				delete(b.handlers, eventType)
			}
		})
	}
}

// Emit delivers an event to all handlers registered for its type and to
// BusEventAll subscribers. Returns the number of handlers invoked and the
// first handler error, if any.
func (b *EventBus) Emit(eventType, payload string) (int, error) {
	b.mu.RLock()
	handlers := make([]BusHandler, 0, len(b.handlers[eventType])+len(b.handlers[BusEventAll]))
	for _, h := range b.handlers[eventType] {
		handlers = append(handlers, h)
	}
	for _, h := range b.handlers[BusEventAll] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	var firstErr error
	for _, h := range handlers {
		if err := h(eventType, payload); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return len(handlers), firstErr
}

// ListenerCount returns the number of handlers registered for an event type.
func (b *EventBus) ListenerCount(eventType string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[eventType])
}
