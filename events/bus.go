package events

import (
	"sync"
)

// Handler consumes a published event. Handlers must not block: delivery to
// live connections happens on the publisher's goroutine.
type Handler func(Event)

// Bus is an in-process publish/subscribe fan-out. Services publish domain
// events; transport-specific subscribers (WebSocket delivery, RabbitMQ
// mirroring) consume them. Services never see a transport handle.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a handler for all subsequent events.
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	b.handlers = append(b.handlers, h)
	b.mu.Unlock()
}

// Publish delivers the event to every subscriber in registration order.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	handlers := b.handlers
	b.mu.RUnlock()

	for _, h := range handlers {
		h(e)
	}
}
