package events

import (
	"sync"

	"github.com/rs/zerolog"
)

// Handler receives one published event.
type Handler func(Event)

// Bus is a synchronous publish/subscribe fan-out. Handlers run inline on
// the publisher's goroutine; a panicking handler is isolated so it cannot
// break the publisher or other handlers.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	logger   zerolog.Logger
}

func NewBus(logger zerolog.Logger) *Bus {
	return &Bus{
		handlers: make(map[string][]Handler),
		logger:   logger.With().Str("component", "event_bus").Logger(),
	}
}

// Subscribe registers a handler for one event type.
func (b *Bus) Subscribe(eventType string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], h)
}

// Publish delivers the event to every handler registered for its type.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	handlers := b.handlers[event.Type()]
	b.mu.RUnlock()

	for i, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					b.logger.Error().
						Str("event_type", event.Type()).
						Str("room_id", event.RoomID()).
						Int("handler_index", i).
						Interface("panic", r).
						Msg("event handler panicked")
				}
			}()
			h(event)
		}()
	}
}
