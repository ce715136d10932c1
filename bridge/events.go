package bridge

import (
	"encoding/json"
	"log/slog"
	"reflect"
	"sync"
)

// EventHandler consumes the payload of one server-pushed event.
type EventHandler func(data json.RawMessage)

// eventRegistry maps event types to subscribed handlers. Registrations are
// independent of connection state, so handlers added while disconnected
// start firing as soon as a connection delivers matching events.
type eventRegistry struct {
	mu       sync.RWMutex
	handlers map[string][]EventHandler
	logger   *slog.Logger
}

func newEventRegistry(logger *slog.Logger) *eventRegistry {
	return &eventRegistry{
		handlers: make(map[string][]EventHandler),
		logger:   logger,
	}
}

// on appends handler to the list for eventType, preserving registration
// order. The same function may be registered more than once and will then
// be invoked once per registration.
func (r *eventRegistry) on(eventType string, handler EventHandler) {
	if handler == nil {
		return
	}
	r.mu.Lock()
	r.handlers[eventType] = append(r.handlers[eventType], handler)
	r.mu.Unlock()
}

// off removes the first registration of handler for eventType, matched by
// function identity. A nil handler clears every handler for the type.
func (r *eventRegistry) off(eventType string, handler EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if handler == nil {
		delete(r.handlers, eventType)
		return
	}

	ptr := reflect.ValueOf(handler).Pointer()
	handlers := r.handlers[eventType]
	for i, h := range handlers {
		if reflect.ValueOf(h).Pointer() == ptr {
			r.handlers[eventType] = append(handlers[:i], handlers[i+1:]...)
			if len(r.handlers[eventType]) == 0 {
				delete(r.handlers, eventType)
			}
			return
		}
	}
}

// snapshot copies the handler list for eventType so dispatch can run
// handlers without holding the lock.
func (r *eventRegistry) snapshot(eventType string) []EventHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	handlers := r.handlers[eventType]
	if len(handlers) == 0 {
		return nil
	}
	cp := make([]EventHandler, len(handlers))
	copy(cp, handlers)
	return cp
}

// dispatch invokes every handler registered for eventType in registration
// order and reports how many ran and how many panicked. A panic in one
// handler is recovered and logged; the remaining handlers still run.
func (r *eventRegistry) dispatch(eventType string, data json.RawMessage) (invoked, panicked int) {
	for _, h := range r.snapshot(eventType) {
		if r.invoke(eventType, h, data) {
			panicked++
		}
		invoked++
	}
	return invoked, panicked
}

func (r *eventRegistry) invoke(eventType string, handler EventHandler, data json.RawMessage) (panicked bool) {
	defer func() {
		if rec := recover(); rec != nil {
			panicked = true
			r.logger.Error("event handler panicked",
				"event", eventType,
				"panic", rec)
		}
	}()
	handler(data)
	return false
}
