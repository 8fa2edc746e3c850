package client

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/pulseboard/realtime-backend/internal/core/domain"
)

// Handler receives a decoded event payload. The concrete type matches the
// event name's payload shape; handlers type-assert to the shape they expect.
type Handler func(payload domain.Payload)

// dispatcher routes incoming event frames to registered handlers. Multiple
// independent handlers per event name are supported; unsubscribing one never
// disturbs the others.
type dispatcher struct {
	mu       sync.RWMutex
	handlers map[domain.EventName]map[uint64]Handler
	nextID   uint64
	logger   *slog.Logger
}

func newDispatcher(logger *slog.Logger) *dispatcher {
	return &dispatcher{
		handlers: make(map[domain.EventName]map[uint64]Handler),
		logger:   logger,
	}
}

// subscribe registers a handler and returns an unsubscribe func. Calling the
// returned func after the handler is already gone is a no-op.
func (d *dispatcher) subscribe(name domain.EventName, handler Handler) func() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextID++
	id := d.nextID
	if d.handlers[name] == nil {
		d.handlers[name] = make(map[uint64]Handler)
	}
	d.handlers[name][id] = handler

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if set, ok := d.handlers[name]; ok {
			delete(set, id)
			if len(set) == 0 {
				delete(d.handlers, name)
			}
		}
	}
}

// dispatch decodes the raw payload for the event name and fans it out to
// every registered handler. Unknown names and malformed payloads are dropped;
// a bad frame must never take down the dispatcher.
func (d *dispatcher) dispatch(name domain.EventName, raw json.RawMessage) {
	payload, ok := domain.NewPayload(name)
	if !ok {
		d.logger.Debug("ignoring unknown event", "event", string(name))
		return
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, payload); err != nil {
			d.logger.Warn("dropping malformed event payload",
				"event", string(name),
				"error", err,
			)
			return
		}
	}

	d.mu.RLock()
	set := d.handlers[name]
	handlers := make([]Handler, 0, len(set))
	for _, h := range set {
		handlers = append(handlers, h)
	}
	d.mu.RUnlock()

	for _, h := range handlers {
		h(payload)
	}
}

// clear removes every handler.
func (d *dispatcher) clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers = make(map[domain.EventName]map[uint64]Handler)
}
