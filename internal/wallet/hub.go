package wallet

import "sync"

// hub fans events out to subscribers.
type hub struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[int]func(Event)
}

func newHub() *hub {
	return &hub{handlers: make(map[int]func(Event))}
}

func (h *hub) subscribe(handler func(Event)) func() {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.handlers[id] = handler
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.handlers, id)
			h.mu.Unlock()
		})
	}
}

func (h *hub) publish(ev Event) {
	h.mu.RLock()
	handlers := make([]func(Event), 0, len(h.handlers))
	for _, fn := range h.handlers {
		handlers = append(handlers, fn)
	}
	h.mu.RUnlock()

	for _, fn := range handlers {
		fn(ev)
	}
}

func (h *hub) len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.handlers)
}
