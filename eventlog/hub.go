package eventlog

import "sync"

// Hub fans appended records out to live subscribers. Slow subscribers miss
// records rather than blocking the writer.
type Hub struct {
	mu   sync.RWMutex
	subs map[chan Record]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan Record]struct{})}
}

// Subscribe registers a subscriber with the given channel buffer. The returned
// cancel func unregisters it and closes the channel.
func (h *Hub) Subscribe(buffer int) (<-chan Record, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Record, buffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Publish delivers rec to every subscriber with room in its buffer.
func (h *Hub) Publish(rec Record) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- rec:
		default:
		}
	}
}

// Subscribers reports the number of live subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
