package sim

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultInterval matches the 100ms cadence of the browser simulator.
const DefaultInterval = 100 * time.Millisecond

// Hub fans generated readings out to every subscriber.
type Hub struct {
	gen      *Generator
	interval time.Duration

	mu   sync.Mutex
	subs map[chan Reading]struct{}
}

// NewHub creates a Hub emitting one reading from gen every interval.
func NewHub(gen *Generator, interval time.Duration) *Hub {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Hub{
		gen:      gen,
		interval: interval,
		subs:     make(map[chan Reading]struct{}),
	}
}

// Run generates readings until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			h.Publish(h.gen.Next(now))
		}
	}
}

// Publish sends r to every subscriber. Slow subscribers miss readings.
func (h *Hub) Publish(r Reading) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- r:
		default:
			slog.Debug("Subscriber full, skip reading")
		}
	}
}

// Subscribe registers a subscriber. Call the returned func to unsubscribe.
func (h *Hub) Subscribe() (<-chan Reading, func()) {
	ch := make(chan Reading, 64)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	n := len(h.subs)
	h.mu.Unlock()
	slog.Info("stream client connected", "clients", n)

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			n := len(h.subs)
			h.mu.Unlock()
			slog.Info("stream client removed", "clients", n)
		})
	}
}

// Subscribers returns the number of active subscribers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
