package simulation

import (
	"sync"

	"github.com/zeusync/sentry/internal/core/events/bus"
)

// Counters counts published events per type. It is attached to the bus as an observer.
type Counters struct {
	mu     sync.Mutex
	counts map[string]uint64
}

var _ bus.EventBusObserver = (*Counters)(nil)

func NewCounters() *Counters {
	return &Counters{counts: make(map[string]uint64)}
}

func (c *Counters) OnPublish(eventType string, _ bus.Event) {
	c.mu.Lock()
	c.counts[eventType]++
	c.mu.Unlock()
}

func (c *Counters) OnDelivered(string, int, error, int64) {}

func (c *Counters) Get(eventType string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[eventType]
}

// Snapshot copies the current counts.
func (c *Counters) Snapshot() map[string]uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]uint64, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}
