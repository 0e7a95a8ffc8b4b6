package testutil

import (
	"sync"
	"time"

	"github.com/tejashwikalptaru/gotune-core/internal/domain"
	"github.com/tejashwikalptaru/gotune-core/internal/ports"
)

// EventCollector records every event published on a bus.
type EventCollector struct {
	mu     sync.Mutex
	events []domain.Event
}

// CollectEvents subscribes a new collector to every event on bus.
func CollectEvents(bus ports.EventBus) *EventCollector {
	c := &EventCollector{}
	bus.SubscribeAll(func(event domain.Event) {
		c.mu.Lock()
		c.events = append(c.events, event)
		c.mu.Unlock()
	})
	return c
}

// All returns the recorded events in publish order.
func (c *EventCollector) All() []domain.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Event(nil), c.events...)
}

// OfType returns the recorded events of one type in publish order.
func (c *EventCollector) OfType(eventType domain.EventType) []domain.Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []domain.Event
	for _, e := range c.events {
		if e.Type() == eventType {
			out = append(out, e)
		}
	}
	return out
}

// Types returns the type of every recorded event in publish order.
func (c *EventCollector) Types() []domain.EventType {
	c.mu.Lock()
	defer c.mu.Unlock()

	types := make([]domain.EventType, len(c.events))
	for i, e := range c.events {
		types[i] = e.Type()
	}
	return types
}

// WaitFor polls until an event of the given type was recorded or timeout elapses.
func (c *EventCollector) WaitFor(eventType domain.EventType, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if len(c.OfType(eventType)) > 0 {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(time.Millisecond)
	}
}
