// Package ports define interfaces for dependency inversion.
// These interfaces keep the playback core independent of engines, storage and presenters.
package ports

import (
	"github.com/tejashwikalptaru/gotune-core/internal/domain"
)

// EventBus is the notification bus the core publishes to.
//
// Delivery and ordering are the bus's responsibility. The core only publishes
// fire-and-forget events and never waits for a handler result.
//
// Thread-safety: Implementations must be thread-safe as chain runs, load sessions
// and presenters publish and subscribe from different goroutines.
//
// Example usage:
//
//	subID := bus.Subscribe(domain.EventTrackNotPlayed, func(event domain.Event) {
//	    e := event.(domain.TrackNotPlayedEvent)
//	    view.ShowError(e.Failed.DisplayName(), e.Error)
//	})
//	defer bus.Unsubscribe(subID)
type EventBus interface {
	// Publish publishes an event to all subscribers of that event type.
	// Handlers should return quickly; publishers may be inside a chain run.
	Publish(event domain.Event)

	// Subscribe registers a handler for events of the specified type.
	// Returns a SubscriptionID that can be used to unsubscribe later.
	Subscribe(eventType domain.EventType, handler domain.EventHandler) domain.SubscriptionID

	// Unsubscribe removes a previously registered event handler.
	// If the subscription ID is invalid or already unsubscribed, this is a no-op.
	Unsubscribe(id domain.SubscriptionID)

	// SubscribeAll registers a handler that receives all events regardless of type.
	SubscribeAll(handler domain.EventHandler) domain.SubscriptionID

	// HasSubscribers returns true if there are any active subscriptions for the given event type.
	HasSubscribers(eventType domain.EventType) bool

	// Close shuts down the event bus and cleans up resources.
	Close() error
}
