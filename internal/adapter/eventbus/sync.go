// Package eventbus provides the synchronous notification bus the playback core publishes to.
package eventbus

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/tejashwikalptaru/gotune-core/internal/domain"
	"github.com/tejashwikalptaru/gotune-core/internal/metrics"
	"github.com/tejashwikalptaru/gotune-core/internal/ports"
)

// ErrClosed is returned by Close on a bus that is already closed.
var ErrClosed = errors.New("event bus already closed")

// SyncEventBus delivers every event on the publishing goroutine, to type
// subscribers first and then to wildcard subscribers, each in subscription order.
//
// Thread-safety: This implementation is thread-safe. Chain runs, load sessions
// and presenters can publish and subscribe concurrently.
//
// Handlers run inline, so a slow handler delays the publisher. A chain run that
// publishes waits for its handlers.
type SyncEventBus struct {
	logger  *slog.Logger
	metrics *metrics.Recorder

	// mu protects subscribers, allSubscribers and closed
	mu             sync.RWMutex
	subscribers    map[domain.EventType][]subscription
	allSubscribers []subscription
	closed         bool

	idCounter atomic.Uint64
}

type subscription struct {
	id      domain.SubscriptionID
	handler domain.EventHandler
}

// Option configures a SyncEventBus.
type Option func(*SyncEventBus)

// WithLogger sets the logger used for panics and debug tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(bus *SyncEventBus) {
		bus.logger = logger.With(slog.String("component", "eventbus"))
	}
}

// WithMetrics counts published events per type.
func WithMetrics(rec *metrics.Recorder) Option {
	return func(bus *SyncEventBus) {
		bus.metrics = rec
	}
}

// NewSyncEventBus creates a new synchronous event bus.
func NewSyncEventBus(opts ...Option) *SyncEventBus {
	bus := &SyncEventBus{
		logger:      slog.New(slog.DiscardHandler),
		subscribers: make(map[domain.EventType][]subscription),
	}

	for _, opt := range opts {
		opt(bus)
	}

	return bus
}

// Publish delivers event to its type subscribers and then to wildcard subscribers.
//
// Publishing on a closed bus or publishing nil does nothing. A panicking handler
// is logged and does not stop delivery to the remaining handlers.
func (bus *SyncEventBus) Publish(event domain.Event) {
	if event == nil {
		return
	}

	bus.mu.RLock()
	if bus.closed {
		bus.mu.RUnlock()
		return
	}

	eventType := event.Type()
	targets := make([]subscription, 0, len(bus.subscribers[eventType])+len(bus.allSubscribers))
	targets = append(targets, bus.subscribers[eventType]...)
	targets = append(targets, bus.allSubscribers...)
	bus.mu.RUnlock()

	bus.metrics.EventPublished(string(eventType))
	bus.logger.Debug("event published",
		slog.String("event_type", string(eventType)),
		slog.Int("handlers", len(targets)))

	for _, sub := range targets {
		bus.deliver(sub, event)
	}
}

func (bus *SyncEventBus) deliver(sub subscription, event domain.Event) {
	defer func() {
		if r := recover(); r != nil {
			bus.logger.Error("event handler panicked",
				slog.Any("panic", r),
				slog.String("event_type", string(event.Type())),
				slog.String("subscription", string(sub.id)))
		}
	}()

	sub.handler(event)
}

// Subscribe registers a handler for events of the specified type.
// The same handler can be registered several times under different ids.
func (bus *SyncEventBus) Subscribe(eventType domain.EventType, handler domain.EventHandler) domain.SubscriptionID {
	if handler == nil {
		panic("event handler cannot be nil")
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()

	if bus.closed {
		panic("cannot subscribe to closed event bus")
	}

	id := bus.nextID("sub")
	bus.subscribers[eventType] = append(bus.subscribers[eventType], subscription{id: id, handler: handler})
	return id
}

// SubscribeAll registers a handler that receives every event.
func (bus *SyncEventBus) SubscribeAll(handler domain.EventHandler) domain.SubscriptionID {
	if handler == nil {
		panic("event handler cannot be nil")
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()

	if bus.closed {
		panic("cannot subscribe to closed event bus")
	}

	id := bus.nextID("sub-all")
	bus.allSubscribers = append(bus.allSubscribers, subscription{id: id, handler: handler})
	return id
}

// Unsubscribe removes a subscription. Unknown ids are ignored.
// The order of the remaining subscriptions is preserved.
func (bus *SyncEventBus) Unsubscribe(id domain.SubscriptionID) {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	matches := func(sub subscription) bool { return sub.id == id }

	for eventType, subs := range bus.subscribers {
		if slices.ContainsFunc(subs, matches) {
			bus.subscribers[eventType] = slices.DeleteFunc(subs, matches)
			return
		}
	}

	bus.allSubscribers = slices.DeleteFunc(bus.allSubscribers, matches)
}

// HasSubscribers reports whether an event of the given type would reach any handler.
func (bus *SyncEventBus) HasSubscribers(eventType domain.EventType) bool {
	bus.mu.RLock()
	defer bus.mu.RUnlock()

	return len(bus.subscribers[eventType]) > 0 || len(bus.allSubscribers) > 0
}

// Close drops every subscription. Later publishes are ignored.
func (bus *SyncEventBus) Close() error {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	if bus.closed {
		return ErrClosed
	}

	bus.closed = true
	bus.subscribers = make(map[domain.EventType][]subscription)
	bus.allSubscribers = nil

	return nil
}

// SubscriberCount returns the number of active subscriptions of both kinds.
func (bus *SyncEventBus) SubscriberCount() int {
	bus.mu.RLock()
	defer bus.mu.RUnlock()

	count := len(bus.allSubscribers)
	for _, subs := range bus.subscribers {
		count += len(subs)
	}
	return count
}

func (bus *SyncEventBus) nextID(prefix string) domain.SubscriptionID {
	return domain.SubscriptionID(fmt.Sprintf("%s-%d", prefix, bus.idCounter.Add(1)))
}

// Verify that SyncEventBus implements the EventBus interface
var _ ports.EventBus = (*SyncEventBus)(nil)
