package events

import (
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Event identifies a point in the sync layer that observers can attach to
type Event string

const (
	// Cache events
	EventCacheHit          Event = "cache.hit"
	EventCacheMiss         Event = "cache.miss"
	EventCacheEviction     Event = "cache.eviction"
	EventCacheInvalidation Event = "cache.invalidation"

	// Connectivity events
	EventConnectivityChanged Event = "offline.state"

	// Replay events
	EventReplayStarted  Event = "offline.replay_started"
	EventReplayFinished Event = "offline.replay_finished"
)

// Handler receives the payload published for an event
type Handler func(payload interface{})

// Subscription is the disposer handle returned by Subscribe. Dropping a
// handler goes through the handle, never through handler identity, so two
// subscribers of the same function cannot race each other on removal.
type Subscription struct {
	registry *Registry
	event    Event
	id       uint64
	once     sync.Once
}

// Unsubscribe removes the handler. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.registry.remove(s.event, s.id)
	})
}

// Registry dispatches published events to subscribed handlers
type Registry struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[Event]map[uint64]Handler
	logger   *zap.Logger
}

// NewRegistry creates a new event registry
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		handlers: make(map[Event]map[uint64]Handler),
		logger:   logger,
	}
}

// Subscribe registers a handler for an event and returns its disposer
func (r *Registry) Subscribe(event Event, handler Handler) *Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	if r.handlers[event] == nil {
		r.handlers[event] = make(map[uint64]Handler)
	}
	r.handlers[event][r.nextID] = handler

	return &Subscription{registry: r, event: event, id: r.nextID}
}

// Publish delivers the payload to every subscriber of the event,
// synchronously and in subscription order. A panicking handler is logged
// and does not stop delivery to the rest.
func (r *Registry) Publish(event Event, payload interface{}) {
	r.mu.RLock()
	ids := make([]uint64, 0, len(r.handlers[event]))
	for id := range r.handlers[event] {
		ids = append(ids, id)
	}
	// IDs are allocated in subscription order, so ascending ID order is
	// delivery order.
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	handlers := make([]Handler, 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, r.handlers[event][id])
	}
	r.mu.RUnlock()

	for _, handler := range handlers {
		r.invoke(event, handler, payload)
	}
}

// SubscriberCount returns the number of handlers attached to an event
func (r *Registry) SubscriberCount(event Event) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers[event])
}

func (r *Registry) invoke(event Event, handler Handler, payload interface{}) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("event handler panicked",
				zap.String("event", string(event)),
				zap.Any("panic", rec),
			)
		}
	}()
	handler(payload)
}

func (r *Registry) remove(event Event, id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if handlers, ok := r.handlers[event]; ok {
		delete(handlers, id)
		if len(handlers) == 0 {
			delete(r.handlers, event)
		}
	}
}
