package adaptcache

import "time"

// EventType represents the type of cache event
type EventType string

const (
	// EventTypeStore fires when a value is written
	EventTypeStore EventType = "store"
	// EventTypeHit fires when a lookup finds a live entry
	EventTypeHit EventType = "hit"
	// EventTypeDelete fires when a key is removed explicitly
	EventTypeDelete EventType = "delete"
	// EventTypeEviction fires when the policy removes an entry for space
	EventTypeEviction EventType = "eviction"
	// EventTypeExpiration fires when an entry is removed past its TTL
	EventTypeExpiration EventType = "expiration"
	// EventTypePrefetch fires when a produced value lands in the
	// prefetch tier
	EventTypePrefetch EventType = "prefetch"
	// EventTypePromotion fires when a prefetched entry moves to the main
	// tier on its first hit
	EventTypePromotion EventType = "promotion"
	// EventTypeClear fires once when the cache is cleared
	EventTypeClear EventType = "clear"
)

// Event describes one cache state change
type Event[K comparable] struct {
	Type      EventType
	Key       K
	Tier      string
	Timestamp time.Time
}

// Callback receives cache events. Callbacks run synchronously on the
// goroutine that caused the event and must not call back into the cache.
type Callback[K comparable] func(Event[K])

// OnEvent registers a callback invoked for every cache event
func (s *Store[K, V, C]) OnEvent(cb Callback[K]) {
	if cb == nil || s.closed.Load() {
		return
	}
	s.callbacksMu.Lock()
	defer s.callbacksMu.Unlock()
	s.callbacks = append(s.callbacks, cb)
}

func (s *Store[K, V, C]) emitEvent(eventType EventType, key K, tierName string) {
	s.callbacksMu.RLock()
	defer s.callbacksMu.RUnlock()

	if len(s.callbacks) == 0 {
		return
	}
	event := Event[K]{
		Type:      eventType,
		Key:       key,
		Tier:      tierName,
		Timestamp: time.Now(),
	}
	for _, cb := range s.callbacks {
		cb(event)
	}
}
