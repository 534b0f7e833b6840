// Copyright (c) 2026 FarmMarket. All rights reserved.
// Author: dev@farmmarket.az

package gotrue

import (
	"sync"

	"github.com/farmmarket/api/internal/identity"
)

// hub fans session-change events out to registered callbacks.
//
// Delivery is synchronous on the mutating goroutine, so a callback observes
// events in exactly the order the session changed.
type hub struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]func(identity.AuthEvent, *identity.Session)
}

func newHub() *hub {
	return &hub{subs: make(map[uint64]func(identity.AuthEvent, *identity.Session))}
}

// subscribe registers a callback and returns its disposable handle.
func (h *hub) subscribe(callback func(identity.AuthEvent, *identity.Session)) identity.Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	id := h.nextID
	h.subs[id] = callback

	return &subscription{hub: h, id: id}
}

// emit delivers the event to every live subscriber.
func (h *hub) emit(event identity.AuthEvent, session *identity.Session) {
	h.mu.Lock()
	callbacks := make([]func(identity.AuthEvent, *identity.Session), 0, len(h.subs))
	for _, callback := range h.subs {
		callbacks = append(callbacks, callback)
	}
	h.mu.Unlock()

	// Invoke outside the lock so a callback may unsubscribe itself.
	for _, callback := range callbacks {
		callback(event, session)
	}
}

// subscription implements [identity.Subscription] for the hub.
type subscription struct {
	hub  *hub
	id   uint64
	once sync.Once
}

// Unsubscribe removes the callback. Notifications delivered after this call
// never reach the callback; the call is idempotent.
func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs, s.id)
		s.hub.mu.Unlock()
	})
}
