// Package realtime fans database change notifications out to subscribers.
// Events only say that a row changed; subscribers refetch what they show.
package realtime

import (
	"sync"

	"github.com/sirupsen/logrus"
)

type Action string

const (
	ActionInsert Action = "INSERT"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
)

type Event struct {
	Table  string `json:"table"`
	Action Action `json:"action"`
	RowID  string `json:"id"`
}

// Filter selects events by table and optionally by row. Empty fields match
// everything.
type Filter struct {
	Table string
	RowID string
}

func (f Filter) Matches(e Event) bool {
	if f.Table != "" && f.Table != e.Table {
		return false
	}
	if f.RowID != "" && f.RowID != e.RowID {
		return false
	}
	return true
}

const subscriptionBuffer = 16

type Subscription struct {
	hub    *Hub
	id     uint64
	filter Filter
	events chan Event
	once   sync.Once
}

func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Close unsubscribes and closes the event channel. Safe to call twice.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s.id)
	})
}

type Hub struct {
	logger logrus.FieldLogger

	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]*Subscription
	closed bool
}

func NewHub(logger logrus.FieldLogger) *Hub {
	return &Hub{
		logger: logger,
		subs:   make(map[uint64]*Subscription),
	}
}

func (h *Hub) Subscribe(filter Filter) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	sub := &Subscription{
		hub:    h,
		id:     h.nextID,
		filter: filter,
		events: make(chan Event, subscriptionBuffer),
	}

	if h.closed {
		close(sub.events)
		return sub
	}

	h.subs[sub.id] = sub
	return sub
}

// Publish never blocks. A subscriber whose buffer is full already has an
// invalidation queued, so the event is dropped for it.
func (h *Hub) Publish(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subs {
		if !sub.filter.Matches(event) {
			continue
		}

		select {
		case sub.events <- event:
		default:
			h.logger.WithField("table", event.Table).WithField("subscription", sub.id).Debug("subscriber buffer full, dropping event")
		}
	}
}

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close drops every subscription and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true

	for id, sub := range h.subs {
		close(sub.events)
		delete(h.subs, id)
	}
}

func (h *Hub) remove(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub, ok := h.subs[id]
	if !ok {
		return
	}
	close(sub.events)
	delete(h.subs, id)
}
