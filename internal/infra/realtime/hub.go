// Package realtime fans incident messages out to live subscribers of a
// thread. Delivery is in-process; the websocket transport lives in the
// handler layer.
package realtime

import (
	"sync"

	"go.uber.org/zap"

	"github.com/trabamex/mir-bff-go/internal/domain"
)

const defaultBuffer = 16

// Subscription receives the messages of one incident thread.
type Subscription struct {
	IncidentID string
	C          <-chan domain.IncidentMessage

	ch   chan domain.IncidentMessage
	hub  *Hub
	once sync.Once
}

// Close detaches the subscription and closes its channel.
func (s *Subscription) Close() {
	s.once.Do(func() { s.hub.remove(s) })
}

// Hub keeps the live subscriptions per incident.
type Hub struct {
	mu      sync.RWMutex
	subs    map[string]map[*Subscription]struct{}
	buffer  int
	logger  *zap.Logger
	onJoin  func()
	onLeave func()
}

// NewHub creates an empty hub. onJoin/onLeave may be nil.
func NewHub(logger *zap.Logger, onJoin, onLeave func()) *Hub {
	return &Hub{
		subs:    make(map[string]map[*Subscription]struct{}),
		buffer:  defaultBuffer,
		logger:  logger,
		onJoin:  onJoin,
		onLeave: onLeave,
	}
}

// Subscribe registers a new listener for incidentID.
func (h *Hub) Subscribe(incidentID string) *Subscription {
	ch := make(chan domain.IncidentMessage, h.buffer)
	s := &Subscription{IncidentID: incidentID, C: ch, ch: ch, hub: h}

	h.mu.Lock()
	if h.subs[incidentID] == nil {
		h.subs[incidentID] = make(map[*Subscription]struct{})
	}
	h.subs[incidentID][s] = struct{}{}
	h.mu.Unlock()

	if h.onJoin != nil {
		h.onJoin()
	}
	return s
}

// Publish delivers msg to every subscriber of incidentID and returns how
// many received it. A subscriber whose buffer is full misses the message.
func (h *Hub) Publish(incidentID string, msg domain.IncidentMessage) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for s := range h.subs[incidentID] {
		select {
		case s.ch <- msg:
			delivered++
		default:
			h.logger.Warn("realtime: subscriber buffer full, message dropped",
				zap.String("incident_id", incidentID),
				zap.String("message_id", msg.ID),
			)
		}
	}
	return delivered
}

// Subscribers returns the number of live subscriptions for incidentID.
func (h *Hub) Subscribers(incidentID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[incidentID])
}

// Shutdown closes every subscription.
func (h *Hub) Shutdown() {
	h.mu.RLock()
	all := make([]*Subscription, 0)
	for _, set := range h.subs {
		for s := range set {
			all = append(all, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range all {
		s.Close()
	}
}

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	if set, ok := h.subs[s.IncidentID]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(h.subs, s.IncidentID)
		}
	}
	close(s.ch)
	h.mu.Unlock()

	if h.onLeave != nil {
		h.onLeave()
	}
}
