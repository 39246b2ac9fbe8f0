// Package orderfeed fans order changes out to merchants following their
// incoming orders live.
package orderfeed

import (
	"sync"

	"cutin/internal/domain"
	"go.uber.org/zap"
)

// EventType tells followers what happened to an order.
type EventType string

const (
	EventCreated       EventType = "order.created"
	EventStatusChanged EventType = "order.status_changed"
)

// Event is one order change.
type Event struct {
	Type  EventType    `json:"type"`
	Order domain.Order `json:"order"`
}

const bufferSize = 16

type follower struct {
	id int
	ch chan Event
}

// Hub delivers events to the followers of the order's merchant. A follower
// that falls behind loses events rather than blocking publishers.
type Hub struct {
	logger *zap.Logger

	mu        sync.Mutex
	next      int
	followers map[string][]follower
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{logger: logger, followers: make(map[string][]follower)}
}

// Follow subscribes to a merchant's orders. The returned cancel function
// closes the channel.
func (h *Hub) Follow(merchantID string) (<-chan Event, func()) {
	h.mu.Lock()
	h.next++
	f := follower{id: h.next, ch: make(chan Event, bufferSize)}
	h.followers[merchantID] = append(h.followers[merchantID], f)
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			list := h.followers[merchantID]
			for i, cur := range list {
				if cur.id == f.id {
					list = append(list[:i], list[i+1:]...)
					break
				}
			}
			if len(list) == 0 {
				delete(h.followers, merchantID)
			} else {
				h.followers[merchantID] = list
			}
			close(f.ch)
		})
	}
	return f.ch, cancel
}

// Publish sends ev to every follower of ev.Order.MerchantID without blocking.
func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, f := range h.followers[ev.Order.MerchantID] {
		select {
		case f.ch <- ev:
		default:
			h.logger.Warn("order feed follower is behind, dropping event",
				zap.String("merchant_id", ev.Order.MerchantID),
				zap.String("order_id", ev.Order.ID))
		}
	}
}

// Followers reports how many followers a merchant has.
func (h *Hub) Followers(merchantID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.followers[merchantID])
}
