// Package realtime pushes live slot-occupancy updates to browsers watching a
// date's slot grid over WebSocket.
package realtime

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait (seconds) drive the heartbeat.
	PingInterval = 30
	PongWait     = 60
)

// Publisher publishes a date's event to other instances (e.g. Redis pub/sub).
type Publisher interface {
	PublishDateEvent(date, event string, payload []byte) error
}

// Subscriber subscribes to a date's channel and invokes handler per event.
type Subscriber interface {
	SubscribeDate(date string, handler func(event string, payload []byte)) (cancel func(), err error)
}

// Hub maintains date -> set of connections and broadcasts occupancy events.
// With a Publisher/Subscriber attached, broadcasts fan out across instances;
// with nil, the hub is local only.
type Hub struct {
	dates  map[string]map[string]*Client
	subs   map[string]func()
	mu     sync.RWMutex
	logger *zap.Logger
	pub    Publisher
	sub    Subscriber
}

// NewHub creates a hub. pub and sub may be nil.
func NewHub(logger *zap.Logger, pub Publisher, sub Subscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		dates:  make(map[string]map[string]*Client),
		subs:   make(map[string]func()),
		logger: logger,
		pub:    pub,
		sub:    sub,
	}
}

// Register adds a client to its date room, starting the cross-instance
// subscription when the room first becomes occupied.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.dates[c.Date] == nil {
		h.dates[c.Date] = make(map[string]*Client)
		if h.sub != nil {
			date := c.Date
			cancel, err := h.sub.SubscribeDate(date, func(event string, payload []byte) {
				h.Broadcast(date, event, json.RawMessage(payload))
			})
			if err == nil {
				h.subs[date] = cancel
			}
		}
	}
	h.dates[c.Date][c.ID] = c
	h.mu.Unlock()
	h.logger.Debug("watcher joined", zap.String("client_id", c.ID), zap.String("date", c.Date))
}

// Unregister removes a client, cancelling the subscription when the room empties.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if m, ok := h.dates[c.Date]; ok {
		delete(m, c.ID)
		if len(m) == 0 {
			delete(h.dates, c.Date)
			if cancel, ok := h.subs[c.Date]; ok {
				cancel()
				delete(h.subs, c.Date)
			}
		}
	}
	h.mu.Unlock()
	h.logger.Debug("watcher left", zap.String("client_id", c.ID), zap.String("date", c.Date))
}

// Broadcast sends an event to all local clients watching a date.
func (h *Hub) Broadcast(date, event string, payload interface{}) {
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		data, _ = json.Marshal(payload)
	}
	msg := Message{Event: event, Data: data}

	h.mu.RLock()
	clients := h.dates[date]
	h.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.send <- msg:
		default:
			// buffer full, skip
		}
	}
}

// BroadcastAndPublish sends to local clients and publishes for other instances.
func (h *Hub) BroadcastAndPublish(date, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Warn("marshal broadcast payload", zap.Error(err))
		return
	}
	h.Broadcast(date, event, json.RawMessage(data))
	if h.pub != nil {
		if err := h.pub.PublishDateEvent(date, event, data); err != nil {
			h.logger.Warn("publish date event", zap.Error(err), zap.String("date", date))
		}
	}
}

// Watchers returns the number of local clients watching a date.
func (h *Hub) Watchers(date string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.dates[date])
}
