package websocket

import (
	"context"
	"sync"

	"github.com/richxcame/transitflow/pkg/logger"
	"go.uber.org/zap"
)

// Subscriber is a handle that can receive room messages. Deliver must not
// block: it returns false when the message could not be enqueued.
type Subscriber interface {
	ID() string
	Deliver(msg *Message) bool
}

// closer is implemented by subscribers that own a connection.
type closer interface {
	Close()
}

// MessageHandler is a function that handles incoming messages
type MessageHandler func(*Client, *Message)

// Hub maintains route rooms and fans out messages to their members.
type Hub struct {
	// Known subscribers by subscriber ID
	subscribers map[string]Subscriber

	// Room members by route ID
	rooms map[string]map[string]Subscriber

	// Rooms joined by each subscriber
	memberships map[string]map[string]struct{}

	// Message handlers by message type
	handlers map[string]MessageHandler

	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]Subscriber),
		rooms:       make(map[string]map[string]Subscriber),
		memberships: make(map[string]map[string]struct{}),
		handlers:    make(map[string]MessageHandler),
	}
}

// Run blocks until ctx is cancelled, then disconnects every subscriber.
func (h *Hub) Run(ctx context.Context) {
	logger.Info("WebSocket hub started")
	<-ctx.Done()
	h.shutdown()
	logger.Info("WebSocket hub stopped")
}

func (h *Hub) shutdown() {
	h.mu.RLock()
	subs := make([]Subscriber, 0, len(h.subscribers))
	for _, sub := range h.subscribers {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	for _, sub := range subs {
		if c, ok := sub.(closer); ok {
			c.Close()
		}
		h.Disconnect(sub)
	}
}

// Register makes a subscriber known to the hub without joining any room.
func (h *Hub) Register(sub Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.registerLocked(sub)
}

func (h *Hub) registerLocked(sub Subscriber) {
	if _, ok := h.subscribers[sub.ID()]; ok {
		return
	}
	h.subscribers[sub.ID()] = sub
	h.memberships[sub.ID()] = make(map[string]struct{})
	subscribersGauge.Inc()
}

// Join adds sub to the room for routeID. Joining twice is a no-op.
func (h *Hub) Join(sub Subscriber, routeID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.registerLocked(sub)

	room, ok := h.rooms[routeID]
	if !ok {
		room = make(map[string]Subscriber)
		h.rooms[routeID] = room
		roomsGauge.Inc()
	}
	room[sub.ID()] = sub
	h.memberships[sub.ID()][routeID] = struct{}{}

	logger.Debug("subscriber joined room",
		zap.String("subscriber_id", sub.ID()),
		zap.String("route_id", routeID),
	)
}

// Leave removes sub from one room. Leaving a room it is not in is a no-op.
func (h *Hub) Leave(sub Subscriber, routeID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.leaveLocked(sub.ID(), routeID)
}

func (h *Hub) leaveLocked(subID, routeID string) {
	if room, ok := h.rooms[routeID]; ok {
		delete(room, subID)
		if len(room) == 0 {
			delete(h.rooms, routeID)
			roomsGauge.Dec()
		}
	}
	if joined, ok := h.memberships[subID]; ok {
		delete(joined, routeID)
	}
}

// Disconnect removes every membership of sub and forgets it.
func (h *Hub) Disconnect(sub Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	joined, ok := h.memberships[sub.ID()]
	if !ok {
		return
	}
	for routeID := range joined {
		h.leaveLocked(sub.ID(), routeID)
	}
	delete(h.memberships, sub.ID())
	delete(h.subscribers, sub.ID())
	subscribersGauge.Dec()

	logger.Debug("subscriber disconnected", zap.String("subscriber_id", sub.ID()))
}

// Publish delivers msg to every member of the room except sender, which
// may be nil. Members are copied under the read lock so concurrent joins
// and leaves never see a partially iterated room. It returns the number of
// members the message was enqueued for.
func (h *Hub) Publish(sender Subscriber, routeID string, msg *Message) int {
	h.mu.RLock()
	room := h.rooms[routeID]
	members := make([]Subscriber, 0, len(room))
	for _, sub := range room {
		members = append(members, sub)
	}
	h.mu.RUnlock()

	senderID := ""
	if sender != nil {
		senderID = sender.ID()
	}

	delivered := 0
	for _, sub := range members {
		if sub.ID() == senderID {
			continue
		}
		if sub.Deliver(msg) {
			delivered++
			messagesDelivered.Inc()
			continue
		}
		messagesDropped.Inc()
		logger.Debug("dropped room message",
			zap.String("subscriber_id", sub.ID()),
			zap.String("route_id", routeID),
			zap.String("type", msg.Type),
		)
	}
	return delivered
}

// HandleMessage routes incoming messages to appropriate handlers
func (h *Hub) HandleMessage(client *Client, msg *Message) {
	h.mu.RLock()
	handler, exists := h.handlers[msg.Type]
	h.mu.RUnlock()

	if !exists {
		logger.Debug("no handler for message type", zap.String("type", msg.Type))
		client.SendError("unsupported message type: " + msg.Type)
		return
	}
	handler(client, msg)
}

// RegisterHandler registers a message handler for a specific type
func (h *Hub) RegisterHandler(msgType string, handler MessageHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[msgType] = handler
}

// IsMember reports whether sub currently belongs to the room.
func (h *Hub) IsMember(sub Subscriber, routeID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[routeID][sub.ID()]
	return ok
}

// RoomsOf returns the route IDs sub has joined.
func (h *Hub) RoomsOf(sub Subscriber) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	rooms := make([]string, 0, len(h.memberships[sub.ID()]))
	for routeID := range h.memberships[sub.ID()] {
		rooms = append(rooms, routeID)
	}
	return rooms
}

// RoomSize returns the number of members in a room.
func (h *Hub) RoomSize(routeID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[routeID])
}

// RoomCount returns the number of non-empty rooms.
func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// ClientCount returns the number of known subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
