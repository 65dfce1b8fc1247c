package websocket

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/richxcame/transitflow/pkg/logger"
	"github.com/richxcame/transitflow/pkg/models"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 64 * 1024

	// DefaultSendBuffer is the per-client outbound queue length
	DefaultSendBuffer = 256

	// MessageTypeError is sent back to a client whose message was rejected
	MessageTypeError = "error"
)

// Client represents a WebSocket client connection
type Client struct {
	id        string          // Unique per connection
	UserID    string          // Authenticated user
	Role      models.UserRole // passenger, driver or admin
	VehicleID string          // Vehicle bound to the driver's token, if any
	conn      *websocket.Conn
	send      chan *Message // Buffered queue of outbound messages, never closed
	done      chan struct{} // Closed once when the connection is torn down
	hub       *Hub
	once      sync.Once
}

// NewClient creates a new WebSocket client
func NewClient(conn *websocket.Conn, hub *Hub, userID string, role models.UserRole, sendBuffer int) *Client {
	if sendBuffer <= 0 {
		sendBuffer = DefaultSendBuffer
	}
	return &Client{
		id:     uuid.NewString(),
		UserID: userID,
		Role:   role,
		conn:   conn,
		send:   make(chan *Message, sendBuffer),
		done:   make(chan struct{}),
		hub:    hub,
	}
}

// ID returns the connection-scoped subscriber ID.
func (c *Client) ID() string {
	return c.id
}

// Deliver enqueues msg without blocking. It returns false if the queue is
// full or the connection is gone.
func (c *Client) Deliver(msg *Message) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// SendError replies to this client with an error message.
func (c *Client) SendError(message string) {
	msg, err := NewMessage(MessageTypeError, "", map[string]string{"message": message})
	if err != nil {
		return
	}
	c.Deliver(msg)
}

// Close tears the connection down and removes the client from every room.
// Safe to call from any goroutine, any number of times.
func (c *Client) Close() {
	c.once.Do(func() {
		close(c.done)
		c.hub.Disconnect(c)
		if c.conn != nil {
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			c.conn.Close()
		}
		logger.Debug("websocket client closed",
			zap.String("client_id", c.id),
			zap.String("user_id", c.UserID),
		)
	})
}

// Done is closed when the client has been torn down.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// ReadPump pumps messages from the WebSocket connection to the hub
func (c *Client) ReadPump() {
	defer c.Close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logger.Warn("websocket read error", zap.String("client_id", c.id), zap.Error(err))
			}
			return
		}

		msg.Timestamp = time.Now().UTC()
		msg.UserID = c.UserID

		c.hub.HandleMessage(c, &msg)
	}
}

// WritePump pumps messages from the hub to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			return
		}
	}
}
