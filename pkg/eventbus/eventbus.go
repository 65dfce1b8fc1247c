package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/richxcame/transitflow/pkg/logger"
	"go.uber.org/zap"
)

// Event is the envelope for all events published through the bus.
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Source    string          `json:"source"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// NewEvent creates a new event with a unique ID and current timestamp.
func NewEvent(eventType, source string, data interface{}) (*Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal event data: %w", err)
	}
	return &Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    source,
		Timestamp: time.Now().UTC(),
		Data:      raw,
	}, nil
}

// Decode unmarshals the event payload into v.
func (e *Event) Decode(v interface{}) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("event %s has no data", e.ID)
	}
	return json.Unmarshal(e.Data, v)
}

// HandlerFunc processes a received event. Core NATS has no redelivery, so a
// returned error is only logged.
type HandlerFunc func(ctx context.Context, event *Event) error

// Config holds NATS connection settings.
type Config struct {
	URL  string
	Name string // client connection name
}

// DefaultConfig returns sensible defaults for local development.
func DefaultConfig() Config {
	return Config{
		URL:  nats.DefaultURL,
		Name: "transitflow",
	}
}

// Bus wraps a core NATS connection. Messages are fire-and-forget; nothing is
// stored by the server.
type Bus struct {
	conn *nats.Conn
	cfg  Config

	mu   sync.Mutex
	subs []*nats.Subscription
}

// New connects to NATS.
func New(cfg Config) (*Bus, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	logger.Info("NATS event bus connected", zap.String("url", cfg.URL))

	return &Bus{conn: nc, cfg: cfg}, nil
}

// Publish sends an event to the given subject.
func (b *Bus) Publish(ctx context.Context, subject string, event *Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := b.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}

	logger.DebugContext(ctx, "event published",
		zap.String("subject", subject),
		zap.String("event_id", event.ID),
		zap.String("type", event.Type),
	)
	return nil
}

// Subscribe registers handler for subject, which may contain wildcards.
// The subscription lives until Close.
func (b *Bus) Subscribe(ctx context.Context, subject string, handler HandlerFunc) error {
	sub, err := b.conn.Subscribe(subject, func(msg *nats.Msg) {
		event, err := DecodeEvent(msg.Data)
		if err != nil {
			logger.Warn("failed to unmarshal event",
				zap.String("subject", msg.Subject),
				zap.Error(err),
			)
			return
		}

		if err := handler(ctx, event); err != nil {
			logger.Warn("event handler error",
				zap.String("event_id", event.ID),
				zap.String("type", event.Type),
				zap.Error(err),
			)
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}

	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	logger.Info("subscribed to events", zap.String("subject", subject))
	return nil
}

// DecodeEvent parses a raw bus message into an Event.
func DecodeEvent(data []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	if event.Type == "" {
		return nil, fmt.Errorf("decode event: missing type")
	}
	return &event, nil
}

// Close drains subscriptions and closes the NATS connection.
func (b *Bus) Close() {
	b.mu.Lock()
	for _, sub := range b.subs {
		if err := sub.Unsubscribe(); err != nil {
			logger.Debug("NATS unsubscribe failed", zap.Error(err))
		}
	}
	b.subs = nil
	b.mu.Unlock()

	if b.conn != nil {
		if err := b.conn.Drain(); err != nil {
			logger.Warn("NATS drain failed", zap.Error(err))
		}
	}
	logger.Info("NATS event bus closed")
}

// Connected returns true if the NATS connection is active.
func (b *Bus) Connected() bool {
	return b.conn != nil && b.conn.IsConnected()
}

// Ping reports an error when the connection is down; used by readiness checks.
func (b *Bus) Ping() error {
	if !b.Connected() {
		return fmt.Errorf("nats not connected")
	}
	return nil
}
