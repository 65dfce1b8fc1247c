package realtime

import (
	"context"
	"fmt"

	"github.com/richxcame/transitflow/internal/tracking"
	"github.com/richxcame/transitflow/pkg/eventbus"
	"github.com/richxcame/transitflow/pkg/geo"
	"github.com/richxcame/transitflow/pkg/logger"
	ws "github.com/richxcame/transitflow/pkg/websocket"
	"go.uber.org/zap"
)

// EventSubscriber registers handlers on the cross-instance bus
type EventSubscriber interface {
	Subscribe(ctx context.Context, subject string, handler eventbus.HandlerFunc) error
}

// Relay delivers location events published by other instances to the
// local route rooms. Events this instance published are skipped since
// they were already delivered locally.
type Relay struct {
	hub        *ws.Hub
	instanceID string
}

// NewRelay creates a relay for the local hub
func NewRelay(hub *ws.Hub, instanceID string) *Relay {
	return &Relay{hub: hub, instanceID: instanceID}
}

// Start subscribes the relay to location events of every route
func (r *Relay) Start(ctx context.Context, bus EventSubscriber) error {
	if err := bus.Subscribe(ctx, eventbus.SubjectLocationAll, r.Handle); err != nil {
		return fmt.Errorf("failed to subscribe location relay: %w", err)
	}
	logger.Info("location relay started", zap.String("instance_id", r.instanceID))
	return nil
}

// Handle relays one bus event into the hub
func (r *Relay) Handle(ctx context.Context, event *eventbus.Event) error {
	if event.Type != eventbus.EventVehicleLocation {
		relayedEvents.WithLabelValues("ignored").Inc()
		return nil
	}
	if event.Source == r.instanceID {
		relayedEvents.WithLabelValues("own").Inc()
		return nil
	}

	var data eventbus.VehicleLocationData
	if err := event.Decode(&data); err != nil {
		relayedEvents.WithLabelValues("invalid").Inc()
		return fmt.Errorf("failed to decode location event %s: %w", event.ID, err)
	}
	if data.RouteID == "" {
		relayedEvents.WithLabelValues("invalid").Inc()
		return fmt.Errorf("location event %s has no route", event.ID)
	}

	msg, err := locationMessage(tracking.LocationUpdate{
		RouteID:   data.RouteID,
		VehicleID: data.VehicleID,
		Location:  geo.Point{Latitude: data.Latitude, Longitude: data.Longitude},
		Timestamp: data.Timestamp,
	})
	if err != nil {
		return err
	}

	delivered := r.hub.Publish(nil, data.RouteID, msg)
	relayedEvents.WithLabelValues("relayed").Inc()
	logger.DebugContext(ctx, "relayed location event",
		zap.String("route_id", data.RouteID),
		zap.String("source", event.Source),
		zap.Int("delivered", delivered),
	)
	return nil
}
