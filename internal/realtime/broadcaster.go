package realtime

import (
	"context"
	"fmt"

	"github.com/richxcame/transitflow/internal/tracking"
	"github.com/richxcame/transitflow/pkg/eventbus"
	ws "github.com/richxcame/transitflow/pkg/websocket"
)

// Message types exchanged over the websocket
const (
	MessageTypeJoin           = "join"
	MessageTypeLeave          = "leave"
	MessageTypeLocationUpdate = "location-update"
	MessageTypeJoined         = "joined"
	MessageTypeLeft           = "left"
)

// EventPublisher hands events to the cross-instance bus
type EventPublisher interface {
	Publish(ctx context.Context, subject string, event *eventbus.Event) error
}

// Broadcaster fans location updates out to the local route room and to
// the other instances through the bus.
type Broadcaster struct {
	hub        *ws.Hub
	bus        EventPublisher
	instanceID string
}

// NewBroadcaster creates a broadcaster. bus may be nil for a single instance.
func NewBroadcaster(hub *ws.Hub, bus EventPublisher, instanceID string) *Broadcaster {
	return &Broadcaster{hub: hub, bus: bus, instanceID: instanceID}
}

// BroadcastLocation implements tracking.Broadcaster. Local delivery never
// fails; the returned error only reports a failed bus hand-off.
func (b *Broadcaster) BroadcastLocation(ctx context.Context, sender ws.Subscriber, update tracking.LocationUpdate) error {
	msg, err := locationMessage(update)
	if err != nil {
		return err
	}
	b.hub.Publish(sender, update.RouteID, msg)

	if b.bus == nil {
		return nil
	}
	event, err := eventbus.NewEvent(eventbus.EventVehicleLocation, b.instanceID, eventbus.VehicleLocationData{
		RouteID:   update.RouteID,
		VehicleID: update.VehicleID,
		Latitude:  update.Location.Latitude,
		Longitude: update.Location.Longitude,
		Timestamp: update.Timestamp,
	})
	if err != nil {
		return err
	}
	if err := b.bus.Publish(ctx, eventbus.LocationSubject(update.RouteID), event); err != nil {
		busPublishFailures.Inc()
		return fmt.Errorf("failed to publish location event: %w", err)
	}
	return nil
}

func locationMessage(update tracking.LocationUpdate) (*ws.Message, error) {
	msg, err := ws.NewMessage(MessageTypeLocationUpdate, update.RouteID, update)
	if err != nil {
		return nil, fmt.Errorf("failed to encode location update: %w", err)
	}
	return msg, nil
}
