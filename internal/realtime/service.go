package realtime

import (
	"context"
	"errors"
	"time"

	"github.com/richxcame/transitflow/internal/tracking"
	"github.com/richxcame/transitflow/pkg/common"
	"github.com/richxcame/transitflow/pkg/geo"
	"github.com/richxcame/transitflow/pkg/logger"
	"github.com/richxcame/transitflow/pkg/models"
	"github.com/richxcame/transitflow/pkg/ratelimit"
	"github.com/richxcame/transitflow/pkg/validation"
	ws "github.com/richxcame/transitflow/pkg/websocket"
	"go.uber.org/zap"
)

// pushTimeout bounds a location push received over the websocket.
const pushTimeout = 5 * time.Second

// LocationPusher accepts vehicle location pushes
type LocationPusher interface {
	ResolveTrip(ctx context.Context, push tracking.LocationPush, fallbackVehicle string) (tracking.LocationPush, error)
	PushLocation(ctx context.Context, push tracking.LocationPush) (*tracking.VehiclePosition, error)
}

// Throttle decides whether an identity may make another call to endpoint
type Throttle interface {
	Allow(ctx context.Context, endpoint, identity string) (ratelimit.Result, error)
}

// Service handles messages from websocket clients
type Service struct {
	hub      *ws.Hub
	pusher   LocationPusher
	throttle Throttle
}

// NewService creates a new real-time service and registers its message handlers on hub
func NewService(hub *ws.Hub, pusher LocationPusher) *Service {
	s := &Service{hub: hub, pusher: pusher}
	s.registerHandlers()
	return s
}

// SetThrottle limits websocket location pushes. They share the bucket of
// the HTTP location endpoint.
func (s *Service) SetThrottle(t Throttle) {
	s.throttle = t
}

// GetHub returns the hub
func (s *Service) GetHub() *ws.Hub {
	return s.hub
}

// Stats is a snapshot of hub occupancy
type Stats struct {
	Clients int `json:"clients"`
	Rooms   int `json:"rooms"`
}

// GetStats returns connection statistics
func (s *Service) GetStats() Stats {
	return Stats{Clients: s.hub.ClientCount(), Rooms: s.hub.RoomCount()}
}

// peer is the sending side of an inbound message
type peer struct {
	sub       ws.Subscriber
	userID    string
	role      models.UserRole
	vehicleID string
}

func peerOf(c *ws.Client) peer {
	return peer{sub: c, userID: c.UserID, role: c.Role, vehicleID: c.VehicleID}
}

// roomRequest is the payload of join and leave
type roomRequest struct {
	RouteID string `json:"routeId"`
}

// locationRequest is the payload of an inbound location-update
type locationRequest struct {
	RouteID   string     `json:"routeId"`
	VehicleID string     `json:"vehicleId"`
	Latitude  *float64   `json:"latitude"`
	Longitude *float64   `json:"longitude"`
	Timestamp *time.Time `json:"timestamp"`
}

func (s *Service) registerHandlers() {
	s.hub.RegisterHandler(MessageTypeJoin, func(c *ws.Client, msg *ws.Message) { s.handleJoin(peerOf(c), msg) })
	s.hub.RegisterHandler(MessageTypeLeave, func(c *ws.Client, msg *ws.Message) { s.handleLeave(peerOf(c), msg) })
	s.hub.RegisterHandler(MessageTypeLocationUpdate, func(c *ws.Client, msg *ws.Message) { s.handleLocationUpdate(peerOf(c), msg) })
}

// handleJoin subscribes the peer to a route room
func (s *Service) handleJoin(p peer, msg *ws.Message) {
	routeID, ok := s.roomOf(p, msg)
	if !ok {
		inboundMessages.WithLabelValues(MessageTypeJoin, "rejected").Inc()
		return
	}

	s.hub.Join(p.sub, routeID)
	inboundMessages.WithLabelValues(MessageTypeJoin, "ok").Inc()
	reply(p, MessageTypeJoined, routeID, map[string]interface{}{
		"routeId": routeID,
		"members": s.hub.RoomSize(routeID),
	})
}

// handleLeave unsubscribes the peer from a route room
func (s *Service) handleLeave(p peer, msg *ws.Message) {
	routeID, ok := s.roomOf(p, msg)
	if !ok {
		inboundMessages.WithLabelValues(MessageTypeLeave, "rejected").Inc()
		return
	}

	s.hub.Leave(p.sub, routeID)
	inboundMessages.WithLabelValues(MessageTypeLeave, "ok").Inc()
	reply(p, MessageTypeLeft, routeID, map[string]string{"routeId": routeID})
}

// handleLocationUpdate accepts a position from a driver. The update is
// broadcast to the room without echoing it back to the sender.
func (s *Service) handleLocationUpdate(p peer, msg *ws.Message) {
	if !p.role.CanPushLocation() {
		logger.Warn("non-driver attempted location update",
			zap.String("user_id", p.userID),
			zap.String("role", string(p.role)),
		)
		inboundMessages.WithLabelValues(MessageTypeLocationUpdate, "forbidden").Inc()
		sendError(p, "only drivers can publish locations")
		return
	}

	var req locationRequest
	if err := msg.DecodeData(&req); err != nil {
		inboundMessages.WithLabelValues(MessageTypeLocationUpdate, "rejected").Inc()
		sendError(p, "invalid location payload")
		return
	}
	if req.Latitude == nil || req.Longitude == nil {
		inboundMessages.WithLabelValues(MessageTypeLocationUpdate, "rejected").Inc()
		sendError(p, "latitude and longitude are required")
		return
	}

	push := tracking.LocationPush{
		DriverID:  p.userID,
		VehicleID: req.VehicleID,
		RouteID:   firstNonEmpty(msg.RouteID, req.RouteID),
		Location:  geo.Point{Latitude: *req.Latitude, Longitude: *req.Longitude},
		Sender:    p.sub,
	}
	if req.Timestamp != nil {
		push.Timestamp = req.Timestamp.UTC()
	}

	ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
	defer cancel()

	if !s.allowPush(ctx, p) {
		inboundMessages.WithLabelValues(MessageTypeLocationUpdate, "throttled").Inc()
		sendError(p, "rate limit exceeded")
		return
	}

	push, err := s.pusher.ResolveTrip(ctx, push, p.vehicleID)
	if err == nil {
		_, err = s.pusher.PushLocation(ctx, push)
	}
	if err != nil {
		inboundMessages.WithLabelValues(MessageTypeLocationUpdate, "error").Inc()
		logger.Warn("websocket location update failed",
			zap.String("user_id", p.userID),
			zap.Error(err),
		)
		sendError(p, messageOf(err))
		return
	}
	inboundMessages.WithLabelValues(MessageTypeLocationUpdate, "ok").Inc()
}

// allowPush fails open when the throttle cannot decide.
func (s *Service) allowPush(ctx context.Context, p peer) bool {
	if s.throttle == nil {
		return true
	}
	res, err := s.throttle.Allow(ctx, ratelimit.EndpointLocationPush, p.userID)
	if err != nil {
		logger.Warn("rate limit evaluation failed", zap.String("user_id", p.userID), zap.Error(err))
		return true
	}
	return res.Allowed
}

// roomOf reads and validates the route a join or leave names.
func (s *Service) roomOf(p peer, msg *ws.Message) (string, bool) {
	var req roomRequest
	if err := msg.DecodeData(&req); err != nil {
		sendError(p, "invalid room payload")
		return "", false
	}
	routeID := firstNonEmpty(msg.RouteID, req.RouteID)
	if !validation.ValidateIdentifier(routeID) {
		sendError(p, "routeId is required")
		return "", false
	}
	return routeID, true
}

func reply(p peer, msgType, routeID string, payload interface{}) {
	msg, err := ws.NewMessage(msgType, routeID, payload)
	if err != nil {
		return
	}
	p.sub.Deliver(msg)
}

func sendError(p peer, message string) {
	reply(p, ws.MessageTypeError, "", map[string]string{"message": message})
}

func messageOf(err error) string {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "location update failed"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
