package feed

import (
	"context"
	"time"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/richxcame/transitflow/internal/tracking"
	"github.com/richxcame/transitflow/pkg/common"
	"github.com/richxcame/transitflow/pkg/validation"
)

// PositionSource lists the vehicles with a live position
type PositionSource interface {
	LivePositions(ctx context.Context) ([]*tracking.VehiclePosition, error)
}

// Service builds GTFS-Realtime feeds from live positions
type Service struct {
	source PositionSource
	now    func() time.Time
}

// NewService creates a new feed service
func NewService(source PositionSource) *Service {
	return &Service{source: source, now: time.Now}
}

// VehiclePositions returns the current vehicle positions feed. A non-empty
// routeID keeps only the vehicles of that route.
func (s *Service) VehiclePositions(ctx context.Context, routeID string) (*gtfsrtpb.FeedMessage, error) {
	if routeID != "" && !validation.ValidateIdentifier(routeID) {
		return nil, common.NewValidationError("route id is not a valid identifier")
	}

	positions, err := s.source.LivePositions(ctx)
	if err != nil {
		return nil, err
	}

	if routeID != "" {
		filtered := positions[:0:0]
		for _, pos := range positions {
			if pos.RouteID == routeID {
				filtered = append(filtered, pos)
			}
		}
		positions = filtered
	}
	return BuildVehiclePositions(positions, s.now()), nil
}
