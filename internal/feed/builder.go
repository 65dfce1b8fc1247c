package feed

import (
	"sort"
	"time"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/richxcame/transitflow/internal/tracking"
	"google.golang.org/protobuf/proto"
)

// GTFSRealtimeVersion is the GTFS-Realtime version written in every feed header.
const GTFSRealtimeVersion = "2.0"

// BuildVehiclePositions renders live positions as a full-dataset GTFS-RT
// feed with one VehiclePosition entity per vehicle, ordered by vehicle id.
// Positions with invalid coordinates are left out.
func BuildVehiclePositions(positions []*tracking.VehiclePosition, now time.Time) *gtfsrtpb.FeedMessage {
	sorted := make([]*tracking.VehiclePosition, 0, len(positions))
	for _, pos := range positions {
		if pos == nil || pos.VehicleID == "" || pos.Location.Validate() != nil {
			continue
		}
		sorted = append(sorted, pos)
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].VehicleID < sorted[j].VehicleID
	})

	entities := make([]*gtfsrtpb.FeedEntity, 0, len(sorted))
	for _, pos := range sorted {
		entities = append(entities, vehicleEntity(pos))
	}

	return &gtfsrtpb.FeedMessage{
		Header: &gtfsrtpb.FeedHeader{
			GtfsRealtimeVersion: proto.String(GTFSRealtimeVersion),
			Incrementality:      gtfsrtpb.FeedHeader_FULL_DATASET.Enum(),
			Timestamp:           proto.Uint64(unixSeconds(now)),
		},
		Entity: entities,
	}
}

func vehicleEntity(pos *tracking.VehiclePosition) *gtfsrtpb.FeedEntity {
	vehicle := &gtfsrtpb.VehiclePosition{
		Vehicle: &gtfsrtpb.VehicleDescriptor{
			Id: proto.String(pos.VehicleID),
		},
		Position: &gtfsrtpb.Position{
			Latitude:  proto.Float32(float32(pos.Location.Latitude)),
			Longitude: proto.Float32(float32(pos.Location.Longitude)),
		},
	}
	if pos.RouteID != "" {
		vehicle.Trip = &gtfsrtpb.TripDescriptor{RouteId: proto.String(pos.RouteID)}
	}
	if !pos.ObservedAt.IsZero() {
		vehicle.Timestamp = proto.Uint64(unixSeconds(pos.ObservedAt))
	}

	return &gtfsrtpb.FeedEntity{
		Id:      proto.String(pos.VehicleID),
		Vehicle: vehicle,
	}
}

func unixSeconds(t time.Time) uint64 {
	if t.Unix() < 0 {
		return 0
	}
	return uint64(t.Unix())
}
