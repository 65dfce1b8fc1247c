package routes

import (
	"time"

	"github.com/richxcame/transitflow/pkg/geo"
)

// NamedPoint is a labelled stop on a route
type NamedPoint struct {
	Name        string    `json:"name"`
	Coordinates geo.Point `json:"coordinates"`
}

// Route is a transit line as read from the route store
type Route struct {
	ID                string       `json:"id"`
	Name              string       `json:"name"`
	Origin            NamedPoint   `json:"origin"`
	Destination       NamedPoint   `json:"destination"`
	Waypoints         []NamedPoint `json:"waypoints"`
	Fare              float64      `json:"fare"`
	EstimatedDuration int          `json:"estimatedDuration"` // minutes, whole route
	Active            bool         `json:"active"`
	CreatedAt         time.Time    `json:"createdAt"`
	UpdatedAt         time.Time    `json:"updatedAt"`
}

// Sequence returns the ordered stops of the route: origin, waypoints in
// travel order, destination.
func (r *Route) Sequence() []NamedPoint {
	seq := make([]NamedPoint, 0, len(r.Waypoints)+2)
	seq = append(seq, r.Origin)
	seq = append(seq, r.Waypoints...)
	seq = append(seq, r.Destination)
	return seq
}

// MatchTier names the strategy that produced a match
type MatchTier string

const (
	TierDirect   MatchTier = "direct"
	TierWaypoint MatchTier = "waypoint"
	TierFallback MatchTier = "fallback"
	TierNone     MatchTier = "none"
)

// AnnotatedRoute is a matched route with the walking distances from the
// request points to the route's anchors.
type AnnotatedRoute struct {
	Route
	WalkingDistanceToStart float64   `json:"walkingDistanceToStart"`
	WalkingDistanceToEnd   float64   `json:"walkingDistanceToEnd"`
	TotalWalkingDistance   float64   `json:"totalWalkingDistance"`
	MatchTier              MatchTier `json:"matchTier"`
}

// Direction of travel along the route sequence
type Direction string

const (
	DirectionForward Direction = "forward"
	DirectionReverse Direction = "reverse"
)

// WalkLeg is a walk between a request point and a stop
type WalkLeg struct {
	From             geo.Point `json:"from"`
	To               geo.Point `json:"to"`
	StopName         string    `json:"stopName,omitempty"`
	Distance         float64   `json:"distance"`
	EstimatedMinutes int       `json:"estimatedMinutes"`
}

// Itinerary is a planned trip on a single route
type Itinerary struct {
	RouteID              string       `json:"routeId"`
	RouteName            string       `json:"routeName"`
	Fare                 float64      `json:"fare"`
	WalkToBoard          WalkLeg      `json:"walkToBoard"`
	RideSegment          []NamedPoint `json:"rideSegment"`
	WalkFromAlight       WalkLeg      `json:"walkFromAlight"`
	TotalWalkingDistance float64      `json:"totalWalkingDistance"`
	EstimatedDuration    int          `json:"estimatedDuration"`
	BoardingIndex        int          `json:"boardingIndex"`
	AlightingIndex       int          `json:"alightingIndex"`
	Direction            Direction    `json:"direction"`
}

// FindRoutesRequest is the body of POST /routes/find
type FindRoutesRequest struct {
	Origin      *geo.PointInput `json:"origin" validate:"required"`
	Destination *geo.PointInput `json:"destination" validate:"required"`
}

// FindRoutesResponse wraps the ranked matches
type FindRoutesResponse struct {
	Routes []AnnotatedRoute `json:"routes"`
	Tier   MatchTier        `json:"tier"`
	Count  int              `json:"count"`
}
