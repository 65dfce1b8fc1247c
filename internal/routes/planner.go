package routes

import (
	"github.com/richxcame/transitflow/pkg/common"
	"github.com/richxcame/transitflow/pkg/geo"
)

// Planner snaps a trip onto one route's stop sequence.
type Planner struct{}

// NewPlanner creates a planner.
func NewPlanner() *Planner {
	return &Planner{}
}

// Plan boards at the stop nearest origin and alights at the stop nearest
// destination, ties going to the earlier stop. The ride runs backwards along
// the sequence when the boarding stop comes after the alighting stop.
// EstimatedDuration is the duration of the whole route.
func (p *Planner) Plan(route *Route, origin, destination geo.Point) (*Itinerary, error) {
	if route == nil {
		return nil, common.NewNotFoundError("route not found", nil)
	}

	seq := route.Sequence()

	boardIdx, boardDist, err := nearestStop(seq, origin)
	if err != nil {
		return nil, err
	}
	alightIdx, alightDist, err := nearestStop(seq, destination)
	if err != nil {
		return nil, err
	}

	direction := DirectionForward
	var segment []NamedPoint
	if boardIdx <= alightIdx {
		segment = make([]NamedPoint, alightIdx-boardIdx+1)
		copy(segment, seq[boardIdx:alightIdx+1])
	} else {
		direction = DirectionReverse
		segment = make([]NamedPoint, 0, boardIdx-alightIdx+1)
		for i := boardIdx; i >= alightIdx; i-- {
			segment = append(segment, seq[i])
		}
	}

	board := seq[boardIdx]
	alight := seq[alightIdx]

	return &Itinerary{
		RouteID:   route.ID,
		RouteName: route.Name,
		Fare:      route.Fare,
		WalkToBoard: WalkLeg{
			From:             origin,
			To:               board.Coordinates,
			StopName:         board.Name,
			Distance:         boardDist,
			EstimatedMinutes: geo.EstimateWalkMinutes(boardDist),
		},
		RideSegment: segment,
		WalkFromAlight: WalkLeg{
			From:             alight.Coordinates,
			To:               destination,
			StopName:         alight.Name,
			Distance:         alightDist,
			EstimatedMinutes: geo.EstimateWalkMinutes(alightDist),
		},
		TotalWalkingDistance: boardDist + alightDist,
		EstimatedDuration:    route.EstimatedDuration,
		BoardingIndex:        boardIdx,
		AlightingIndex:       alightIdx,
		Direction:            direction,
	}, nil
}

// nearestStop returns the index of the stop closest to target. Stops with
// invalid coordinates are ignored.
func nearestStop(seq []NamedPoint, target geo.Point) (int, float64, error) {
	distanceTo, err := geo.DistanceFrom(target)
	if err != nil {
		return 0, 0, err
	}

	best, bestDist := -1, 0.0
	for i, stop := range seq {
		d, err := distanceTo(stop.Coordinates)
		if err != nil {
			continue
		}
		// strict comparison keeps the lowest index on ties
		if best == -1 || d < bestDist {
			best, bestDist = i, d
		}
	}
	if best == -1 {
		return 0, 0, common.NewValidationError("route has no valid stops")
	}
	return best, bestDist, nil
}
