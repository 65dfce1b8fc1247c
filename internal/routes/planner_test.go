package routes

import (
	"errors"
	"testing"

	"github.com/richxcame/transitflow/pkg/common"
	"github.com/richxcame/transitflow/pkg/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lineRoute() *Route {
	return newRoute("line", 2.5,
		stop("S0", 0, 0),
		stop("S3", 0, 3),
		stop("S1", 0, 1),
		stop("S2", 0, 2),
	)
}

func names(points []NamedPoint) []string {
	out := make([]string, 0, len(points))
	for _, p := range points {
		out = append(out, p.Name)
	}
	return out
}

func TestPlanner_Forward(t *testing.T) {
	route := lineRoute()
	origin, destination := pt(0, 0.9), pt(0, 2.1)

	it, err := NewPlanner().Plan(route, origin, destination)
	require.NoError(t, err)

	assert.Equal(t, 1, it.BoardingIndex)
	assert.Equal(t, 2, it.AlightingIndex)
	assert.Equal(t, DirectionForward, it.Direction)
	assert.Equal(t, []string{"S1", "S2"}, names(it.RideSegment))

	wantBoard, _ := geo.Distance(origin, pt(0, 1))
	wantAlight, _ := geo.Distance(pt(0, 2), destination)
	assert.Equal(t, origin, it.WalkToBoard.From)
	assert.Equal(t, pt(0, 1), it.WalkToBoard.To)
	assert.Equal(t, "S1", it.WalkToBoard.StopName)
	assert.Equal(t, wantBoard, it.WalkToBoard.Distance)
	assert.Equal(t, pt(0, 2), it.WalkFromAlight.From)
	assert.Equal(t, destination, it.WalkFromAlight.To)
	assert.Equal(t, wantAlight, it.WalkFromAlight.Distance)
	assert.Equal(t, wantBoard+wantAlight, it.TotalWalkingDistance)
	assert.Equal(t, geo.EstimateWalkMinutes(wantBoard), it.WalkToBoard.EstimatedMinutes)

	assert.Equal(t, "line", it.RouteID)
	assert.Equal(t, 2.5, it.Fare)
	assert.Equal(t, route.EstimatedDuration, it.EstimatedDuration)
}

func TestPlanner_Reverse(t *testing.T) {
	it, err := NewPlanner().Plan(lineRoute(), pt(0, 2.9), pt(0, 0.1))
	require.NoError(t, err)

	assert.Equal(t, 3, it.BoardingIndex)
	assert.Equal(t, 0, it.AlightingIndex)
	assert.Equal(t, DirectionReverse, it.Direction)
	// reverse of array order, both endpoints once
	assert.Equal(t, []string{"S3", "S2", "S1", "S0"}, names(it.RideSegment))
}

func TestPlanner_SameStop(t *testing.T) {
	it, err := NewPlanner().Plan(lineRoute(), pt(0, 1.1), pt(0, 0.9))
	require.NoError(t, err)

	assert.Equal(t, it.BoardingIndex, it.AlightingIndex)
	assert.Equal(t, []string{"S1"}, names(it.RideSegment))
	assert.Equal(t, DirectionForward, it.Direction)
}

func TestPlanner_TiesGoToLowestIndex(t *testing.T) {
	// loop route: origin and destination share a position
	loop := newRoute("loop", 1, stop("Depot", 0, 0), stop("Depot again", 0, 0), stop("Far", 0, 1))

	it, err := NewPlanner().Plan(loop, pt(0, 0.1), pt(0, 0.1))
	require.NoError(t, err)
	assert.Equal(t, 0, it.BoardingIndex)
	assert.Equal(t, 0, it.AlightingIndex)
}

func TestPlanner_EstimatedDurationIsWholeRoute(t *testing.T) {
	route := lineRoute()
	route.EstimatedDuration = 90

	it, err := NewPlanner().Plan(route, pt(0, 1), pt(0, 1.1))
	require.NoError(t, err)
	assert.Equal(t, 90, it.EstimatedDuration)
}

func TestPlanner_Errors(t *testing.T) {
	p := NewPlanner()

	_, err := p.Plan(nil, pt(0, 0), pt(0, 1))
	assert.True(t, common.IsNotFound(err))

	_, err = p.Plan(lineRoute(), pt(-91, 0), pt(0, 1))
	assert.True(t, errors.Is(err, common.ErrValidation))

	broken := newRoute("broken", 1, stop("o", 100, 0), stop("d", 100, 1))
	_, err = p.Plan(broken, pt(0, 0), pt(0, 1))
	assert.True(t, errors.Is(err, common.ErrValidation))
}

func TestPlanner_SkipsInvalidStops(t *testing.T) {
	route := newRoute("r", 1, stop("o", 0, 0), stop("d", 0, 2), stop("bad", 200, 0))

	it, err := NewPlanner().Plan(route, pt(0, 0.1), pt(0, 1.9))
	require.NoError(t, err)
	assert.Equal(t, 0, it.BoardingIndex)
	assert.Equal(t, 2, it.AlightingIndex)
	assert.Len(t, it.RideSegment, 3)
}
