package routes

import (
	"sort"

	"github.com/richxcame/transitflow/pkg/geo"
	"github.com/richxcame/transitflow/pkg/logger"
	"go.uber.org/zap"
)

const (
	DefaultMatchRadiusMeters = 500.0
	DefaultFallbackSize      = 3
)

// Matcher ranks routes against a requested origin and destination.
// It is stateless and safe for concurrent use.
type Matcher struct {
	radius       float64
	fallbackSize int
}

// NewMatcher creates a matcher. A non-positive radius or a negative fallback
// size selects the default.
func NewMatcher(radiusMeters float64, fallbackSize int) *Matcher {
	if radiusMeters <= 0 {
		radiusMeters = DefaultMatchRadiusMeters
	}
	if fallbackSize < 0 {
		fallbackSize = DefaultFallbackSize
	}
	return &Matcher{radius: radiusMeters, fallbackSize: fallbackSize}
}

// candidate holds the precomputed anchor distances of one route.
type candidate struct {
	route   *Route
	toStart float64
	toEnd   float64
}

// FindOptimalRoutes returns the best routes for the trip. Tiers run in order
// (direct, waypoint, fallback) and a tier runs only when the previous one
// matched nothing. Direct and waypoint matches are sorted by fare; fallback
// matches keep their nearest-origin then nearest-destination order.
func (m *Matcher) FindOptimalRoutes(origin, destination geo.Point, routes []*Route) ([]AnnotatedRoute, error) {
	fromOrigin, err := geo.DistanceFrom(origin)
	if err != nil {
		return nil, err
	}
	fromDestination, err := geo.DistanceFrom(destination)
	if err != nil {
		return nil, err
	}

	candidates := make([]candidate, 0, len(routes))
	for _, r := range routes {
		if r == nil || !r.Active {
			continue
		}
		toStart, err := fromOrigin(r.Origin.Coordinates)
		if err != nil {
			logger.Warn("skipping route with invalid origin", zap.String("route_id", r.ID), zap.Error(err))
			continue
		}
		toEnd, err := fromDestination(r.Destination.Coordinates)
		if err != nil {
			logger.Warn("skipping route with invalid destination", zap.String("route_id", r.ID), zap.Error(err))
			continue
		}
		candidates = append(candidates, candidate{route: r, toStart: toStart, toEnd: toEnd})
	}

	if len(candidates) == 0 {
		return []AnnotatedRoute{}, nil
	}

	if matched := m.direct(candidates); len(matched) > 0 {
		return annotate(sortByFare(matched), TierDirect), nil
	}
	if matched := m.waypoint(candidates, fromOrigin, fromDestination); len(matched) > 0 {
		return annotate(sortByFare(matched), TierWaypoint), nil
	}
	return annotate(m.fallback(candidates), TierFallback), nil
}

func (m *Matcher) direct(candidates []candidate) []candidate {
	var matched []candidate
	for _, c := range candidates {
		if c.toStart <= m.radius && c.toEnd <= m.radius {
			matched = append(matched, c)
		}
	}
	return matched
}

func (m *Matcher) waypoint(candidates []candidate, fromOrigin, fromDestination func(geo.Point) (float64, error)) []candidate {
	var matched []candidate
	for _, c := range candidates {
		if m.anyWithin(c.route.Waypoints, fromOrigin) && m.anyWithin(c.route.Waypoints, fromDestination) {
			matched = append(matched, c)
		}
	}
	return matched
}

func (m *Matcher) anyWithin(points []NamedPoint, distanceTo func(geo.Point) (float64, error)) bool {
	for _, p := range points {
		d, err := distanceTo(p.Coordinates)
		if err != nil {
			continue
		}
		if d <= m.radius {
			return true
		}
	}
	return false
}

// fallback concatenates the routes with the nearest origins and the routes
// with the nearest destinations, keeping the first occurrence of each id.
func (m *Matcher) fallback(candidates []candidate) []candidate {
	byStart := nearest(candidates, m.fallbackSize, func(c candidate) float64 { return c.toStart })
	byEnd := nearest(candidates, m.fallbackSize, func(c candidate) float64 { return c.toEnd })

	seen := make(map[string]bool, len(byStart)+len(byEnd))
	out := make([]candidate, 0, len(byStart)+len(byEnd))
	for _, c := range append(byStart, byEnd...) {
		if seen[c.route.ID] {
			continue
		}
		seen[c.route.ID] = true
		out = append(out, c)
	}
	return out
}

func nearest(candidates []candidate, n int, key func(candidate) float64) []candidate {
	sorted := make([]candidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return key(sorted[i]) < key(sorted[j])
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func sortByFare(candidates []candidate) []candidate {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].route.Fare < candidates[j].route.Fare
	})
	return candidates
}

func annotate(candidates []candidate, tier MatchTier) []AnnotatedRoute {
	out := make([]AnnotatedRoute, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, AnnotatedRoute{
			Route:                  *c.route,
			WalkingDistanceToStart: c.toStart,
			WalkingDistanceToEnd:   c.toEnd,
			TotalWalkingDistance:   c.toStart + c.toEnd,
			MatchTier:              tier,
		})
	}
	return out
}
