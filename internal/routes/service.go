package routes

import (
	"context"
	"time"

	"github.com/richxcame/transitflow/pkg/common"
	"github.com/richxcame/transitflow/pkg/geo"
	"github.com/richxcame/transitflow/pkg/logger"
	"github.com/richxcame/transitflow/pkg/tracing"
	"github.com/richxcame/transitflow/pkg/validation"
	"go.uber.org/zap"
)

// Service exposes route matching and directions over a Store
type Service struct {
	store   Store
	matcher *Matcher
	planner *Planner
}

// NewService creates a new routes service
func NewService(store Store, matcher *Matcher, planner *Planner) *Service {
	if matcher == nil {
		matcher = NewMatcher(DefaultMatchRadiusMeters, DefaultFallbackSize)
	}
	if planner == nil {
		planner = NewPlanner()
	}
	return &Service{store: store, matcher: matcher, planner: planner}
}

// ListRoutes returns every active route
func (s *Service) ListRoutes(ctx context.Context) ([]*Route, error) {
	return s.store.ListActiveRoutes(ctx)
}

// GetRoute returns one route by id
func (s *Service) GetRoute(ctx context.Context, routeID string) (*Route, error) {
	if !validation.ValidateIdentifier(routeID) {
		return nil, common.NewValidationError("route id is not a valid identifier")
	}
	return s.store.GetRouteByID(ctx, routeID)
}

// FindOptimalRoutes validates the trip and ranks the active routes for it.
func (s *Service) FindOptimalRoutes(ctx context.Context, origin, destination geo.Point) ([]AnnotatedRoute, error) {
	if err := origin.Validate(); err != nil {
		return nil, err
	}
	if err := destination.Validate(); err != nil {
		return nil, err
	}

	routes, err := s.store.ListActiveRoutes(ctx)
	if err != nil {
		return nil, err
	}

	var matched []AnnotatedRoute
	attrs := append(
		tracing.LocationAttributes(origin.Latitude, origin.Longitude),
		tracing.CandidateCountKey.Int(len(routes)),
	)
	err = tracing.TraceBusinessLogic(ctx, tracerName, "routes.match", attrs, func(ctx context.Context) error {
		start := time.Now()
		var err error
		matched, err = s.matcher.FindOptimalRoutes(origin, destination, routes)
		matchDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			return err
		}
		tracing.AddSpanAttributes(ctx,
			tracing.MatchTierKey.String(string(TierOf(matched))),
			tracing.MatchCountKey.Int(len(matched)),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}

	tier := TierOf(matched)
	matchCandidates.Observe(float64(len(routes)))
	matchesTotal.WithLabelValues(string(tier)).Inc()

	logger.DebugContext(ctx, "routes matched",
		zap.Int("candidates", len(routes)),
		zap.Int("matches", len(matched)),
		zap.String("tier", string(tier)),
	)
	return matched, nil
}

// PlanDirections plans a trip on one route. Unknown ids are a NotFound error.
func (s *Service) PlanDirections(ctx context.Context, routeID string, origin, destination geo.Point) (*Itinerary, error) {
	if err := origin.Validate(); err != nil {
		return nil, err
	}
	if err := destination.Validate(); err != nil {
		return nil, err
	}

	route, err := s.GetRoute(ctx, routeID)
	if err != nil {
		return nil, err
	}

	var itinerary *Itinerary
	err = tracing.TraceBusinessLogic(ctx, tracerName, "routes.plan", tracing.RouteAttributes(routeID, ""), func(ctx context.Context) error {
		var err error
		itinerary, err = s.planner.Plan(route, origin, destination)
		return err
	})
	if err != nil {
		return nil, err
	}

	plansTotal.WithLabelValues(string(itinerary.Direction)).Inc()
	return itinerary, nil
}

// TierOf reports the tier of a match result; an empty result has none.
func TierOf(matched []AnnotatedRoute) MatchTier {
	if len(matched) == 0 {
		return TierNone
	}
	return matched[0].MatchTier
}
