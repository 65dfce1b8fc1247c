package routes

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	matchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transitflow_route_matches_total",
		Help: "Route match requests by the tier that produced the result",
	}, []string{"tier"})

	matchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "transitflow_route_match_duration_seconds",
		Help:    "Time spent ranking active routes for one request",
		Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1},
	})

	matchCandidates = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "transitflow_route_match_candidates",
		Help:    "Number of active routes considered per match request",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})

	plansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transitflow_route_plans_total",
		Help: "Directions planned by direction of travel",
	}, []string{"direction"})
)
