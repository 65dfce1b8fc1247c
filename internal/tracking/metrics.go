package tracking

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	locationPushes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transitflow_location_pushes_total",
		Help: "Vehicle location pushes by outcome of the durable write",
	}, []string{"result"})

	broadcastFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "transitflow_location_broadcast_failures_total",
		Help: "Location updates the broadcaster failed to hand off",
	})

	cacheFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transitflow_position_cache_failures_total",
		Help: "Live position cache operations that failed",
	}, []string{"operation"})
)
