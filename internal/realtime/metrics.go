package realtime

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	inboundMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transitflow_ws_inbound_messages_total",
		Help: "Messages received from websocket clients by type and outcome",
	}, []string{"type", "result"})

	relayedEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transitflow_location_relay_events_total",
		Help: "Location events received from the bus by outcome",
	}, []string{"result"})

	busPublishFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "transitflow_location_bus_publish_failures_total",
		Help: "Location events that could not be handed to the bus",
	})
)
