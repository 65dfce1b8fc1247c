package websocket

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	roomsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "transitflow_ws_rooms",
		Help: "Number of route rooms with at least one subscriber",
	})

	subscribersGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "transitflow_ws_subscribers",
		Help: "Number of connected websocket subscribers",
	})

	messagesDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "transitflow_ws_messages_delivered_total",
		Help: "Messages enqueued for delivery to room members",
	})

	messagesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "transitflow_ws_messages_dropped_total",
		Help: "Messages dropped because a member queue was full or closed",
	})
)
