package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Total number of orders created",
	})

	OrderStatusTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_status_transitions_total",
		Help: "Total number of order status transitions",
	}, []string{"from", "to"})

	WaiterCallsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "waiter_calls_total",
		Help: "Total number of waiter call requests",
	})

	PushFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "push_failures_total",
		Help: "Total number of failed push notification attempts",
	})

	WSConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ws_connections_active",
		Help: "Number of live WebSocket connections",
	})

	WSBroadcastsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_broadcasts_total",
		Help: "Total number of WebSocket broadcasts",
	}, []string{"target", "type"})

	WSSendFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ws_send_failures_total",
		Help: "Total number of failed WebSocket sends",
	})

	WSHeartbeatEvictionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ws_heartbeat_evictions_total",
		Help: "Total number of connections evicted by the heartbeat",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
