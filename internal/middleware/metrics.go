package middleware

import (
	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RedisErrors counts Redis command failures, labeled by command name.
var RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "echofeed_redis_errors_total",
	Help: "Total number of Redis command errors",
}, []string{"command"})

// MediaStoreErrors counts failed media store calls, labeled by operation.
var MediaStoreErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "echofeed_media_store_errors_total",
	Help: "Total number of media store operation errors",
}, []string{"operation"})

// FeedSocketDrops counts feed events dropped on slow or closed connections.
var FeedSocketDrops = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "echofeed_feed_socket_drops_total",
	Help: "Total number of feed events dropped on websocket clients",
}, []string{"reason"})

// ActiveFeedSockets tracks the number of open feed websocket connections.
var ActiveFeedSockets = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "echofeed_feed_sockets_active",
	Help: "Number of currently connected feed websocket clients",
})

// InitMetrics creates the Prometheus middleware for the given service name.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	return fiberprometheus.New(serviceName)
}

// MetricsMiddleware returns the Fiber handler that records request metrics.
func MetricsMiddleware(prom *fiberprometheus.FiberPrometheus) fiber.Handler {
	return prom.Middleware
}
