package middleware

import (
	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by command name.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "greenloop_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"command"})

	// LedgerOperations counts ledger mutations by reason and outcome.
	LedgerOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "greenloop_ledger_operations_total",
		Help: "Total number of point ledger operations by reason and outcome",
	}, []string{"reason", "outcome"})

	// RedemptionConflicts counts redemptions rejected by balance or stock checks.
	RedemptionConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "greenloop_redemption_conflicts_total",
		Help: "Total number of redemptions rejected by the atomic check",
	}, []string{"cause"})

	// ActiveWebSockets is the gauge of currently connected websocket clients.
	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "greenloop_websocket_connections",
		Help: "Number of active WebSocket connections",
	})

	// WebSocketDrops counts messages dropped because a client's send buffer
	// was full or closed.
	WebSocketDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "greenloop_websocket_dropped_messages_total",
		Help: "Total number of WebSocket messages dropped by backpressure",
	}, []string{"reason"})
)

// InitMetrics creates the fiberprometheus middleware for HTTP metrics.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	return fiberprometheus.New(serviceName)
}

// MetricsMiddleware wraps the fiberprometheus handler as Fiber middleware.
func MetricsMiddleware(prom *fiberprometheus.FiberPrometheus) fiber.Handler {
	return prom.Middleware
}
