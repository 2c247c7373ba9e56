// Package metrics exposes Prometheus instrumentation for the banking service.
package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "banka_http_requests_total",
		Help: "Total HTTP requests processed, labeled by status code",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "banka_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"method", "route"})

	operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "banka_operations_total",
		Help: "Banking operations by outcome",
	}, []string{"operation", "outcome"})

	amountTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "banka_amount_total",
		Help: "Absolute money moved by committed operations",
	}, []string{"operation"})
)

// Operation outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeDenied  = "denied"
	OutcomeFailed  = "failed"
)

// ObserveOperation counts one banking operation and, on success, the amount
// it moved.
func ObserveOperation(operation, outcome string, amount decimal.Decimal) {
	operationsTotal.WithLabelValues(operation, outcome).Inc()
	if outcome == OutcomeSuccess && !amount.IsZero() {
		f, _ := amount.Abs().Float64()
		amountTotal.WithLabelValues(operation).Add(f)
	}
}

// Middleware records request counts and latency per matched route.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		} else if err != nil {
			status = fiber.StatusInternalServerError
		}
		route := c.Route().Path
		httpRequestsTotal.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())
		return err
	}
}

// Handler serves the Prometheus exposition format.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
