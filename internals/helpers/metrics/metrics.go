package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	AssignmentTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assignment_transitions_total",
			Help: "Assignment workflow operations by action and outcome.",
		},
		[]string{"action", "outcome"},
	)

	TwoFactorVerifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "two_factor_verifications_total",
			Help: "Second-factor checks by method (totp, backup_code) and outcome.",
		},
		[]string{"method", "outcome"},
	)
)

var registerOnce sync.Once

// Init registers the collectors in the default registry. Safe to call twice.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpInFlight,
			httpRequestsTotal,
			httpRequestDuration,
			AssignmentTransitions,
			TwoFactorVerifications,
		)
	})
}

// Handler exposes /metrics on a fiber router.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}

// Middleware records RPS, latency and in-flight requests per route pattern.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		httpInFlight.Inc()
		defer httpInFlight.Dec()
		start := time.Now()

		err := c.Next()

		route := c.Route().Path
		if route == "" {
			route = "unmatched"
		}
		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			}
		}
		code := strconv.Itoa(status)
		httpRequestDuration.WithLabelValues(c.Method(), route, code).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(c.Method(), route, code).Inc()
		return err
	}
}

// Outcome maps an error to a low-cardinality label.
func Outcome(err error) string {
	if err == nil {
		return "success"
	}
	return "failure"
}
