package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the service's collectors. A dedicated registry per app keeps
// tests that build several apps from colliding on registration.
type Registry struct {
	reg *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	userOperationsTotal *prometheus.CounterVec
}

func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_server_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status_code"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_server_requests_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status_code"},
		),
		userOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "user_operations_total",
				Help: "Total number of user service operations by outcome",
			},
			[]string{"operation", "outcome"},
		),
	}

	r.reg.MustRegister(
		r.httpRequestsTotal,
		r.httpRequestDuration,
		r.userOperationsTotal,
		collectors.NewGoCollector(),
	)
	return r
}

// HTTPMiddleware records request count and latency. It must run inside the
// error handler so the final status code is known.
func (r *Registry) HTTPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()
		if err != nil {
			// Let the app's ErrorHandler write the response now so the
			// recorded status is the one the client sees.
			if hErr := c.App().ErrorHandler(c, err); hErr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		route := c.Route().Path
		if route == "" {
			route = c.Path()
		}
		status := strconv.Itoa(c.Response().StatusCode())

		r.httpRequestsTotal.WithLabelValues(c.Method(), route, status).Inc()
		r.httpRequestDuration.WithLabelValues(c.Method(), route, status).Observe(time.Since(start).Seconds())
		return nil
	}
}

// RecordUserOperation counts one user service call.
func (r *Registry) RecordUserOperation(operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	r.userOperationsTotal.WithLabelValues(operation, outcome).Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (r *Registry) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}))
}
