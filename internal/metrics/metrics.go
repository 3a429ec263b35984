// Package metrics exposes Prometheus collectors for the HTTP layer and the ledger.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Ledger event outcomes.
const (
	ResultOK       = "ok"
	ResultRejected = "rejected"
	ResultError    = "error"
)

var (
	// Registry holds the panel's Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "panel",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "panel",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "panel",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "route"},
	)

	// Signups counts signup attempts by result.
	Signups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "panel",
			Subsystem: "ledger",
			Name:      "signups_total",
			Help:      "Signup attempts by result.",
		},
		[]string{"result"},
	)

	// Logins counts login attempts by result.
	Logins = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "panel",
			Subsystem: "ledger",
			Name:      "logins_total",
			Help:      "Login attempts by result.",
		},
		[]string{"result"},
	)

	// FundingRequests counts submitted funding requests by result.
	FundingRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "panel",
			Subsystem: "ledger",
			Name:      "funding_requests_total",
			Help:      "Funding requests submitted by result.",
		},
		[]string{"result"},
	)

	// Approvals counts funding approvals by result.
	Approvals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "panel",
			Subsystem: "ledger",
			Name:      "approvals_total",
			Help:      "Funding approvals by result.",
		},
		[]string{"result"},
	)

	// Orders counts order placements by result.
	Orders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "panel",
			Subsystem: "ledger",
			Name:      "orders_total",
			Help:      "Order placements by result.",
		},
		[]string{"result"},
	)

	// Credited sums approved funding amounts.
	Credited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "panel",
			Subsystem: "ledger",
			Name:      "credited_amount_total",
			Help:      "Sum of approved funding amounts.",
		},
	)

	// Debited sums order prices.
	Debited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "panel",
			Subsystem: "ledger",
			Name:      "debited_amount_total",
			Help:      "Sum of placed order prices.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		Signups,
		Logins,
		FundingRequests,
		Approvals,
		Orders,
		Credited,
		Debited,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
// Requests are labelled by chi route pattern to keep label cardinality bounded.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		route := routePattern(r)
		method := strings.ToUpper(r.Method)
		httpRequests.WithLabelValues(method, route, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
