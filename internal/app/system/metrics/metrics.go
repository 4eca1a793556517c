// Package metrics owns the Prometheus registry for the service: HTTP request
// counters and latencies, borrow and login outcome counters, and library
// totals read from Mongo at scrape time.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	metricsstore "github.com/dalemusser/libraryhub/internal/app/store/metrics"
	"github.com/dalemusser/libraryhub/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.mongodb.org/mongo-driver/mongo"
)

const namespace = "libraryhub"

// Metrics groups the collectors registered on one registry.
type Metrics struct {
	Registry *prometheus.Registry

	Requests *prometheus.CounterVec   // method, route, status
	Latency  *prometheus.HistogramVec // method, route
	Borrows  *prometheus.CounterVec   // outcome
	Logins   *prometheus.CounterVec   // outcome
}

// New creates a registry with the Go and process collectors plus the
// service's own metrics.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern and status.",
		}, []string{"method", "route", "status"}),
		Latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		Borrows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "borrow_events_total",
			Help:      "Borrow ledger outcomes (borrowed, duplicate, returned).",
		}, []string{"outcome"}),
		Logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "User logins by outcome (registered, returning).",
		}, []string{"outcome"}),
	}
	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Requests, m.Latency, m.Borrows, m.Logins,
	)
	return m
}

// WatchLibrary registers gauges for book, borrow and user totals, read from
// db on every scrape.
func (m *Metrics) WatchLibrary(db *mongo.Database) error {
	return m.Registry.Register(&libraryCollector{db: db})
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// Middleware records a count and latency for every request, labelled by the
// chi route pattern rather than the raw path.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.Requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.Latency.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

var (
	booksDesc   = prometheus.NewDesc(namespace+"_books", "Books in the catalog.", nil, nil)
	borrowsDesc = prometheus.NewDesc(namespace+"_active_borrows", "Books currently borrowed.", nil, nil)
	usersDesc   = prometheus.NewDesc(namespace+"_users", "Registered users.", nil, nil)
)

type libraryCollector struct {
	db *mongo.Database
}

func (c *libraryCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- booksDesc
	ch <- borrowsDesc
	ch <- usersDesc
}

func (c *libraryCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), timeouts.Short())
	defer cancel()

	counts := metricsstore.FetchCounts(ctx, c.db)
	ch <- prometheus.MustNewConstMetric(booksDesc, prometheus.GaugeValue, float64(counts.Books))
	ch <- prometheus.MustNewConstMetric(borrowsDesc, prometheus.GaugeValue, float64(counts.Borrows))
	ch <- prometheus.MustNewConstMetric(usersDesc, prometheus.GaugeValue, float64(counts.Users))
}
