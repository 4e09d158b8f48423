// Package metrics exposes Prometheus counters for the API and the booking flow.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the service metrics. It satisfies scheduling.Recorder.
type Collector struct {
	requests      *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	bookings      prometheus.Counter
	slotConflicts prometheus.Counter
}

// NewCollector registers all metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clinic_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "clinic_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		bookings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clinic_appointments_booked_total",
			Help: "Appointments successfully booked.",
		}),
		slotConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clinic_slot_conflicts_total",
			Help: "Create or update attempts rejected because the slot was taken.",
		}),
	}

	reg.MustRegister(c.requests, c.latency, c.bookings, c.slotConflicts)
	return c
}

func (c *Collector) RecordBooking() { c.bookings.Inc() }

func (c *Collector) RecordSlotConflict() { c.slotConflicts.Inc() }

func (c *Collector) RecordRequest(method, route string, status int, d time.Duration) {
	c.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.latency.WithLabelValues(method, route).Observe(d.Seconds())
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Middleware records each request under its chi route pattern, so
// /consultas/1 and /consultas/2 share one series.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		c.RecordRequest(r.Method, route, sw.status, time.Since(start))
	})
}

// Handler serves the registry for Prometheus scraping.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
