// Package metrics exposes roster and HTTP metrics in the Prometheus format.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aanand-mishra/student-roster/internal/http/middleware"
	"github.com/aanand-mishra/student-roster/internal/roster"
	"github.com/aanand-mishra/student-roster/internal/types"
)

// Operation results.
const (
	ResultOK       = "ok"
	ResultRejected = "rejected"
	ResultError    = "error"
)

// Metrics owns a private registry so tests can create as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	operations   *prometheus.CounterVec
	students     prometheus.Gauge
	paid         prometheus.Gauge
	runningTotal prometheus.Gauge
	requests     *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roster_operations_total",
			Help: "Roster operations by name and result.",
		}, []string{"op", "result"}),
		students: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "roster_students",
			Help: "Students on the roster.",
		}),
		paid: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "roster_students_paid",
			Help: "Students marked paid.",
		}),
		runningTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "roster_running_total_points",
			Help: "Current value of the resettable running point total.",
		}),
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "roster_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	m.registry.MustRegister(
		m.operations, m.students, m.paid, m.runningTotal, m.requests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves GET /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveOperation counts one roster operation. It matches
// roster.Options.OnOperation.
func (m *Metrics) ObserveOperation(op roster.Op, err error) {
	m.operations.WithLabelValues(string(op), result(err)).Inc()
}

func result(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, roster.ErrEmptyName),
		errors.Is(err, roster.ErrNotFound),
		errors.Is(err, roster.ErrNotPaid):
		return ResultRejected
	default:
		return ResultError
	}
}

// ObserveSummary sets the roster gauges.
func (m *Metrics) ObserveSummary(s types.Summary) {
	m.students.Set(float64(s.Students))
	m.paid.Set(float64(s.Paid))
	m.runningTotal.Set(float64(s.RunningTotal))
}

// Source is the part of the roster Watch reads.
type Source interface {
	Summary() types.Summary
	Subscribe() <-chan roster.Event
	Unsubscribe(ch <-chan roster.Event)
}

// Watch keeps the gauges in step with the roster until ctx is done.
//
// Events only wake it up; the gauges are always read from the roster
// itself, so a dropped or late event cannot leave them stale.
func (m *Metrics) Watch(ctx context.Context, src Source) {
	ch := src.Subscribe()
	defer src.Unsubscribe(ch)

	m.ObserveSummary(src.Summary())

	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
			m.ObserveSummary(src.Summary())
		case <-ctx.Done():
			return
		}
	}
}

// Middleware records the latency of every request, labelled with the
// matched route pattern rather than the raw path so ids do not explode
// the label space.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := middleware.NewStatusRecorder(w)

		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(rec.Status)).
			Observe(time.Since(start).Seconds())
	})
}
