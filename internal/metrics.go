package internal

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// unknownLabel replaces service and method names that did not resolve,
// keeping label cardinality bounded by the registry.
const unknownLabel = "_unknown"

// Metrics holds the gateway's Prometheus collectors.
type Metrics struct {
	gatherer prometheus.Gatherer
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	failures *prometheus.CounterVec
}

// NewMetrics creates and registers the gateway collectors on reg.
// A nil reg uses a fresh private registry.
func NewMetrics(reg *prometheus.Registry) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		gatherer: reg,
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "apigate",
			Name:      "calls_total",
			Help:      "Service method calls by service, method and response status.",
		}, []string{"service", "method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "apigate",
			Name:      "call_duration_seconds",
			Help:      "Service method call latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service", "method"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "apigate",
			Name:      "failures_total",
			Help:      "Rejected or failed calls by error kind.",
		}, []string{"kind"}),
	}

	for _, c := range []prometheus.Collector{m.calls, m.duration, m.failures} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// observe records one dispatched call. A nil Metrics records nothing.
func (m *Metrics) observe(service, method string, status int, elapsed time.Duration, failure *Error) {
	if m == nil {
		return
	}
	if service == "" {
		service = unknownLabel
	}
	if method == "" {
		method = unknownLabel
	}
	m.calls.WithLabelValues(service, method, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(service, method).Observe(elapsed.Seconds())
	if failure != nil {
		m.failures.WithLabelValues(failure.Kind.String()).Inc()
	}
}

// Handler serves the collected metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Calls returns the calls counter.
func (m *Metrics) Calls() *prometheus.CounterVec {
	return m.calls
}

// Failures returns the failures counter.
func (m *Metrics) Failures() *prometheus.CounterVec {
	return m.failures
}
