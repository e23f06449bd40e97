package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	// Counters
	decisionsTotal     *prometheus.CounterVec
	realtimeDropsTotal *prometheus.CounterVec
	bootstrapRunsTotal *prometheus.CounterVec
	auditEnqueueErrors prometheus.Counter
	statusCacheTotal   *prometheus.CounterVec

	// Histograms
	requestDuration *prometheus.HistogramVec

	// Gauges
	realtimeConnections prometheus.Gauge
}

func New(namespace string) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,

		decisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "isolation_decisions_total",
				Help:      "Tenant isolation decisions by outcome and reason",
			},
			[]string{"outcome", "reason"},
		),

		realtimeDropsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "realtime_events_dropped_total",
				Help:      "Inbound realtime events dropped by reason",
			},
			[]string{"reason"},
		),

		bootstrapRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bootstrap_runs_total",
				Help:      "Bootstrap runs by outcome",
			},
			[]string{"outcome"},
		),

		auditEnqueueErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "audit_enqueue_errors_total",
				Help:      "Audit tasks that could not be enqueued",
			},
		),

		statusCacheTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tenant_status_cache_total",
				Help:      "Tenant status cache lookups by result",
			},
			[]string{"result"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency by route and status",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),

		realtimeConnections: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "realtime_connections",
				Help:      "Currently admitted realtime connections",
			},
		),
	}

	registry.MustRegister(
		m.decisionsTotal,
		m.realtimeDropsTotal,
		m.bootstrapRunsTotal,
		m.auditEnqueueErrors,
		m.statusCacheTotal,
		m.requestDuration,
		m.realtimeConnections,
	)
	return m
}

func (m *Metrics) RecordDecision(outcome, reason string) {
	m.decisionsTotal.WithLabelValues(outcome, reason).Inc()
}

func (m *Metrics) RecordDrop(reason string) {
	m.realtimeDropsTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) ConnectionOpened() { m.realtimeConnections.Inc() }

func (m *Metrics) ConnectionClosed() { m.realtimeConnections.Dec() }

func (m *Metrics) RecordBootstrap(outcome string) {
	m.bootstrapRunsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordAuditEnqueueError() {
	m.auditEnqueueErrors.Inc()
}

// RecordCacheResult counts status cache hits, misses and errors.
func (m *Metrics) RecordCacheResult(result string) {
	m.statusCacheTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	m.requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
