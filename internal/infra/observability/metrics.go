package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"

	"github.com/trabamex/mir-bff-go/internal/domain"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration     *prometheus.HistogramVec
	externalErrors      *prometheus.CounterVec
	cacheHits           *prometheus.CounterVec
	cacheMisses         *prometheus.CounterVec
	orderTransitions    *prometheus.CounterVec
	rejectedTransitions *prometheus.CounterVec
	overLimit           *prometheus.CounterVec
	eventsPublished     *prometheus.CounterVec
	contactEmails       *prometheus.CounterVec
	realtimeSubscribers prometheus.Gauge
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mir_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mir_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mir_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mir_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		orderTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mir_order_transitions_total",
				Help: "Service-order status changes applied.",
			},
			[]string{"from", "to"},
		),
		rejectedTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mir_rejected_transitions_total",
				Help: "Status changes refused by a lifecycle or a concurrent write.",
			},
			[]string{"entity", "reason"},
		),
		overLimit: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mir_plan_over_limit_total",
				Help: "Plan usage evaluations that found the allowance exceeded.",
			},
			[]string{"billing_cycle"},
		),
		eventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mir_events_published_total",
				Help: "Domain events handed to the broker.",
			},
			[]string{"kind", "result"},
		),
		contactEmails: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mir_contact_emails_total",
				Help: "Contact form emails by result.",
			},
			[]string{"result"},
		),
		realtimeSubscribers: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "mir_realtime_subscribers",
				Help: "Open incident stream subscriptions.",
			},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// CacheObserver adapts the hit/miss counters to the cache callback signature.
func (m *Metrics) CacheObserver() func(cache string, hit bool) {
	return func(cache string, hit bool) {
		if hit {
			m.IncrCacheHit(cache)
			return
		}
		m.IncrCacheMiss(cache)
	}
}

// RecordOrderTransition counts an applied order status change.
func (m *Metrics) RecordOrderTransition(from, to domain.OrderStatus) {
	m.orderTransitions.WithLabelValues(string(from), string(to)).Inc()
}

// RecordRejectedTransition counts a refused status change.
func (m *Metrics) RecordRejectedTransition(entity, reason string) {
	m.rejectedTransitions.WithLabelValues(entity, reason).Inc()
}

// RecordOverLimit counts a usage evaluation above the plan allowance.
func (m *Metrics) RecordOverLimit(cycle domain.BillingCycle) {
	m.overLimit.WithLabelValues(string(cycle)).Inc()
}

// RecordEvent counts a broker publish attempt.
func (m *Metrics) RecordEvent(kind string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.eventsPublished.WithLabelValues(kind, result).Inc()
}

// RecordContactEmail counts a contact email send attempt.
func (m *Metrics) RecordContactEmail(err error) {
	result := "sent"
	if err != nil {
		result = "failed"
	}
	m.contactEmails.WithLabelValues(result).Inc()
}

// SubscriberAdded and SubscriberRemoved track open incident streams.
func (m *Metrics) SubscriberAdded() { m.realtimeSubscribers.Inc() }

func (m *Metrics) SubscriberRemoved() { m.realtimeSubscribers.Dec() }

// Snapshot returns the operational counters shown on the admin panel
// (GET /v1/admin/metrics).
func (m *Metrics) Snapshot() *domain.OpsMetrics {
	hits := sumCounters(m.cacheHits)
	misses := sumCounters(m.cacheMisses)

	hitRate := float64(0)
	if hits+misses > 0 {
		hitRate = hits / (hits + misses)
	}

	return &domain.OpsMetrics{
		OrderTransitions:     sumCounters(m.orderTransitions),
		RejectedTransitions:  sumCounters(m.rejectedTransitions),
		OverLimitEvaluations: sumCounters(m.overLimit),
		ExternalErrors:       sumCounters(m.externalErrors),
		CacheHitRate:         hitRate,
		RealtimeSubscribers:  gaugeValue(m.realtimeSubscribers),
	}
}

// sumCounters adds up every label combination of a CounterVec.
func sumCounters(cv *prometheus.CounterVec) float64 {
	ch := make(chan prometheus.Metric, 64)
	go func() {
		cv.Collect(ch)
		close(ch)
	}()

	total := float64(0)
	for metric := range ch {
		m := &dto.Metric{}
		if err := metric.Write(m); err != nil {
			continue
		}
		if m.Counter != nil && m.Counter.Value != nil {
			total += *m.Counter.Value
		}
	}
	return total
}

func gaugeValue(g prometheus.Gauge) float64 {
	m := &dto.Metric{}
	if err := g.Write(m); err != nil {
		return 0
	}
	if m.Gauge != nil && m.Gauge.Value != nil {
		return *m.Gauge.Value
	}
	return 0
}
