package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the broker.
type Metrics struct {
	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	TokensIssued    prometheus.Counter
	TokenTTLMinutes prometheus.Histogram

	AuditDelivered  *prometheus.CounterVec
	AuditQueueDepth prometheus.Gauge

	VaultLookupDuration prometheus.Histogram
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		Requests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "keyrelay_requests_total",
			Help: "Total credential requests, labeled by protocol and outcome",
		}, []string{"protocol", "outcome"}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "keyrelay_request_duration_seconds",
			Help:    "Latency of credential requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"protocol"}),
		TokensIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "keyrelay_tokens_issued_total",
			Help: "Total number of ephemeral tokens issued",
		}),
		TokenTTLMinutes: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "keyrelay_token_ttl_minutes",
			Help:    "Distribution of issued token TTLs in minutes",
			Buckets: []float64{1, 2, 5, 10, 15},
		}),
		AuditDelivered: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "keyrelay_audit_delivered_total",
			Help: "Audit events delivered, labeled by channel and result",
		}, []string{"channel", "result"}),
		AuditQueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "keyrelay_audit_retry_queue_depth",
			Help: "Number of audit events waiting in the retry queue",
		}),
		VaultLookupDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "keyrelay_vault_lookup_duration_seconds",
			Help:    "Latency of vault lookups in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// IncrementRequests records one credential request for a protocol/outcome pair.
func (m *Metrics) IncrementRequests(protocol, outcome string) {
	m.Requests.WithLabelValues(protocol, outcome).Inc()
}

// ObserveRequestDuration records the latency of one request.
func (m *Metrics) ObserveRequestDuration(protocol string, durationSeconds float64) {
	m.RequestDuration.WithLabelValues(protocol).Observe(durationSeconds)
}

// RecordTokenIssued counts an issued token and its TTL.
func (m *Metrics) RecordTokenIssued(ttlMinutes int) {
	m.TokensIssued.Inc()
	m.TokenTTLMinutes.Observe(float64(ttlMinutes))
}

// RecordAuditDelivery counts an audit delivery attempt per channel.
func (m *Metrics) RecordAuditDelivery(channel string, ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.AuditDelivered.WithLabelValues(channel, result).Inc()
}

// SetAuditQueueDepth updates the retry queue depth gauge.
func (m *Metrics) SetAuditQueueDepth(depth int) {
	m.AuditQueueDepth.Set(float64(depth))
}

// ObserveVaultLookup records the latency of one vault lookup.
func (m *Metrics) ObserveVaultLookup(durationSeconds float64) {
	m.VaultLookupDuration.Observe(durationSeconds)
}
