package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the badge lifecycle.
type Metrics struct {
	BadgesIssued    prometheus.Counter
	BadgesRevoked   prometheus.Counter
	EvidenceAdded   prometheus.Counter
	Verifications   *prometheus.CounterVec
	IssueLatency    prometheus.Histogram
	CacheHits       prometheus.Counter
	CacheMisses     prometheus.Counter
}

// New creates and registers all badge lifecycle metrics.
func New() *Metrics {
	return &Metrics{
		BadgesIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "veirifire_badges_issued_total",
			Help: "Total number of badges issued",
		}),
		BadgesRevoked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "veirifire_badges_revoked_total",
			Help: "Total number of badges revoked",
		}),
		EvidenceAdded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "veirifire_badge_evidence_added_total",
			Help: "Total number of evidence items appended to badges",
		}),
		Verifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veirifire_badge_verifications_total",
			Help: "Total number of badge verifications, labeled by outcome",
		}, []string{"outcome"}),
		IssueLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "veirifire_badge_issue_latency_seconds",
			Help:    "Latency of badge issuance in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "veirifire_badge_cache_hits_total",
			Help: "Number of verification cache hits",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "veirifire_badge_cache_misses_total",
			Help: "Number of verification cache misses",
		}),
	}
}

// Verification outcome labels.
const (
	OutcomeValid    = "valid"
	OutcomeRevoked  = "revoked"
	OutcomeExpired  = "expired"
	OutcomeNotFound = "not_found"
)

func (m *Metrics) IncrementBadgesIssued()  { m.BadgesIssued.Inc() }
func (m *Metrics) IncrementBadgesRevoked() { m.BadgesRevoked.Inc() }
func (m *Metrics) IncrementEvidenceAdded() { m.EvidenceAdded.Inc() }
func (m *Metrics) IncrementCacheHits()     { m.CacheHits.Inc() }
func (m *Metrics) IncrementCacheMisses()   { m.CacheMisses.Inc() }

// IncrementVerifications records one verification with its outcome label.
func (m *Metrics) IncrementVerifications(outcome string) {
	m.Verifications.WithLabelValues(outcome).Inc()
}

// ObserveIssueLatency records issuance duration in seconds.
func (m *Metrics) ObserveIssueLatency(seconds float64) {
	m.IssueLatency.Observe(seconds)
}
