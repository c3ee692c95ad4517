package observability

import (
	"time"

	"github.com/boddenberg/modcar-console-bfa-go/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the console BFA.
type Metrics struct {
	// Registry owns these metrics and backs the /metrics endpoint.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	externalErrors  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	provisioning    *prometheus.CounterVec
	rollbacks       *prometheus.CounterVec
	decisions       *prometheus.CounterVec
	stockSyncs      *prometheus.CounterVec
	emails          *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. A private registry lets tests build as many
// instances as they need.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "console_operation_duration_seconds",
				Help:    "Duration of service operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "console_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "console_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "console_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		provisioning: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "console_partner_provisioning_total",
				Help: "Partner provisioning outcomes by failing step (\"none\" on success).",
			},
			[]string{"outcome", "step"},
		),
		rollbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "console_provisioning_rollbacks_total",
				Help: "Compensations run after a provisioning failure.",
			},
			[]string{"result"},
		),
		decisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "console_moderation_decisions_total",
				Help: "Approval and rejection decisions by resource.",
			},
			[]string{"resource", "decision"},
		),
		stockSyncs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "console_stock_syncs_total",
				Help: "ERP stock sync requests by outcome.",
			},
			[]string{"outcome"},
		),
		emails: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "console_emails_total",
				Help: "Transactional emails by outcome.",
			},
			[]string{"outcome"},
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

// IncrProvisioned counts a partner provisioned end to end.
func (m *Metrics) IncrProvisioned() {
	m.provisioning.WithLabelValues("success", "none").Inc()
}

// IncrProvisioningFailure counts a provisioning failure at step.
func (m *Metrics) IncrProvisioningFailure(step domain.ProvisioningStep) {
	m.provisioning.WithLabelValues("failure", string(step)).Inc()
}

// IncrRollback counts a compensation run; complete is false when some
// completed step could not be undone.
func (m *Metrics) IncrRollback(complete bool) {
	result := "complete"
	if !complete {
		result = "incomplete"
	}
	m.rollbacks.WithLabelValues(result).Inc()
}

// IncrDecision counts an approve or reject on a product or campaign.
func (m *Metrics) IncrDecision(resource, decision string) {
	m.decisions.WithLabelValues(resource, decision).Inc()
}

// IncrStockSync counts an ERP stock sync by outcome.
func (m *Metrics) IncrStockSync(outcome string) {
	m.stockSyncs.WithLabelValues(outcome).Inc()
}

// IncrEmail counts a welcome email by outcome.
func (m *Metrics) IncrEmail(outcome string) {
	m.emails.WithLabelValues(outcome).Inc()
}

// Snapshot returns the operational counters for GET /v1/admin/metrics.
func (m *Metrics) Snapshot() *domain.OpsMetrics {
	hits := getCounterValue(m.cacheHits, "session")
	misses := getCounterValue(m.cacheMisses, "session")

	hitRate := float64(0)
	if hits+misses > 0 {
		hitRate = hits / (hits + misses)
	}

	failures := float64(0)
	for _, step := range []domain.ProvisioningStep{
		domain.StepCreateIdentity,
		domain.StepUpdateProfile,
		domain.StepGrantRole,
		domain.StepCreateSubscription,
	} {
		failures += getCounterValue(m.provisioning, "failure", string(step))
	}

	return &domain.OpsMetrics{
		PartnersProvisioned:  int64(getCounterValue(m.provisioning, "success", "none")),
		ProvisioningFailures: int64(failures),
		Rollbacks:            int64(getCounterValue(m.rollbacks, "complete") + getCounterValue(m.rollbacks, "incomplete")),
		Approvals:            int64(getCounterValue(m.decisions, "product", "approve") + getCounterValue(m.decisions, "campaign", "approve")),
		Rejections:           int64(getCounterValue(m.decisions, "product", "reject") + getCounterValue(m.decisions, "campaign", "reject")),
		StockSyncs:           int64(getCounterValue(m.stockSyncs, "success")),
		StockSyncFailures:    int64(getCounterValue(m.stockSyncs, "not_found") + getCounterValue(m.stockSyncs, "rejected") + getCounterValue(m.stockSyncs, "error")),
		EmailsSent:           int64(getCounterValue(m.emails, "sent")),
		EmailFailures:        int64(getCounterValue(m.emails, "failed")),
		SessionCacheHitRate:  hitRate,
		Period:               "since_start",
	}
}

// getCounterValue extracts the current value of a CounterVec child.
func getCounterValue(cv *prometheus.CounterVec, labels ...string) float64 {
	counter := cv.WithLabelValues(labels...)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
