package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nhle/bidboard/internal/model"
)

const namespace = "bidboard"

// Refresh outcomes.
const (
	OutcomeOK        = "ok"
	OutcomeAuthError = "auth_error"
	OutcomeError     = "error"
)

// Collector records badge polling activity. A nil *Collector is valid and
// records nothing.
type Collector struct {
	refreshes       *prometheus.CounterVec
	skippedTicks    prometheus.Counter
	adapterFailures *prometheus.CounterVec
	badges          *prometheus.GaugeVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "badge_refreshes_total",
			Help:      "Completed badge refresh cycles by outcome.",
		}, []string{"outcome"}),
		skippedTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "badge_refresh_skipped_total",
			Help:      "Refresh ticks skipped because a refresh was already in flight.",
		}),
		adapterFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "badge_source_failures_total",
			Help:      "Count source failures by badge bucket.",
		}, []string{"bucket"}),
		badges: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "badge_count",
			Help:      "Current badge count by bucket.",
		}, []string{"bucket"}),
	}

	reg.MustRegister(c.refreshes, c.skippedTicks, c.adapterFailures, c.badges)

	return c
}

// ObserveRefresh counts one finished refresh cycle.
func (c *Collector) ObserveRefresh(outcome string) {
	if c == nil {
		return
	}
	c.refreshes.WithLabelValues(outcome).Inc()
}

// ObserveSkip counts a tick dropped by the in-flight guard.
func (c *Collector) ObserveSkip() {
	if c == nil {
		return
	}
	c.skippedTicks.Inc()
}

// ObserveSourceFailure counts a failed count source.
func (c *Collector) ObserveSourceFailure(bucket model.Bucket) {
	if c == nil {
		return
	}
	c.adapterFailures.WithLabelValues(string(bucket)).Inc()
}

// SetBadges publishes the current badge record.
func (c *Collector) SetBadges(counts model.NotificationCounts) {
	if c == nil {
		return
	}
	for _, b := range model.AllBuckets {
		c.badges.WithLabelValues(string(b)).Set(float64(counts.Get(b)))
	}
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
