package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/nhle/bidboard/internal/metrics"
	"github.com/nhle/bidboard/internal/model"
)

func TestNilCollectorIsNoop(t *testing.T) {
	var c *metrics.Collector
	require.NotPanics(t, func() {
		c.ObserveRefresh(metrics.OutcomeOK)
		c.ObserveSkip()
		c.ObserveSourceFailure(model.BucketDashboard)
		c.SetBadges(model.NotificationCounts{Dashboard: 1})
	})
}

func TestCollectorRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.New(reg)

	c.ObserveRefresh(metrics.OutcomeOK)
	c.ObserveRefresh(metrics.OutcomeOK)
	c.ObserveSkip()
	c.ObserveSourceFailure(model.BucketMessages)
	c.SetBadges(model.NotificationCounts{Reviews: 3})

	expected := `
# HELP bidboard_badge_refreshes_total Completed badge refresh cycles by outcome.
# TYPE bidboard_badge_refreshes_total counter
bidboard_badge_refreshes_total{outcome="ok"} 2
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "bidboard_badge_refreshes_total"))
	require.Equal(t, 1, testutil.CollectAndCount(reg, "bidboard_badge_refresh_skipped_total"))

	rec := httptest.NewRecorder()
	metrics.Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `bidboard_badge_count{bucket="reviews"} 3`)
	require.Contains(t, rec.Body.String(), `bidboard_badge_source_failures_total{bucket="messages"} 1`)
}
