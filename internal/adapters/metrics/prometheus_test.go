package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alejandrodnm/insiderbot/internal/adapters/metrics"
	"github.com/alejandrodnm/insiderbot/internal/domain"
	"github.com/alejandrodnm/insiderbot/internal/ports"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.Metrics = (*metrics.Prometheus)(nil)

func TestPrometheus_ObserveCycle(t *testing.T) {
	m := metrics.NewPrometheus("")

	m.ObserveCycle(domain.CycleStats{
		StartedAt:     time.Unix(1_700_000_000, 0),
		Duration:      2 * time.Second,
		Fetched:       500,
		Duplicates:    480,
		New:           20,
		Prefiltered:   17,
		Scored:        3,
		ScoringFaults: 1,
	})
	m.ObserveCycle(domain.CycleStats{FeedError: true})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CyclesTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CyclesTotal.WithLabelValues("feed_error")))
	assert.Equal(t, 500.0, testutil.ToFloat64(m.TradesTotal.WithLabelValues("fetched")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.TradesTotal.WithLabelValues("scored")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScoringFaults))
	assert.Equal(t, 1_700_000_000.0, testutil.ToFloat64(m.LastCycleStart))
}

func TestPrometheus_Counters(t *testing.T) {
	m := metrics.NewPrometheus("test")

	m.CycleSkipped()
	m.TradeDropped("malformed")
	m.TradeDropped("malformed")
	m.WalletLookup(ports.LookupHit)
	m.WalletLookup(ports.LookupError)
	m.AlertDispatched(true)
	m.AlertDispatched(false)
	m.ObserveConfidence(85)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CyclesSkipped))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.TradesDropped.WithLabelValues("malformed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WalletLookups.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WalletLookups.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AlertsTotal.WithLabelValues("delivered")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AlertsTotal.WithLabelValues("failed")))
}

func TestPrometheus_Handler(t *testing.T) {
	m := metrics.NewPrometheus("")
	m.AlertDispatched(true)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `insiderbot_alerts_dispatched_total{status="delivered"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestPrometheus_IndependentRegistries(t *testing.T) {
	a := metrics.NewPrometheus("")
	b := metrics.NewPrometheus("")

	a.CycleSkipped()

	assert.Equal(t, 1.0, testutil.ToFloat64(a.CyclesSkipped))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.CyclesSkipped))
}
