// Package metrics exporta los eventos del pipeline como métricas Prometheus.
package metrics

import (
	"net/http"

	"github.com/alejandrodnm/insiderbot/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultNamespace = "insiderbot"

// Prometheus implementa ports.Metrics sobre un registry propio.
type Prometheus struct {
	registry *prometheus.Registry

	CyclesTotal    *prometheus.CounterVec
	CyclesSkipped  prometheus.Counter
	CycleDuration  prometheus.Histogram
	TradesTotal    *prometheus.CounterVec
	TradesDropped  *prometheus.CounterVec
	WalletLookups  *prometheus.CounterVec
	ScoringFaults  prometheus.Counter
	Confidence     prometheus.Histogram
	AlertsTotal    *prometheus.CounterVec
	LastCycleStart prometheus.Gauge
}

// NewPrometheus crea las métricas registradas en un registry nuevo.
// Usar un registry por instancia permite crear varias en tests.
func NewPrometheus(namespace string) *Prometheus {
	if namespace == "" {
		namespace = defaultNamespace
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Prometheus{
		registry: reg,

		CyclesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "cycles_total",
			Help:      "Total number of scan cycles by outcome",
		}, []string{"outcome"}),
		CyclesSkipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "cycles_skipped_total",
			Help:      "Ticks skipped because the previous cycle was still running",
		}),
		CycleDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "cycle_duration_seconds",
			Help:      "Scan cycle duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}),
		TradesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "trades_total",
			Help:      "Trades seen per pipeline stage",
		}, []string{"stage"}),
		TradesDropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "trades_dropped_total",
			Help:      "Trade records dropped before scoring by reason",
		}, []string{"reason"}),
		WalletLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "wallet",
			Name:      "lookups_total",
			Help:      "Wallet profile lookups by result",
		}, []string{"result"}),
		ScoringFaults: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "faults_total",
			Help:      "Scoring panics recovered",
		}),
		Confidence: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "confidence",
			Help:      "Confidence of fully analyzed trades",
			Buckets:   prometheus.LinearBuckets(10, 10, 10),
		}),
		AlertsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "dispatched_total",
			Help:      "Alerts that passed the gate by delivery status",
		}, []string{"status"}),
		LastCycleStart: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "last_cycle_start_timestamp_seconds",
			Help:      "Unix time of the last completed cycle start",
		}),
	}
}

// Handler devuelve el endpoint HTTP con el formato de exposición de Prometheus.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

// Registry devuelve el registry subyacente.
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

func (p *Prometheus) ObserveCycle(s domain.CycleStats) {
	outcome := "ok"
	switch {
	case s.FeedError:
		outcome = "feed_error"
	case s.Interrupted:
		outcome = "interrupted"
	}
	p.CyclesTotal.WithLabelValues(outcome).Inc()
	p.CycleDuration.Observe(s.Duration.Seconds())
	if !s.StartedAt.IsZero() {
		p.LastCycleStart.Set(float64(s.StartedAt.Unix()))
	}

	p.TradesTotal.WithLabelValues("fetched").Add(float64(s.Fetched))
	p.TradesTotal.WithLabelValues("duplicate").Add(float64(s.Duplicates))
	p.TradesTotal.WithLabelValues("new").Add(float64(s.New))
	p.TradesTotal.WithLabelValues("prefiltered").Add(float64(s.Prefiltered))
	p.TradesTotal.WithLabelValues("scored").Add(float64(s.Scored))
	p.ScoringFaults.Add(float64(s.ScoringFaults))
}

func (p *Prometheus) CycleSkipped() {
	p.CyclesSkipped.Inc()
}

func (p *Prometheus) TradeDropped(reason string) {
	p.TradesDropped.WithLabelValues(reason).Inc()
}

func (p *Prometheus) WalletLookup(result string) {
	p.WalletLookups.WithLabelValues(result).Inc()
}

func (p *Prometheus) ObserveConfidence(confidence int) {
	p.Confidence.Observe(float64(confidence))
}

func (p *Prometheus) AlertDispatched(delivered bool) {
	status := "delivered"
	if !delivered {
		status = "failed"
	}
	p.AlertsTotal.WithLabelValues(status).Inc()
}
