package scanner

import (
	"context"
	"log/slog"
	"time"

	"github.com/alejandrodnm/insiderbot/internal/domain"
	"github.com/alejandrodnm/insiderbot/internal/ports"
	"github.com/google/uuid"
)

const DefaultAlertThreshold = 70

// Gate decide si un resultado merece alerta.
type Gate struct {
	threshold int
}

// NewGate crea un Gate con el umbral dado (0–100).
func NewGate(threshold int) Gate {
	return Gate{threshold: domain.ClampConfidence(threshold)}
}

// Threshold devuelve el umbral efectivo.
func (g Gate) Threshold() int {
	return g.threshold
}

// ShouldAlert devuelve true si la confianza alcanza el umbral y hay al
// menos una señal que la explique.
func (g Gate) ShouldAlert(r domain.ScoreResult) bool {
	return r.Confidence >= g.threshold && len(r.Signals) > 0
}

// Dispatcher construye la alerta y la entrega al notifier.
// Un fallo de entrega se loguea y se cuenta, nunca se propaga ni se reintenta.
type Dispatcher struct {
	gate     Gate
	notifier ports.Notifier
	store    ports.AlertStore // opcional
	metrics  ports.Metrics
	now      func() time.Time
}

// NewDispatcher crea un Dispatcher. store puede ser nil.
func NewDispatcher(gate Gate, notifier ports.Notifier, store ports.AlertStore, metrics ports.Metrics) *Dispatcher {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return &Dispatcher{
		gate:     gate,
		notifier: notifier,
		store:    store,
		metrics:  metrics,
		now:      time.Now,
	}
}

// MaybeAlert aplica el gate y, si pasa, notifica. Devuelve true si la
// alerta se entregó.
func (d *Dispatcher) MaybeAlert(ctx context.Context, t domain.Trade, p domain.WalletProfile, r domain.ScoreResult) bool {
	if !d.gate.ShouldAlert(r) {
		return false
	}

	alert := domain.Alert{
		ID:        uuid.NewString(),
		Trade:     t,
		Profile:   p,
		Result:    r,
		CreatedAt: d.now().UTC(),
	}

	delivered := true
	if err := d.notifier.Notify(ctx, alert); err != nil {
		delivered = false
		slog.Warn("alert delivery failed",
			"alert_id", alert.ID,
			"wallet", alert.WalletDisplay(),
			"confidence", r.Confidence,
			"err", err,
		)
	}
	d.metrics.AlertDispatched(delivered)

	if delivered {
		slog.Info("insider alert",
			"alert_id", alert.ID,
			"confidence", r.Confidence,
			"wallet", alert.WalletDisplay(),
			"market", t.MarketTitle,
			"notional", t.Notional,
			"price", t.Price,
		)
	}

	if d.store != nil {
		if err := d.store.SaveAlert(ctx, domain.NewAlertRecord(alert, delivered)); err != nil {
			slog.Warn("storage error", "err", err)
		}
	}
	return delivered
}
