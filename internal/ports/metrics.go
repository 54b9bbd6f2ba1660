package ports

import "github.com/alejandrodnm/insiderbot/internal/domain"

// Metrics recibe los eventos observables del pipeline.
// NopMetrics es la implementación por defecto cuando no hay exporter.
type Metrics interface {
	ObserveCycle(stats domain.CycleStats)
	CycleSkipped()
	TradeDropped(reason string)
	WalletLookup(result string)
	ObserveConfidence(confidence int)
	AlertDispatched(delivered bool)
}

// NopMetrics descarta todo.
type NopMetrics struct{}

func (NopMetrics) ObserveCycle(domain.CycleStats) {}
func (NopMetrics) CycleSkipped()                  {}
func (NopMetrics) TradeDropped(string)            {}
func (NopMetrics) WalletLookup(string)            {}
func (NopMetrics) ObserveConfidence(int)          {}
func (NopMetrics) AlertDispatched(bool)           {}

// Resultados de WalletLookup.
const (
	LookupHit   = "hit"
	LookupMiss  = "miss"
	LookupError = "error"
)
