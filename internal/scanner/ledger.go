package scanner

import (
	"github.com/alejandrodnm/insiderbot/internal/domain"
	lru "github.com/hashicorp/golang-lru/v2"
)

const DefaultLedgerCapacity = 2000

// Ledger recuerda las TradeKey ya vistas para no evaluar un trade dos veces.
// Acotado: al llenarse expulsa la clave insertada hace más tiempo.
// Una clave expulsada vuelve a ser nueva; esa re-evaluación es aceptada.
type Ledger struct {
	seen *lru.Cache[domain.TradeKey, struct{}]
}

// NewLedger crea un Ledger con la capacidad dada (default si <= 0).
func NewLedger(capacity int) *Ledger {
	if capacity <= 0 {
		capacity = DefaultLedgerCapacity
	}
	// lru.New solo falla con tamaño no positivo.
	seen, _ := lru.New[domain.TradeKey, struct{}](capacity)
	return &Ledger{seen: seen}
}

// IsNew marca el trade como visto y devuelve true si no lo estaba.
// Check-and-insert atómico: dos llamadas concurrentes con la misma clave
// nunca devuelven ambas true. ContainsOrAdd no refresca la recencia, así
// que la expulsión sigue el orden de inserción.
func (l *Ledger) IsNew(t domain.Trade) bool {
	found, _ := l.seen.ContainsOrAdd(t.Key(), struct{}{})
	return !found
}

// Len devuelve cuántas claves hay en memoria.
func (l *Ledger) Len() int {
	return l.seen.Len()
}
