package domain

import (
	"fmt"
	"strings"
	"time"
)

// Side es la dirección de un trade tal como la reporta el feed.
type Side string

const (
	SideBuy     Side = "BUY"
	SideSell    Side = "SELL"
	SideUnknown Side = "UNKNOWN"
)

// ParseSide normaliza el side del feed. Cualquier valor no reconocido es SideUnknown.
func ParseSide(s string) Side {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY":
		return SideBuy
	case "SELL":
		return SideSell
	default:
		return SideUnknown
	}
}

// Trade es un trade observado una vez en el feed. Inmutable una vez construido.
type Trade struct {
	Wallet    string    // proxyWallet del trader
	MarketID  string    // conditionId del mercado
	Timestamp time.Time // momento de ejecución reportado por el feed, no de ingesta
	Side      Side
	Outcome   string
	Shares    float64
	Price     float64 // probabilidad implícita, siempre en [0, 1]
	Notional  float64 // USDC: usdcSize del feed o Shares × Price

	// P&L realizado, solo si el feed lo reporta.
	RealizedPnL float64
	HasPnL      bool

	// Metadata de display, no participa en el scoring.
	MarketTitle string
	MarketSlug  string
	TxHash      string
}

// TradeKey es la identidad derivada usada solo para deduplicar.
// Dos trades simultáneos del mismo wallet en el mismo mercado colisionan.
type TradeKey string

// Key devuelve la identidad (wallet, market, timestamp) del trade.
func (t Trade) Key() TradeKey {
	return TradeKey(fmt.Sprintf("%s|%s|%d", t.Wallet, t.MarketID, t.Timestamp.UnixNano()))
}

// Scoreable devuelve false si falta el wallet o el timestamp.
// Un timestamp en o antes del epoch Unix cuenta como ausente.
// Un trade no scoreable se rechaza antes de entrar al ledger.
func (t Trade) Scoreable() bool {
	return strings.TrimSpace(t.Wallet) != "" && !t.Timestamp.IsZero() && t.Timestamp.Unix() > 0
}
