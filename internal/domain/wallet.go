package domain

import "time"

// WalletProfile resume la actividad histórica de un wallet en un momento dado.
// Vive solo en la caché en memoria; se recalcula entero al expirar.
type WalletProfile struct {
	Wallet           string
	TradeCount       int
	DistinctMarkets  int
	FirstTradeAt     time.Time // zero si no hay historial
	CumulativeVolume float64

	// Solo si el feed reporta P&L realizado por trade.
	CumulativePnL float64
	WinRate       float64 // 0.0 – 1.0
	HasPnL        bool

	FetchedAt time.Time
	// FetchFailed marca un perfil fail-open: el historial no se pudo obtener.
	// El scoring lo trata igual que un wallet nuevo.
	FetchFailed bool
}

// IsUnknown devuelve true si el perfil no tiene ningún trade observado.
func (p WalletProfile) IsUnknown() bool {
	return p.TradeCount == 0
}

// Age devuelve la antigüedad del wallet respecto a now, o 0 si no hay historial.
func (p WalletProfile) Age(now time.Time) time.Duration {
	if p.FirstTradeAt.IsZero() || now.Before(p.FirstTradeAt) {
		return 0
	}
	return now.Sub(p.FirstTradeAt)
}

// BuildProfile agrega el historial de trades de un wallet.
// Un historial vacío devuelve el perfil zero (wallet desconocido).
func BuildProfile(wallet string, history []Trade, now time.Time) WalletProfile {
	p := WalletProfile{Wallet: wallet, FetchedAt: now}
	if len(history) == 0 {
		return p
	}

	markets := make(map[string]struct{}, len(history))
	wins, losses := 0, 0

	for _, t := range history {
		p.TradeCount++
		if t.MarketID != "" {
			markets[t.MarketID] = struct{}{}
		}
		if !t.Timestamp.IsZero() && (p.FirstTradeAt.IsZero() || t.Timestamp.Before(p.FirstTradeAt)) {
			p.FirstTradeAt = t.Timestamp
		}
		p.CumulativeVolume += t.Notional

		if !t.HasPnL {
			continue
		}
		p.HasPnL = true
		p.CumulativePnL += t.RealizedPnL
		switch {
		case t.RealizedPnL > 0:
			wins++
		case t.RealizedPnL < 0:
			losses++
		}
	}

	p.DistinctMarkets = len(markets)
	if wins+losses > 0 {
		p.WinRate = float64(wins) / float64(wins+losses)
	}
	return p
}
