package domain

import (
	"strings"
	"time"
)

const (
	polymarketBaseURL = "https://polymarket.com"
	walletDisplayLen  = 10
)

// Alert es lo que el gate entrega al canal de notificación.
// El render al formato de cada plataforma es responsabilidad del notifier.
type Alert struct {
	ID        string
	Trade     Trade
	Profile   WalletProfile
	Result    ScoreResult
	CreatedAt time.Time
}

// MarketURL devuelve el deep link al mercado, o la home si no hay slug.
func (a Alert) MarketURL() string {
	return MarketURL(a.Trade.MarketSlug)
}

// WalletDisplay devuelve el wallet parcialmente ocultado para mostrar.
func (a Alert) WalletDisplay() string {
	return RedactWallet(a.Trade.Wallet)
}

// MarketURL construye el link público de un mercado a partir de su slug.
func MarketURL(slug string) string {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return polymarketBaseURL
	}
	return polymarketBaseURL + "/market/" + slug
}

// RedactWallet deja visibles los primeros 10 caracteres del wallet.
func RedactWallet(wallet string) string {
	if wallet == "" {
		return "unknown"
	}
	if len(wallet) <= walletDisplayLen {
		return wallet
	}
	return wallet[:walletDisplayLen] + "..."
}

// AlertRecord es una alerta ya enviada, tal como se guarda en el histórico.
type AlertRecord struct {
	ID          string
	SentAt      time.Time
	Wallet      string
	MarketID    string
	MarketTitle string
	MarketSlug  string
	Outcome     string
	Side        Side
	Notional    float64
	Price       float64
	Confidence  int
	Signals     []string
	TradeAt     time.Time
	Delivered   bool
}

// NewAlertRecord aplana una alerta para persistirla.
func NewAlertRecord(a Alert, delivered bool) AlertRecord {
	return AlertRecord{
		ID:          a.ID,
		SentAt:      a.CreatedAt,
		Wallet:      a.Trade.Wallet,
		MarketID:    a.Trade.MarketID,
		MarketTitle: a.Trade.MarketTitle,
		MarketSlug:  a.Trade.MarketSlug,
		Outcome:     a.Trade.Outcome,
		Side:        a.Trade.Side,
		Notional:    a.Trade.Notional,
		Price:       a.Trade.Price,
		Confidence:  a.Result.Confidence,
		Signals:     a.Result.Signals,
		TradeAt:     a.Trade.Timestamp,
		Delivered:   delivered,
	}
}
