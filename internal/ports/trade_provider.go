package ports

import (
	"context"

	"github.com/alejandrodnm/insiderbot/internal/domain"
)

// TradeSource obtiene la página más reciente de trades del feed público.
type TradeSource interface {
	// FetchRecentTrades devuelve hasta limit trades en el orden del feed
	// (más reciente primero). Los registros malformados ya vienen descartados.
	// Un fallo de red o status no-2xx se envuelve con domain.ErrFeedUnavailable.
	FetchRecentTrades(ctx context.Context, limit int) ([]domain.Trade, error)
}

// WalletHistoryProvider obtiene el historial de trades de un wallet.
type WalletHistoryProvider interface {
	// FetchWalletTrades devuelve hasta limit trades del wallet.
	// Un wallet sin actividad devuelve un slice vacío y nil.
	FetchWalletTrades(ctx context.Context, wallet string, limit int) ([]domain.Trade, error)
}
