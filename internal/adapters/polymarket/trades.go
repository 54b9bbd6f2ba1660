package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/alejandrodnm/insiderbot/internal/domain"
)

const (
	DefaultTradeLimit = 500
	MaxTradeLimit     = 1000
)

// FetchRecentTrades obtiene la página más reciente de trades de toda la plataforma.
func (c *Client) FetchRecentTrades(ctx context.Context, limit int) ([]domain.Trade, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(clampLimit(limit)))

	trades, err := c.fetchTrades(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("data-api.FetchRecentTrades: %w", err)
	}
	return trades, nil
}

// FetchWalletTrades obtiene el historial de trades de un wallet.
// Mismo esquema y normalización que FetchRecentTrades.
func (c *Client) FetchWalletTrades(ctx context.Context, wallet string, limit int) ([]domain.Trade, error) {
	q := url.Values{}
	q.Set("user", wallet)
	q.Set("limit", strconv.Itoa(clampLimit(limit)))

	trades, err := c.fetchTrades(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("data-api.FetchWalletTrades: %w", err)
	}
	return trades, nil
}

func (c *Client) fetchTrades(ctx context.Context, q url.Values) ([]domain.Trade, error) {
	endpoint := c.dataBase + "/trades?" + q.Encode()

	var body json.RawMessage
	if err := c.get(ctx, c.dataLimiter, endpoint, &body); err != nil {
		return nil, err
	}

	items := splitTradeList(body)
	if items == nil {
		slog.Debug("unrecognized trades response shape", "bytes", len(body))
		return []domain.Trade{}, nil
	}

	trades, dropped := mapTrades(items)
	for range dropped {
		c.metrics.TradeDropped("malformed")
	}
	if dropped > 0 {
		slog.Debug("dropped malformed trades", "dropped", dropped, "kept", len(trades))
	}
	return trades, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultTradeLimit
	}
	if limit > MaxTradeLimit {
		return MaxTradeLimit
	}
	return limit
}
