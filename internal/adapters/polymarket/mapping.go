package polymarket

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/alejandrodnm/insiderbot/internal/domain"
	"github.com/shopspring/decimal"
)

// splitTradeList reconoce la forma de la respuesta: array plano u objeto
// con el array bajo "data" o "trades". Cualquier otra forma devuelve nil.
func splitTradeList(body json.RawMessage) []json.RawMessage {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil
	}

	switch body[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(body, &items); err != nil {
			return nil
		}
		return items
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(body, &obj); err != nil {
			return nil
		}
		for _, key := range tradeListKeys {
			inner, ok := obj[key]
			if !ok {
				continue
			}
			inner = bytes.TrimSpace(inner)
			if len(inner) == 0 || inner[0] != '[' {
				return nil
			}
			var items []json.RawMessage
			if err := json.Unmarshal(inner, &items); err != nil {
				return nil
			}
			return items
		}
	}
	return nil
}

// mapTrades decodifica cada registro por separado. Los malformados se
// descartan y se cuentan; el resto conserva el orden del feed.
func mapTrades(items []json.RawMessage) ([]domain.Trade, int) {
	trades := make([]domain.Trade, 0, len(items))
	dropped := 0
	for i, item := range items {
		t, err := mapTrade(item)
		if err != nil {
			dropped++
			slog.Debug("dropping malformed trade", "index", i, "err", err)
			continue
		}
		trades = append(trades, t)
	}
	return trades, dropped
}

// mapTrade convierte un registro raw a domain.Trade.
func mapTrade(item json.RawMessage) (domain.Trade, error) {
	var r dataTrade
	if err := json.Unmarshal(item, &r); err != nil {
		return domain.Trade{}, fmt.Errorf("%w: %w", domain.ErrMalformed, err)
	}

	price, ok, err := parseDecimal(r.Price)
	if err != nil {
		return domain.Trade{}, fmt.Errorf("%w: price: %w", domain.ErrMalformed, err)
	}
	if !ok {
		return domain.Trade{}, fmt.Errorf("%w: missing price", domain.ErrMalformed)
	}
	if price.IsNegative() || price.GreaterThan(decimal.NewFromInt(1)) {
		return domain.Trade{}, fmt.Errorf("%w: price %s out of [0,1]", domain.ErrMalformed, price)
	}

	size, _, err := parseDecimal(r.Size)
	if err != nil {
		return domain.Trade{}, fmt.Errorf("%w: size: %w", domain.ErrMalformed, err)
	}
	if size.IsNegative() {
		return domain.Trade{}, fmt.Errorf("%w: negative size %s", domain.ErrMalformed, size)
	}

	usdc, hasUSDC, err := parseDecimal(r.UsdcSize)
	if err != nil {
		return domain.Trade{}, fmt.Errorf("%w: usdcSize: %w", domain.ErrMalformed, err)
	}
	if usdc.IsNegative() {
		return domain.Trade{}, fmt.Errorf("%w: negative usdcSize %s", domain.ErrMalformed, usdc)
	}

	ts, err := parseTimestamp(r.Timestamp)
	if err != nil {
		return domain.Trade{}, fmt.Errorf("%w: timestamp: %w", domain.ErrMalformed, err)
	}

	// usdcSize manda; si no viene (o es 0) se calcula exacto size × price.
	notional := usdc
	if !hasUSDC || usdc.IsZero() {
		notional = size.Mul(price)
	}

	t := domain.Trade{
		Wallet:      strings.TrimSpace(r.ProxyWallet),
		MarketID:    r.ConditionID,
		Timestamp:   ts,
		Side:        domain.ParseSide(r.Side),
		Outcome:     r.Outcome,
		Shares:      size.InexactFloat64(),
		Price:       price.InexactFloat64(),
		Notional:    notional.InexactFloat64(),
		MarketTitle: r.Title,
		MarketSlug:  marketSlug(r),
		TxHash:      r.TransactionHash,
	}
	if t.MarketID == "" {
		t.MarketID = r.Asset
	}

	// P&L es opcional: si no se entiende se ignora, no descarta el trade.
	if pnl, ok, err := parseDecimal(r.RealizedPnl); err == nil && ok {
		t.RealizedPnL = pnl.InexactFloat64()
		t.HasPnL = true
	}
	return t, nil
}

func marketSlug(r dataTrade) string {
	if r.Slug != "" {
		return r.Slug
	}
	return r.EventSlug
}

// parseDecimal acepta un número JSON o un string numérico.
// Ausente, null o "" devuelven ok=false sin error.
func parseDecimal(raw json.RawMessage) (decimal.Decimal, bool, error) {
	s, present, err := rawScalar(raw)
	if err != nil || !present {
		return decimal.Zero, false, err
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false, err
	}
	return d, true, nil
}

// parseTimestamp acepta Unix segundos, Unix milisegundos (enteros o con
// decimales) o ISO-8601. Ausente devuelve time.Time{} sin error.
func parseTimestamp(raw json.RawMessage) (time.Time, error) {
	s, present, err := rawScalar(raw)
	if err != nil || !present {
		return time.Time{}, err
	}

	// Un epoch <= 0 equivale a timestamp ausente.
	if sec, err := strconv.ParseInt(s, 10, 64); err == nil {
		switch {
		case sec <= 0:
			return time.Time{}, nil
		case sec > 1e12:
			return time.UnixMilli(sec).UTC(), nil
		}
		return time.Unix(sec, 0).UTC(), nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		switch {
		case math.IsNaN(f) || math.IsInf(f, 0) || f <= 0:
			return time.Time{}, nil
		case f > 1e12:
			return time.UnixMicro(int64(math.Round(f * 1e3))).UTC(), nil
		}
		sec := int64(f)
		nsec := int64((f - float64(sec)) * 1e9)
		return time.Unix(sec, nsec).UTC(), nil
	}
	for _, layout := range []string{
		time.RFC3339Nano, time.RFC3339,
		"2006-01-02T15:04:05.000Z", "2006-01-02 15:04:05",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// rawScalar extrae el texto de un número o string JSON.
func rawScalar(raw json.RawMessage) (string, bool, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return "", false, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false, err
		}
		s = strings.TrimSpace(s)
		return s, s != "", nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", false, err
	}
	return n.String(), true, nil
}
