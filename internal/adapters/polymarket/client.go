package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/alejandrodnm/insiderbot/internal/domain"
	"github.com/alejandrodnm/insiderbot/internal/ports"
	"golang.org/x/time/rate"
)

const (
	defaultDataBase = "https://data-api.polymarket.com"

	// Data API /trades: por debajo del límite público, con margen para
	// los lookups de wallet que comparten el mismo limiter.
	defaultRatePerSec = 12
	defaultBurst      = 5

	defaultTimeout = 15 * time.Second
	baseRetryWait  = 500 * time.Millisecond
)

// ClientConfig parametriza el Client. Los campos a cero toman el default.
type ClientConfig struct {
	DataBase   string
	Timeout    time.Duration
	RatePerSec float64
	Burst      int
	// MaxRetries por request. 0 = un solo intento: el pipeline trata un
	// fallo como ciclo vacío y vuelve a intentarlo en el siguiente tick.
	MaxRetries int
	Metrics    ports.Metrics
}

// Client es el HTTP client de la Data API de Polymarket con rate limiting y retries.
type Client struct {
	http        *http.Client
	dataBase    string
	dataLimiter *rate.Limiter
	maxRetries  int
	metrics     ports.Metrics
}

// NewClient crea un Client. Si cfg.DataBase está vacío usa el URL de producción.
func NewClient(cfg ClientConfig) *Client {
	if cfg.DataBase == "" {
		cfg.DataBase = defaultDataBase
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = defaultRatePerSec
	}
	if cfg.Burst <= 0 {
		cfg.Burst = defaultBurst
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Metrics == nil {
		cfg.Metrics = ports.NopMetrics{}
	}
	return &Client{
		http:        &http.Client{Timeout: cfg.Timeout},
		dataBase:    cfg.DataBase,
		dataLimiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.Burst),
		maxRetries:  cfg.MaxRetries,
		metrics:     cfg.Metrics,
	}
}

// get hace un GET con rate limiting y retries.
func (c *Client) get(ctx context.Context, limiter *rate.Limiter, url string, out any) error {
	return c.doWithRetry(ctx, limiter, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return c.http.Do(req)
	}, out)
}

// doWithRetry ejecuta la función con backoff exponencial.
// Todo error devuelto envuelve domain.ErrFeedUnavailable.
func (c *Client) doWithRetry(ctx context.Context, limiter *rate.Limiter, fn func() (*http.Response, error), out any) error {
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: rate limiter: %w", domain.ErrFeedUnavailable, err)
		}

		resp, err := fn()
		if err != nil {
			if attempt == c.maxRetries {
				return fmt.Errorf("%w: request failed after %d retries: %w", domain.ErrFeedUnavailable, c.maxRetries, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			slog.Warn("rate limited by API", "attempt", attempt+1)
			if attempt < c.maxRetries {
				c.sleep(ctx, attempt)
			}
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == c.maxRetries {
				return fmt.Errorf("%w: server error %d after %d retries", domain.ErrFeedUnavailable, resp.StatusCode, c.maxRetries)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 300 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			resp.Body.Close()
			return fmt.Errorf("%w: client error %d: %s", domain.ErrFeedUnavailable, resp.StatusCode, string(body))
		}

		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decode response: %w", domain.ErrFeedUnavailable, err)
		}
		return nil
	}
	return fmt.Errorf("%w: exhausted %d retries", domain.ErrFeedUnavailable, c.maxRetries)
}

// sleep espera con backoff exponencial, respetando el contexto.
func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * baseRetryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
