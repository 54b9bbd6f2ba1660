package scanner

import (
	"context"
	"log/slog"
	"time"

	"github.com/alejandrodnm/insiderbot/internal/domain"
	"github.com/alejandrodnm/insiderbot/internal/ports"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultWalletCacheSize    = 5000
	DefaultWalletCacheTTL     = 10 * time.Minute
	DefaultWalletHistoryLimit = 500
)

// ResolverConfig parametriza el WalletResolver.
type ResolverConfig struct {
	CacheSize    int
	CacheTTL     time.Duration
	HistoryLimit int
}

// DefaultResolverConfig devuelve la configuración por defecto.
func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		CacheSize:    DefaultWalletCacheSize,
		CacheTTL:     DefaultWalletCacheTTL,
		HistoryLimit: DefaultWalletHistoryLimit,
	}
}

// WalletResolver devuelve el perfil de un wallet, cacheado con LRU + TTL.
// Nunca falla hacia afuera: si el historial no se puede obtener devuelve
// un perfil vacío marcado FetchFailed, que no se cachea.
type WalletResolver struct {
	cfg      ResolverConfig
	provider ports.WalletHistoryProvider
	cache    *expirable.LRU[string, domain.WalletProfile]
	group    singleflight.Group
	metrics  ports.Metrics
	now      func() time.Time
}

// NewWalletResolver crea un resolver sobre el provider dado.
func NewWalletResolver(cfg ResolverConfig, provider ports.WalletHistoryProvider, metrics ports.Metrics) *WalletResolver {
	def := DefaultResolverConfig()
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = def.CacheSize
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = def.CacheTTL
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = def.HistoryLimit
	}
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return &WalletResolver{
		cfg:      cfg,
		provider: provider,
		cache:    expirable.NewLRU[string, domain.WalletProfile](cfg.CacheSize, nil, cfg.CacheTTL),
		metrics:  metrics,
		now:      time.Now,
	}
}

// Resolve devuelve el perfil del wallet. Un hit refresca su recencia en el LRU.
// Lookups concurrentes del mismo wallet comparten un único fetch.
func (r *WalletResolver) Resolve(ctx context.Context, wallet string) domain.WalletProfile {
	if p, ok := r.cache.Get(wallet); ok {
		r.metrics.WalletLookup(ports.LookupHit)
		return p
	}

	v, _, _ := r.group.Do(wallet, func() (any, error) {
		// otro goroutine pudo haberlo cacheado mientras esperábamos
		if p, ok := r.cache.Peek(wallet); ok {
			return p, nil
		}

		history, err := r.provider.FetchWalletTrades(ctx, wallet, r.cfg.HistoryLimit)
		if err != nil {
			slog.Warn("wallet history unavailable, scoring as new wallet",
				"wallet", domain.RedactWallet(wallet),
				"err", err,
			)
			r.metrics.WalletLookup(ports.LookupError)
			return domain.WalletProfile{Wallet: wallet, FetchedAt: r.now(), FetchFailed: true}, nil
		}

		p := domain.BuildProfile(wallet, history, r.now())
		r.cache.Add(wallet, p)
		r.metrics.WalletLookup(ports.LookupMiss)
		return p, nil
	})
	return v.(domain.WalletProfile)
}

// Len devuelve cuántos perfiles hay cacheados.
func (r *WalletResolver) Len() int {
	return r.cache.Len()
}
