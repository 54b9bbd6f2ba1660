package scanner

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alejandrodnm/insiderbot/internal/domain"
	"github.com/alejandrodnm/insiderbot/internal/ports"
)

// ErrCycleInProgress se devuelve cuando se pide un ciclo mientras otro corre.
var ErrCycleInProgress = errors.New("scan cycle already in progress")

// Config contiene la configuración del scanner.
type Config struct {
	ScanInterval time.Duration
	// TradeLimit es el tamaño de página pedido al feed.
	TradeLimit int
	// MaxTradesPerCycle recorta la página (0 = sin recorte).
	MaxTradesPerCycle int
	// TwoStage activa el prefiltro barato antes del lookup del wallet.
	TwoStage bool
	// Workers > 1 evalúa los trades de un ciclo en paralelo.
	Workers int
	// Once ejecuta un solo ciclo y sale.
	Once bool
}

// DefaultConfig devuelve una configuración sensata para producción.
func DefaultConfig() Config {
	return Config{
		ScanInterval: 60 * time.Second,
		TradeLimit:   500,
		TwoStage:     true,
		Workers:      1,
	}
}

// Scanner es el orquestador del pipeline:
// feed → ledger → (prefiltro) → resolver → engine → gate → notifier.
type Scanner struct {
	cfg        Config
	source     ports.TradeSource
	ledger     *Ledger
	resolver   *WalletResolver
	engine     *Engine
	dispatcher *Dispatcher
	storage    ports.AlertStore // opcional
	metrics    ports.Metrics

	running       sync.Mutex
	totalAlerts   atomic.Int64
	skippedCycles atomic.Int64
}

// New crea un Scanner con todas las dependencias inyectadas.
// storage y metrics pueden ser nil.
func New(
	cfg Config,
	source ports.TradeSource,
	ledger *Ledger,
	resolver *WalletResolver,
	engine *Engine,
	dispatcher *Dispatcher,
	storage ports.AlertStore,
	metrics ports.Metrics,
) *Scanner {
	if cfg.ScanInterval <= 0 {
		cfg.ScanInterval = DefaultConfig().ScanInterval
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return &Scanner{
		cfg:        cfg,
		source:     source,
		ledger:     ledger,
		resolver:   resolver,
		engine:     engine,
		dispatcher: dispatcher,
		storage:    storage,
		metrics:    metrics,
	}
}

// Run ejecuta un ciclo inmediato y luego uno por tick hasta que el contexto
// se cancele. Si cfg.Once está activo, solo ejecuta un ciclo.
func (s *Scanner) Run(ctx context.Context) error {
	slog.Info("scanner starting",
		"interval", s.cfg.ScanInterval,
		"two_stage", s.cfg.TwoStage,
		"workers", s.cfg.Workers,
		"once", s.cfg.Once,
	)

	s.runCycle(ctx)
	if s.cfg.Once {
		return nil
	}

	ticker := time.NewTicker(s.cfg.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("scanner stopped", "total_alerts", s.TotalAlerts())
			return nil
		case <-ticker.C:
			start := time.Now()
			s.runCycle(ctx)
			// un ciclo más largo que el intervalo deja un tick pendiente: se salta
			if time.Since(start) >= s.cfg.ScanInterval {
				select {
				case <-ticker.C:
					s.skip()
				default:
				}
			}
		}
	}
}

// RunOnce ejecuta exactamente un ciclo y devuelve sus estadísticas.
// Si ya hay un ciclo en curso devuelve ErrCycleInProgress sin hacer nada.
func (s *Scanner) RunOnce(ctx context.Context) (domain.CycleStats, error) {
	if !s.running.TryLock() {
		s.skip()
		return domain.CycleStats{}, ErrCycleInProgress
	}
	defer s.running.Unlock()
	return s.cycle(ctx), nil
}

// TotalAlerts devuelve las alertas entregadas desde el arranque.
func (s *Scanner) TotalAlerts() int64 {
	return s.totalAlerts.Load()
}

// SkippedCycles devuelve cuántos ciclos se saltaron por solapamiento.
func (s *Scanner) SkippedCycles() int64 {
	return s.skippedCycles.Load()
}

func (s *Scanner) skip() {
	s.skippedCycles.Add(1)
	s.metrics.CycleSkipped()
	slog.Warn("previous cycle still running, skipping tick")
}

// runCycle ejecuta un ciclo y loguea el resultado. Nunca falla.
func (s *Scanner) runCycle(ctx context.Context) {
	stats, err := s.RunOnce(ctx)
	if err != nil {
		return
	}

	slog.Info("scan cycle complete",
		"fetched", stats.Fetched,
		"new", stats.New,
		"duplicates", stats.Duplicates,
		"rejected", stats.Rejected,
		"prefiltered", stats.Prefiltered,
		"scored", stats.Scored,
		"alerts", stats.Alerts,
		"total_alerts", s.TotalAlerts(),
		"ledger_size", s.ledger.Len(),
		"wallet_cache_size", s.resolver.Len(),
		"duration", stats.Duration.Round(time.Millisecond),
	)
}

// evaluation es el resultado de evaluar un trade que pasó el ledger.
type evaluation struct {
	alerted     bool
	walletError bool
	fault       bool
}

// cycle hace fetch → dedup → prefiltro → resolve → score → gate.
// Los errores se recuperan aquí: un feed caído es un ciclo vacío.
func (s *Scanner) cycle(ctx context.Context) domain.CycleStats {
	stats := domain.CycleStats{StartedAt: time.Now().UTC()}
	start := time.Now()

	// Las llamadas de red terminan aunque llegue el shutdown; las acota el
	// timeout HTTP. Lo que se corta es tomar trades nuevos.
	netCtx := context.WithoutCancel(ctx)

	trades, err := s.source.FetchRecentTrades(netCtx, s.cfg.TradeLimit)
	if err != nil {
		stats.FeedError = true
		slog.Warn("trade feed unavailable, treating cycle as empty", "err", err)
		trades = nil
	}
	stats.Fetched = len(trades)
	if s.cfg.MaxTradesPerCycle > 0 && len(trades) > s.cfg.MaxTradesPerCycle {
		trades = trades[:s.cfg.MaxTradesPerCycle]
	}

	// Dedup y prefiltro en orden del feed. El ledger se marca antes del
	// dispatch: un trade nunca se alerta dos veces.
	candidates := make([]domain.Trade, 0, len(trades))
	for _, t := range trades {
		if ctx.Err() != nil {
			stats.Interrupted = true
			break
		}
		if !t.Scoreable() {
			stats.Rejected++
			s.metrics.TradeDropped("unscoreable")
			slog.Debug("rejecting trade without wallet or timestamp", "market", t.MarketID)
			continue
		}
		if !s.ledger.IsNew(t) {
			stats.Duplicates++
			continue
		}
		stats.New++
		if s.cfg.TwoStage && !s.engine.Prefilter(t) {
			stats.Prefiltered++
			continue
		}
		candidates = append(candidates, t)
	}

	var results []evaluation
	if s.cfg.Workers > 1 && len(candidates) > 1 {
		results = s.evaluateConcurrent(ctx, netCtx, candidates, s.cfg.Workers)
	} else {
		results = make([]evaluation, 0, len(candidates))
		for _, t := range candidates {
			if ctx.Err() != nil {
				break
			}
			results = append(results, s.evaluate(netCtx, t))
		}
	}
	if len(results) < len(candidates) {
		stats.Interrupted = true
	}

	for _, r := range results {
		stats.Scored++
		if r.alerted {
			stats.Alerts++
		}
		if r.walletError {
			stats.WalletErrors++
		}
		if r.fault {
			stats.ScoringFaults++
		}
	}
	s.totalAlerts.Add(int64(stats.Alerts))
	stats.Duration = time.Since(start)

	if stats.Interrupted {
		slog.Info("shutdown requested, cycle cut short",
			"evaluated", len(results),
			"pending", len(candidates)-len(results),
		)
	}

	s.metrics.ObserveCycle(stats)
	if s.storage != nil {
		if err := s.storage.SaveCycle(netCtx, stats); err != nil {
			slog.Warn("storage error", "err", err)
		}
	}
	return stats
}

// evaluate resuelve el wallet, puntúa y pasa el resultado por el gate.
func (s *Scanner) evaluate(ctx context.Context, t domain.Trade) evaluation {
	profile := s.resolver.Resolve(ctx, t.Wallet)

	res, ok := s.engine.evaluate(t, profile)
	if s.cfg.TwoStage {
		res.Stage1Passed = true
	}
	s.metrics.ObserveConfidence(res.Confidence)

	slog.Debug("trade scored",
		"wallet", domain.RedactWallet(t.Wallet),
		"market", t.MarketID,
		"notional", t.Notional,
		"price", t.Price,
		"confidence", res.Confidence,
		"signals", len(res.Signals),
		"wallet_fetch_failed", profile.FetchFailed,
	)

	return evaluation{
		alerted:     s.dispatcher.MaybeAlert(ctx, t, profile, res),
		walletError: profile.FetchFailed,
		fault:       !ok,
	}
}
