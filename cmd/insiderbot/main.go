package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/alejandrodnm/insiderbot/config"
	"github.com/alejandrodnm/insiderbot/internal/adapters/metrics"
	"github.com/alejandrodnm/insiderbot/internal/adapters/notify"
	"github.com/alejandrodnm/insiderbot/internal/adapters/polymarket"
	"github.com/alejandrodnm/insiderbot/internal/adapters/storage"
	"github.com/alejandrodnm/insiderbot/internal/ports"
	"github.com/alejandrodnm/insiderbot/internal/scanner"
	"golang.org/x/sync/errgroup"
)

const metricsShutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one scan cycle and exit")
	dryRun := flag.Bool("dry-run", false, "print alerts to the console only, without Discord or storage")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	history := flag.Int("history", 0, "print alerts sent in the last N hours and exit")
	flag.Parse()

	// -dry-run fuerza consola antes de validar: no exige credenciales de Discord
	if *dryRun {
		os.Setenv("NOTIFY_CHANNEL", config.ChannelConsole)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	if *history > 0 {
		if err := printHistory(cfg, time.Duration(*history)*time.Hour); err != nil {
			slog.Error("failed to read alert history", "err", err)
			os.Exit(1)
		}
		return
	}

	slog.Info("insiderbot starting",
		"config", *configPath,
		"interval", cfg.ScanInterval(),
		"mode", cfg.Scoring.Mode,
		"threshold", cfg.Scoring.AlertThreshold,
		"min_notional", cfg.Scoring.MinNotionalUSD,
		"channel", cfg.Notify.Channel,
		"dry_run", *dryRun,
		"once", *once,
	)

	var m ports.Metrics = ports.NopMetrics{}
	var prom *metrics.Prometheus
	if cfg.Metrics.Addr != "" {
		prom = metrics.NewPrometheus("")
		m = prom
	}

	client := polymarket.NewClient(polymarket.ClientConfig{
		DataBase:   cfg.API.DataBase,
		Timeout:    cfg.HTTPTimeout(),
		RatePerSec: cfg.API.RatePerSecond,
		Burst:      cfg.API.Burst,
		MaxRetries: cfg.API.MaxRetries,
		Metrics:    m,
	})

	notifier, store, closeAll, err := openOutputs(cfg, *dryRun, buildNotifier)
	if err != nil {
		slog.Error("failed to set up outputs", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer closeAll()

	resolver := scanner.NewWalletResolver(scanner.ResolverConfig{
		CacheSize:    cfg.Wallet.CacheSize,
		CacheTTL:     cfg.WalletCacheTTL(),
		HistoryLimit: cfg.Wallet.HistoryLimit,
	}, client, m)
	engine := scanner.NewEngine(scoringConfig(cfg), nil)
	dispatcher := scanner.NewDispatcher(scanner.NewGate(cfg.Scoring.AlertThreshold), notifier, store, m)

	scanCfg := scanner.DefaultConfig()
	scanCfg.ScanInterval = cfg.ScanInterval()
	scanCfg.TradeLimit = cfg.Scanner.TradeLimit
	scanCfg.MaxTradesPerCycle = cfg.Scanner.MaxTradesPerCycle
	scanCfg.TwoStage = cfg.TwoStage()
	scanCfg.Workers = cfg.Scanner.Workers
	scanCfg.Once = *once

	s := scanner.New(scanCfg, client, scanner.NewLedger(cfg.Scanner.LedgerCapacity),
		resolver, engine, dispatcher, store, m)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	runCtx, stopAll := context.WithCancel(gctx)
	defer stopAll()

	g.Go(func() error {
		// -once termina el scanner; el resto del grupo se cierra con él
		defer stopAll()
		return s.Run(runCtx)
	})
	if prom != nil {
		g.Go(func() error {
			return serveMetrics(runCtx, cfg.Metrics.Addr, prom.Handler())
		})
	}

	if err := g.Wait(); err != nil {
		slog.Error("insiderbot exited with error", "err", err)
		os.Exit(1)
	}

	slog.Info("insiderbot stopped cleanly", "total_alerts", s.TotalAlerts())
}

// serveMetrics sirve /metrics hasta que ctx se cancele.
func serveMetrics(ctx context.Context, addr string, handler http.Handler) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("metrics server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// printHistory imprime las alertas de la última ventana y sale.
func printHistory(cfg *config.Config, window time.Duration) error {
	db, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
	if err != nil {
		return err
	}
	defer db.Close()

	to := time.Now()
	from := to.Add(-window)
	records, err := db.GetHistory(context.Background(), from, to)
	if err != nil {
		return err
	}
	notify.NewConsole().PrintHistory(records, from, to)
	return nil
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
