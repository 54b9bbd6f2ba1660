package main

import (
	"fmt"

	"github.com/alejandrodnm/insiderbot/config"
	"github.com/alejandrodnm/insiderbot/internal/adapters/notify"
	"github.com/alejandrodnm/insiderbot/internal/adapters/storage"
	"github.com/alejandrodnm/insiderbot/internal/ports"
	"github.com/alejandrodnm/insiderbot/internal/scanner"
)

// scoringConfig aplica los knobs del YAML sobre los pesos por defecto.
func scoringConfig(cfg *config.Config) scanner.ScoringConfig {
	sc := scanner.DefaultScoringConfig()
	sc.MinNotional = cfg.Scoring.MinNotionalUSD
	sc.Location = cfg.Location()
	sc.PrefilterExtremeOnly = cfg.Scoring.PrefilterExtremeOnly
	if h := cfg.Scoring.SuspiciousStartHour; h != nil {
		sc.SuspiciousStartHour = *h
	}
	if h := cfg.Scoring.SuspiciousEndHour; h != nil {
		sc.SuspiciousEndHour = *h
	}
	sc.Factors = scanner.Factors{
		Size:          cfg.FactorEnabled("size"),
		Novelty:       cfg.FactorEnabled("novelty"),
		Price:         cfg.FactorEnabled("price"),
		Concentration: cfg.FactorEnabled("concentration"),
		Timing:        cfg.FactorEnabled("timing"),
		Recency:       cfg.FactorEnabled("recency"),
	}
	return sc
}

// buildNotifier arma el canal configurado. El cleanup devuelto cierra la
// sesión de Discord si la hay.
func buildNotifier(cfg *config.Config) (ports.Notifier, func(), error) {
	var (
		notifiers []ports.Notifier
		discord   *notify.Discord
	)
	if cfg.DiscordEnabled() {
		d, err := notify.NewDiscord(cfg.Notify.DiscordToken, cfg.Notify.DiscordChannelID)
		if err != nil {
			return nil, nil, fmt.Errorf("main.buildNotifier: %w", err)
		}
		discord = d
		notifiers = append(notifiers, d)
	}
	if cfg.ConsoleEnabled() {
		notifiers = append(notifiers, notify.NewConsole())
	}

	cleanup := func() {
		if discord != nil {
			discord.Close()
		}
	}
	if len(notifiers) == 1 {
		return notifiers[0], cleanup, nil
	}
	return notify.NewMulti(notifiers...), cleanup, nil
}

// openOutputs abre el notifier y, salvo en dry-run, el histórico SQLite.
// Si algo falla cierra lo que ya se había abierto. El cleanup devuelto
// cierra ambos.
func openOutputs(
	cfg *config.Config,
	dryRun bool,
	newNotifier func(*config.Config) (ports.Notifier, func(), error),
) (ports.Notifier, ports.AlertStore, func(), error) {
	notifier, closeNotifier, err := newNotifier(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	if dryRun {
		return notifier, nil, closeNotifier, nil
	}

	db, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
	if err != nil {
		closeNotifier()
		return nil, nil, nil, fmt.Errorf("main.openOutputs: %w", err)
	}
	return notifier, db, func() {
		db.Close()
		closeNotifier()
	}, nil
}
