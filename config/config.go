package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Modos de scoring.
const (
	ModeTwoStage    = "two_stage"
	ModeSingleStage = "single_stage"
)

// Canales de notificación.
const (
	ChannelDiscord = "discord"
	ChannelConsole = "console"
	ChannelBoth    = "both"
)

// Config es la configuración completa del bot.
type Config struct {
	Scanner ScannerConfig `yaml:"scanner"`
	Wallet  WalletConfig  `yaml:"wallet"`
	Scoring ScoringConfig `yaml:"scoring"`
	API     APIConfig     `yaml:"api"`
	Notify  NotifyConfig  `yaml:"notify"`
	Storage StorageConfig `yaml:"storage"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`
}

// ScannerConfig controla el ciclo de polling.
type ScannerConfig struct {
	IntervalSeconds   int `yaml:"interval_seconds"`
	TradeLimit        int `yaml:"trade_limit"`          // página pedida al feed (máx 1000)
	MaxTradesPerCycle int `yaml:"max_trades_per_cycle"` // 0 = sin recorte
	LedgerCapacity    int `yaml:"ledger_capacity"`
	Workers           int `yaml:"workers"`
}

// WalletConfig controla el resolver de perfiles.
type WalletConfig struct {
	CacheSize       int `yaml:"cache_size"`
	CacheTTLSeconds int `yaml:"cache_ttl_seconds"`
	HistoryLimit    int `yaml:"history_limit"`
}

// ScoringConfig expone los knobs operativos del motor. Los pesos finos
// viven en scanner.DefaultScoringConfig.
type ScoringConfig struct {
	Mode                 string   `yaml:"mode"` // two_stage | single_stage
	AlertThreshold       int      `yaml:"alert_threshold"`
	MinNotionalUSD       float64  `yaml:"min_notional_usd"`
	Timezone             string   `yaml:"timezone"`
	SuspiciousStartHour  *int     `yaml:"suspicious_start_hour"`
	SuspiciousEndHour    *int     `yaml:"suspicious_end_hour"`
	PrefilterExtremeOnly bool     `yaml:"prefilter_extreme_only"`
	DisabledFactors      []string `yaml:"disabled_factors"` // size | novelty | price | concentration | timing | recency
}

// APIConfig contiene el base URL y los límites de la Data API.
type APIConfig struct {
	DataBase       string  `yaml:"data_base"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	RatePerSecond  float64 `yaml:"rate_per_second"`
	Burst          int     `yaml:"burst"`
	MaxRetries     int     `yaml:"max_retries"`
}

// NotifyConfig selecciona el canal de alertas.
type NotifyConfig struct {
	Channel          string `yaml:"channel"` // discord | console | both
	DiscordToken     string `yaml:"-"`       // solo desde el entorno
	DiscordChannelID string `yaml:"discord_channel_id"`
}

// StorageConfig controla dónde se persiste el histórico.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// MetricsConfig controla el endpoint de Prometheus.
type MetricsConfig struct {
	Addr string `yaml:"addr"` // vacío = deshabilitado
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

var knownFactors = map[string]bool{
	"size": true, "novelty": true, "price": true,
	"concentration": true, "timing": true, "recency": true,
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Las variables de entorno sobreescriben los valores del YAML.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}
	return Parse(data)
}

// Parse interpreta un YAML ya leído, aplica entorno y defaults, y valida.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

// ScanInterval devuelve el intervalo de escaneo como time.Duration.
func (c *Config) ScanInterval() time.Duration {
	return time.Duration(c.Scanner.IntervalSeconds) * time.Second
}

// WalletCacheTTL devuelve el TTL de la caché de perfiles.
func (c *Config) WalletCacheTTL() time.Duration {
	return time.Duration(c.Wallet.CacheTTLSeconds) * time.Second
}

// HTTPTimeout devuelve el timeout de cada request a la Data API.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// Location devuelve la zona horaria del factor timing. Validate garantiza
// que carga; ante un error devuelve UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Scoring.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// TwoStage indica si el scoring usa prefiltro.
func (c *Config) TwoStage() bool {
	return c.Scoring.Mode != ModeSingleStage
}

// DiscordEnabled indica si el canal incluye Discord.
func (c *Config) DiscordEnabled() bool {
	return c.Notify.Channel == ChannelDiscord || c.Notify.Channel == ChannelBoth
}

// ConsoleEnabled indica si el canal incluye la consola.
func (c *Config) ConsoleEnabled() bool {
	return c.Notify.Channel == ChannelConsole || c.Notify.Channel == ChannelBoth
}

// FactorEnabled indica si un factor no fue deshabilitado.
func (c *Config) FactorEnabled(name string) bool {
	for _, f := range c.Scoring.DisabledFactors {
		if strings.EqualFold(f, name) {
			return false
		}
	}
	return true
}

// Validate comprueba que la configuración sea utilizable.
func (c *Config) Validate() error {
	var errs []error

	if c.Scoring.AlertThreshold < 0 || c.Scoring.AlertThreshold > 100 {
		errs = append(errs, fmt.Errorf("scoring.alert_threshold must be in [0,100], got %d", c.Scoring.AlertThreshold))
	}
	if c.Scoring.MinNotionalUSD <= 0 {
		errs = append(errs, fmt.Errorf("scoring.min_notional_usd must be positive, got %g", c.Scoring.MinNotionalUSD))
	}
	if c.Scoring.Mode != ModeTwoStage && c.Scoring.Mode != ModeSingleStage {
		errs = append(errs, fmt.Errorf("scoring.mode must be %s or %s, got %q", ModeTwoStage, ModeSingleStage, c.Scoring.Mode))
	}
	if _, err := time.LoadLocation(c.Scoring.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("scoring.timezone %q: %w", c.Scoring.Timezone, err))
	}
	for _, h := range []*int{c.Scoring.SuspiciousStartHour, c.Scoring.SuspiciousEndHour} {
		if h != nil && (*h < 0 || *h > 23) {
			errs = append(errs, fmt.Errorf("scoring suspicious hours must be in [0,23], got %d", *h))
		}
	}
	for _, f := range c.Scoring.DisabledFactors {
		if !knownFactors[strings.ToLower(f)] {
			errs = append(errs, fmt.Errorf("scoring.disabled_factors: unknown factor %q", f))
		}
	}

	switch c.Notify.Channel {
	case ChannelDiscord, ChannelConsole, ChannelBoth:
	default:
		errs = append(errs, fmt.Errorf("notify.channel must be discord, console or both, got %q", c.Notify.Channel))
	}
	if c.DiscordEnabled() {
		if c.Notify.DiscordToken == "" {
			errs = append(errs, errors.New("discord enabled but DISCORD_BOT_TOKEN is not set"))
		}
		if c.Notify.DiscordChannelID == "" {
			errs = append(errs, errors.New("discord enabled but DISCORD_CHANNEL_ID is not set"))
		}
	}

	if c.Scanner.IntervalSeconds < 10 || c.Scanner.IntervalSeconds > 3600 {
		errs = append(errs, fmt.Errorf("scanner.interval_seconds must be in [10,3600], got %d", c.Scanner.IntervalSeconds))
	}
	if c.API.TimeoutSeconds < 1 || c.API.TimeoutSeconds > 60 {
		errs = append(errs, fmt.Errorf("api.timeout_seconds must be in [1,60], got %d", c.API.TimeoutSeconds))
	}
	if c.Scanner.TradeLimit > 1000 {
		errs = append(errs, fmt.Errorf("scanner.trade_limit must be <= 1000, got %d", c.Scanner.TradeLimit))
	}
	if c.Scanner.MaxTradesPerCycle < 0 {
		errs = append(errs, fmt.Errorf("scanner.max_trades_per_cycle must be >= 0, got %d", c.Scanner.MaxTradesPerCycle))
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := firstEnv("DISCORD_BOT_TOKEN", "DISCORD_TOKEN"); v != "" {
		cfg.Notify.DiscordToken = v
	}
	if v := firstEnv("DISCORD_CHANNEL_ID", "CHANNEL_ID"); v != "" {
		cfg.Notify.DiscordChannelID = v
	}
	if v := os.Getenv("NOTIFY_CHANNEL"); v != "" {
		cfg.Notify.Channel = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
	if v := os.Getenv("ALERT_THRESHOLD"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ALERT_THRESHOLD %q: %w", v, err)
		}
		cfg.Scoring.AlertThreshold = n
	}
	if v := os.Getenv("MIN_NOTIONAL_USD"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("MIN_NOTIONAL_USD %q: %w", v, err)
		}
		cfg.Scoring.MinNotionalUSD = f
	}
	return nil
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
// Un threshold de 0 en el YAML se interpreta como "no configurado".
func setDefaults(cfg *Config) {
	if cfg.Scanner.IntervalSeconds <= 0 {
		cfg.Scanner.IntervalSeconds = 60
	}
	if cfg.Scanner.TradeLimit <= 0 {
		cfg.Scanner.TradeLimit = 500
	}
	if cfg.Scanner.LedgerCapacity <= 0 {
		cfg.Scanner.LedgerCapacity = 2000
	}
	if cfg.Scanner.Workers <= 0 {
		cfg.Scanner.Workers = 1
	}
	if cfg.Wallet.CacheSize <= 0 {
		cfg.Wallet.CacheSize = 5000
	}
	if cfg.Wallet.CacheTTLSeconds <= 0 {
		cfg.Wallet.CacheTTLSeconds = 600
	}
	if cfg.Wallet.HistoryLimit <= 0 {
		cfg.Wallet.HistoryLimit = 500
	}
	if cfg.Scoring.Mode == "" {
		cfg.Scoring.Mode = ModeTwoStage
	}
	if cfg.Scoring.AlertThreshold == 0 {
		cfg.Scoring.AlertThreshold = 70
	}
	if cfg.Scoring.MinNotionalUSD == 0 {
		cfg.Scoring.MinNotionalUSD = 5000
	}
	if cfg.Scoring.Timezone == "" {
		cfg.Scoring.Timezone = "UTC"
	}
	if cfg.API.DataBase == "" {
		cfg.API.DataBase = "https://data-api.polymarket.com"
	}
	if cfg.API.TimeoutSeconds <= 0 {
		cfg.API.TimeoutSeconds = 15
	}
	if cfg.API.RatePerSecond <= 0 {
		cfg.API.RatePerSecond = 12
	}
	if cfg.API.Burst <= 0 {
		cfg.API.Burst = 5
	}
	if cfg.Notify.Channel == "" {
		cfg.Notify.Channel = ChannelDiscord
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "insiderbot.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
