package scanner

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/alejandrodnm/insiderbot/internal/domain"
	"github.com/dustin/go-humanize"
)

// Factors habilita o deshabilita cada factor del scoring.
// Las penalizaciones van con el factor al que pertenecen.
type Factors struct {
	Size          bool
	Novelty       bool // incluye la penalización por wallet establecido
	Price         bool
	Concentration bool // incluye diversificación y el corte por wallet muy diversificado
	Timing        bool // incluye la penalización por horario laboral
	Recency       bool
}

// AllFactors devuelve todos los factores habilitados.
func AllFactors() Factors {
	return Factors{Size: true, Novelty: true, Price: true, Concentration: true, Timing: true, Recency: true}
}

// ScoringConfig contiene todos los umbrales y pesos del scoring.
// Los pesos son heurísticos, no calibrados.
type ScoringConfig struct {
	// MinNotional es el piso: por debajo el resultado es (0, []) sin evaluar nada más.
	MinNotional float64
	SizeTiers   []domain.ValueTier

	NoveltyTiers         []domain.CountTier
	EstablishedMinTrades int
	EstablishedPenalty   int

	PriceBands []domain.PriceBand

	ConcentrationTiers    []domain.CountTier
	DiversifiedMinMarkets int
	DiversifiedPenalty    int
	// DiversifiedCutoff corta la evaluación: un wallet en tantos mercados no es insider.
	DiversifiedCutoff int

	// Ventanas horarias [start, end) en Location.
	SuspiciousStartHour int
	SuspiciousEndHour   int
	TimingPoints        int
	BusinessStartHour   int
	BusinessEndHour     int
	BusinessPenalty     int
	Location            *time.Location

	RecencyWindow time.Duration
	RecencySkew   time.Duration // tolerancia a timestamps levemente en el futuro
	RecencyPoints int

	// PrefilterExtremeOnly hace que el prefiltro exija además un precio
	// fuera de PrefilterBand. Más barato, pero puede descartar trades que
	// el análisis completo habría puntuado.
	PrefilterExtremeOnly bool
	PrefilterBand        domain.PriceBand

	Factors Factors
}

// DefaultScoringConfig devuelve los pesos por defecto.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		MinNotional: 5_000,
		SizeTiers: []domain.ValueTier{
			{Min: 50_000, Points: 40},
			{Min: 10_000, Points: 25},
			{Min: 5_000, Points: 15},
		},
		NoveltyTiers: []domain.CountTier{
			{Max: 1, Points: 30},
			{Max: 5, Points: 20},
			{Max: 20, Points: 10},
		},
		EstablishedMinTrades: 100,
		EstablishedPenalty:   20,
		PriceBands: []domain.PriceBand{
			{Low: 0.05, High: 0.95, Points: 30},
			{Low: 0.10, High: 0.90, Points: 20},
			{Low: 0.30, High: 0.70, Points: 10},
		},
		ConcentrationTiers: []domain.CountTier{
			{Max: 1, Points: 15},
			{Max: 3, Points: 10},
		},
		DiversifiedMinMarkets: 25,
		DiversifiedPenalty:    15,
		DiversifiedCutoff:     75,
		SuspiciousStartHour:   22,
		SuspiciousEndHour:     6,
		TimingPoints:          10,
		BusinessStartHour:     9,
		BusinessEndHour:       17,
		BusinessPenalty:       5,
		Location:              time.UTC,
		RecencyWindow:         10 * time.Minute,
		RecencySkew:           time.Minute,
		RecencyPoints:         5,
		PrefilterBand:         domain.PriceBand{Low: 0.30, High: 0.70},
		Factors:               AllFactors(),
	}
}

// Engine puntúa trades de 0 a 100 según el perfil del wallet.
// Sin estado mutable: es seguro para uso concurrente.
type Engine struct {
	cfg ScoringConfig
	now func() time.Time
}

// NewEngine crea un Engine. Si now es nil usa time.Now.
func NewEngine(cfg ScoringConfig, now func() time.Time) *Engine {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Engine{cfg: cfg, now: now}
}

// Config devuelve la configuración efectiva.
func (e *Engine) Config() ScoringConfig {
	return e.cfg
}

// Score es el modo single-stage: puntúa el trade con su perfil.
func (e *Engine) Score(t domain.Trade, p domain.WalletProfile) domain.ScoreResult {
	res, _ := e.evaluate(t, p)
	return res
}

// Prefilter decide sin I/O si el trade merece el lookup del wallet.
// Todo trade que lo pasa recibe de DeepAnalyze el mismo resultado que de Score.
func (e *Engine) Prefilter(t domain.Trade) bool {
	if !(t.Notional >= e.cfg.MinNotional) {
		return false
	}
	if math.IsNaN(t.Price) || t.Price < 0 || t.Price > 1 {
		return false
	}
	if e.cfg.PrefilterExtremeOnly {
		b := e.cfg.PrefilterBand
		return t.Price < b.Low || t.Price > b.High
	}
	return true
}

// DeepAnalyze es la segunda etapa del modo two-stage.
func (e *Engine) DeepAnalyze(t domain.Trade, p domain.WalletProfile) domain.ScoreResult {
	res, _ := e.evaluate(t, p)
	res.Stage1Passed = true
	return res
}

// evaluate calcula los factores. Un panic se recupera como (0, []) y ok=false.
func (e *Engine) evaluate(t domain.Trade, p domain.WalletProfile) (res domain.ScoreResult, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("scoring panic recovered",
				"wallet", domain.RedactWallet(t.Wallet),
				"market", t.MarketID,
				"panic", r,
			)
			res, ok = domain.ScoreResult{}, false
		}
	}()
	return e.compute(t, p), true
}

func (e *Engine) compute(t domain.Trade, p domain.WalletProfile) domain.ScoreResult {
	cfg := e.cfg
	f := cfg.Factors

	if !(t.Notional >= cfg.MinNotional) {
		return domain.ScoreResult{}
	}
	if f.Concentration && cfg.DiversifiedCutoff > 0 && p.DistinctMarkets >= cfg.DiversifiedCutoff {
		return domain.ScoreResult{}
	}

	points := 0
	var signals []string
	add := func(pts int, signal string) {
		if pts > 0 {
			points += pts
			signals = append(signals, signal)
		}
	}

	if f.Size {
		add(domain.ValueTierPoints(t.Notional, cfg.SizeTiers), "💰 $"+humanize.Comma(int64(math.Round(t.Notional))))
	}

	if f.Novelty {
		add(domain.CountTierPoints(p.TradeCount, cfg.NoveltyTiers), fmt.Sprintf("🆕 %d prior trades", p.TradeCount))
		if cfg.EstablishedMinTrades > 0 && p.TradeCount >= cfg.EstablishedMinTrades {
			points -= cfg.EstablishedPenalty
		}
	}

	if f.Price {
		pts := domain.PriceBandPoints(t.Price, cfg.PriceBands)
		icon := "⚠️"
		if len(cfg.PriceBands) > 0 && pts == cfg.PriceBands[0].Points {
			icon = "🚨"
		}
		add(pts, fmt.Sprintf("%s %.1f%%", icon, t.Price*100))
	}

	if f.Concentration {
		add(domain.CountTierPoints(p.DistinctMarkets, cfg.ConcentrationTiers), concentrationSignal(p.DistinctMarkets))
		if cfg.DiversifiedMinMarkets > 0 && p.DistinctMarkets >= cfg.DiversifiedMinMarkets {
			points -= cfg.DiversifiedPenalty
		}
	}

	if f.Timing && !t.Timestamp.IsZero() {
		local := t.Timestamp.In(cfg.Location)
		hour := local.Hour()
		if domain.InHourWindow(hour, cfg.SuspiciousStartHour, cfg.SuspiciousEndHour) {
			add(cfg.TimingPoints, "🌙 off-hours "+local.Format("15:04 MST"))
		}
		if domain.InHourWindow(hour, cfg.BusinessStartHour, cfg.BusinessEndHour) {
			points -= cfg.BusinessPenalty
		}
	}

	if f.Recency && !t.Timestamp.IsZero() && cfg.RecencyWindow > 0 {
		age := e.now().Sub(t.Timestamp)
		if age >= -cfg.RecencySkew && age <= cfg.RecencyWindow {
			add(cfg.RecencyPoints, "⏱️ "+humanize.RelTime(t.Timestamp, e.now(), "ago", "from now"))
		}
	}

	confidence := domain.ClampConfidence(points)
	if confidence == 0 {
		return domain.ScoreResult{}
	}
	return domain.ScoreResult{Confidence: confidence, Signals: signals}
}

func concentrationSignal(markets int) string {
	switch markets {
	case 0:
		return "🎯 no market history"
	case 1:
		return "🎯 1 market"
	}
	return fmt.Sprintf("🎯 %d markets", markets)
}
