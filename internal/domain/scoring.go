package domain

import "math"

const (
	MinConfidence = 0
	MaxConfidence = 100
)

// ScoreResult es la salida del motor de scoring para un trade.
type ScoreResult struct {
	Confidence int      // 0–100
	Signals    []string // una razón legible por cada factor que sumó puntos, en orden
	// Stage1Passed solo tiene sentido en modo two-stage: el trade pasó el prefiltro.
	Stage1Passed bool
}

// IsZero devuelve true si el resultado no aporta ninguna sospecha.
func (r ScoreResult) IsZero() bool {
	return r.Confidence == 0 && len(r.Signals) == 0
}

// ValueTier asigna Points a valores >= Min. Las tiers van de mayor a menor Min.
type ValueTier struct {
	Min    float64
	Points int
}

// CountTier asigna Points a conteos <= Max. Las tiers van de menor a mayor Max.
type CountTier struct {
	Max    int
	Points int
}

// PriceBand asigna Points a precios fuera de [Low, High].
// Las bandas van de la más extrema a la menos extrema.
type PriceBand struct {
	Low    float64
	High   float64
	Points int
}

// ValueTierPoints devuelve los puntos de la primera tier alcanzada, o 0.
// Es monótona: subir el valor nunca baja los puntos si las tiers están ordenadas.
func ValueTierPoints(value float64, tiers []ValueTier) int {
	if math.IsNaN(value) {
		return 0
	}
	for _, t := range tiers {
		if value >= t.Min {
			return t.Points
		}
	}
	return 0
}

// CountTierPoints devuelve los puntos de la primera tier que contiene count, o 0.
func CountTierPoints(count int, tiers []CountTier) int {
	for _, t := range tiers {
		if count <= t.Max {
			return t.Points
		}
	}
	return 0
}

// PriceBandPoints devuelve los puntos de la banda más extrema que contiene price.
// Un precio dentro de todas las bandas (cerca de 0.5) no suma nada.
func PriceBandPoints(price float64, bands []PriceBand) int {
	if math.IsNaN(price) || price < 0 || price > 1 {
		return 0
	}
	for _, b := range bands {
		if price < b.Low || price > b.High {
			return b.Points
		}
	}
	return 0
}

// InHourWindow devuelve true si hour cae en [start, end). Soporta ventanas
// que cruzan medianoche (start > end, ej. 22 → 6). start == end es ventana vacía.
func InHourWindow(hour, start, end int) bool {
	if start == end {
		return false
	}
	if start < end {
		return hour >= start && hour < end
	}
	return hour >= start || hour < end
}

// ClampConfidence recorta el total de puntos a [0, 100].
func ClampConfidence(points int) int {
	if points < MinConfidence {
		return MinConfidence
	}
	if points > MaxConfidence {
		return MaxConfidence
	}
	return points
}
