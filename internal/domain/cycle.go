package domain

import "time"

// CycleStats resume un ciclo del pipeline. Solo observabilidad.
type CycleStats struct {
	StartedAt time.Time
	Duration  time.Duration

	Fetched       int // trades devueltos por el feed (tras descartar malformados)
	Rejected      int // sin wallet o sin timestamp
	Duplicates    int // ya vistos por el ledger
	New           int // pasaron el ledger
	Prefiltered   int // descartados por el prefiltro (two-stage), sin lookup de wallet
	Scored        int // pasaron por el análisis completo
	Alerts        int // alertas entregadas al notifier
	WalletErrors  int // perfiles fail-open
	ScoringFaults int // panics recuperados en el scoring

	FeedError   bool // el fetch de trades falló y el ciclo se trató como vacío
	Interrupted bool // shutdown a mitad de ciclo
}
