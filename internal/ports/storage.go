package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/insiderbot/internal/domain"
)

// AlertStore guarda el histórico de alertas y ciclos. Es solo auditoría:
// el pipeline nunca lo lee para decidir.
type AlertStore interface {
	// SaveAlert persiste una alerta ya despachada.
	SaveAlert(ctx context.Context, rec domain.AlertRecord) error

	// SaveCycle persiste las estadísticas de un ciclo.
	SaveCycle(ctx context.Context, stats domain.CycleStats) error

	// GetHistory devuelve las alertas enviadas en el rango de tiempo dado.
	GetHistory(ctx context.Context, from, to time.Time) ([]domain.AlertRecord, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
