package ports

import (
	"context"

	"github.com/alejandrodnm/insiderbot/internal/domain"
)

// Notifier entrega una alerta al canal configurado (Discord, consola...).
type Notifier interface {
	// Notify renderiza y envía la alerta. Un error es de entrega:
	// el dispatcher lo loguea y sigue, nunca se reintenta.
	Notify(ctx context.Context, alert domain.Alert) error
}
