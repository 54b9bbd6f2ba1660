package notify

import (
	"context"
	"errors"

	"github.com/alejandrodnm/insiderbot/internal/domain"
	"github.com/alejandrodnm/insiderbot/internal/ports"
)

// Multi reparte cada alerta a varios notificadores.
type Multi struct {
	notifiers []ports.Notifier
}

// NewMulti crea un Multi ignorando los notificadores nil.
func NewMulti(notifiers ...ports.Notifier) *Multi {
	var active []ports.Notifier
	for _, n := range notifiers {
		if n != nil {
			active = append(active, n)
		}
	}
	return &Multi{notifiers: active}
}

// Notify entrega a todos. Un fallo no impide las demás entregas; los
// errores se devuelven juntos.
func (m *Multi) Notify(ctx context.Context, a domain.Alert) error {
	var errs []error
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, a); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Count devuelve el número de notificadores activos.
func (m *Multi) Count() int {
	return len(m.notifiers)
}
