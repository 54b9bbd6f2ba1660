package domain

import "errors"

// Tipos de error que cruzan capas. Los adapters envuelven con %w y el
// scanner decide con errors.Is dónde se recuperan.
var (
	// ErrFeedUnavailable: red caída, timeout o status no-2xx. Transitorio.
	ErrFeedUnavailable = errors.New("feed unavailable")
	// ErrMalformed: un registro o factor no se pudo interpretar.
	ErrMalformed = errors.New("malformed data")
)
