package ports

import "github.com/alejandrodnm/polycopy/internal/domain"

// Journal persiste registros append-only en disco: una línea JSON por
// registro, nunca mutada. Replay-safe.
type Journal interface {
	// RecordOrder anexa el registro de un net trade procesado
	// (orden enviada o rechazo).
	RecordOrder(rec domain.OrderRecord) error

	// RecordTrade anexa un trade crudo capturado durante la sesión.
	RecordTrade(trade domain.Trade) error

	Close() error
}
