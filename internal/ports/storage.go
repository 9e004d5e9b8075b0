package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/polycopy/internal/domain"
)

// AuditStore persiste el histórico de órdenes y trades de sesión en SQLite
// para consultas de display y el reporte diario. Las tablas de órdenes y
// trades son insert-only.
type AuditStore interface {
	// SaveOrderRecord inserta el registro de un net trade procesado.
	SaveOrderRecord(ctx context.Context, rec domain.OrderRecord) error

	// SaveSessionTrades inserta los trades crudos capturados en un ciclo.
	SaveSessionTrades(ctx context.Context, wallet string, trades []domain.Trade) error

	// GetOrderHistory devuelve los registros de órdenes en el rango dado,
	// más recientes primero.
	GetOrderHistory(ctx context.Context, from, to time.Time) ([]domain.OrderRecord, error)

	// GetDailySummary agrega las órdenes de un día natural (UTC).
	GetDailySummary(ctx context.Context, day time.Time) (domain.DailySummary, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
