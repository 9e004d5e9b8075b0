package ports

import (
	"context"

	"github.com/alejandrodnm/polycopy/internal/domain"
)

// MarketSource obtiene el snapshot actual de un mercado desde Gamma.
type MarketSource interface {
	// FetchMarket devuelve el snapshot del mercado por condition_id.
	FetchMarket(ctx context.Context, conditionID string) (domain.MarketSnapshot, error)
}

// SnapshotCache es un MarketSource con caché e invalidación explícita.
// El analyzer lo usa para acotar llamadas externas en reconciliaciones
// repetidas; el copier lo invalida para forzar checks de settlement frescos.
type SnapshotCache interface {
	MarketSource

	// Invalidate descarta la entrada cacheada de un mercado.
	Invalidate(conditionID string)

	// InvalidateAll descarta toda la caché.
	InvalidateAll()
}
