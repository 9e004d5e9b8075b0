package polymarket

import (
	"context"
	"sync"
	"time"

	"github.com/alejandrodnm/polycopy/internal/domain"
	"github.com/alejandrodnm/polycopy/internal/ports"
)

const defaultSnapshotTTL = 5 * time.Minute

type cachedSnapshot struct {
	snap      domain.MarketSnapshot
	fetchedAt time.Time
}

// SnapshotCache envuelve un MarketSource con una caché TTL en memoria.
// Un mercado ya resuelto no cambia, así que la caché evita golpear Gamma
// una vez por posición en cada reconciliación. Implementa
// ports.SnapshotCache.
type SnapshotCache struct {
	source ports.MarketSource
	ttl    time.Duration

	mu      sync.Mutex
	entries map[string]cachedSnapshot
}

// NewSnapshotCache crea la caché sobre el source dado. ttl <= 0 usa el
// valor por defecto.
func NewSnapshotCache(source ports.MarketSource, ttl time.Duration) *SnapshotCache {
	if ttl <= 0 {
		ttl = defaultSnapshotTTL
	}
	return &SnapshotCache{
		source:  source,
		ttl:     ttl,
		entries: make(map[string]cachedSnapshot),
	}
}

// FetchMarket devuelve el snapshot cacheado si sigue fresco; si no, lo
// pide al source. Los errores del source no se cachean.
func (sc *SnapshotCache) FetchMarket(ctx context.Context, conditionID string) (domain.MarketSnapshot, error) {
	sc.mu.Lock()
	entry, ok := sc.entries[conditionID]
	sc.mu.Unlock()

	if ok && time.Since(entry.fetchedAt) < sc.ttl {
		return entry.snap, nil
	}

	snap, err := sc.source.FetchMarket(ctx, conditionID)
	if err != nil {
		return domain.MarketSnapshot{}, err
	}

	sc.mu.Lock()
	sc.entries[conditionID] = cachedSnapshot{snap: snap, fetchedAt: time.Now()}
	sc.mu.Unlock()
	return snap, nil
}

// Invalidate descarta la entrada de un mercado concreto.
func (sc *SnapshotCache) Invalidate(conditionID string) {
	sc.mu.Lock()
	delete(sc.entries, conditionID)
	sc.mu.Unlock()
}

// InvalidateAll vacía la caché entera.
func (sc *SnapshotCache) InvalidateAll() {
	sc.mu.Lock()
	sc.entries = make(map[string]cachedSnapshot)
	sc.mu.Unlock()
}
