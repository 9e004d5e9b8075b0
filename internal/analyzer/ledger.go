package analyzer

// ledger.go — reconciliación del tape de un wallet por cost-basis.
//
// Primera pasada: una iteración del tape en orden temporal actualiza las
// posiciones (mercado, outcome); cada venta realiza PnL sobre
// min(size, shares) y emite un evento TRADE.
// Segunda pasada: las posiciones restantes se liquidan contra mercados ya
// cerrados (eventos SETTLEMENT) o se reportan como activas.

import (
	"context"
	"log/slog"
	"math"
	"sort"

	"github.com/alejandrodnm/polycopy/internal/domain"
	"github.com/alejandrodnm/polycopy/internal/ports"
)

// Ledger reconcilia el historial de trades de un wallet contra el estado
// actual de los mercados. No tiene estado propio: los snapshots se cachean
// en el MarketSource que se le pase.
type Ledger struct {
	markets ports.MarketSource
}

// NewLedger crea un Ledger que resuelve mercados vía el MarketSource dado.
func NewLedger(markets ports.MarketSource) *Ledger {
	return &Ledger{markets: markets}
}

// Reconcile procesa el tape completo y devuelve los eventos de PnL en orden
// cronológico (con acumulado) y las posiciones que siguen abiertas.
// Solo devuelve error si el contexto se cancela: un lookup de mercado
// fallido deja la posición como activa, nunca inventa un settlement.
func (l *Ledger) Reconcile(ctx context.Context, trades []domain.Trade) (domain.LedgerResult, error) {
	sorted := make([]domain.Trade, len(trades))
	copy(sorted, trades)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	positions := make(map[domain.PositionKey]*domain.Position)
	var events []domain.PnLEvent

	for _, t := range sorted {
		if t.Price <= 0 || t.Size <= 0 {
			// Dato corrupto de la API: se ignora el trade, no es fatal.
			slog.Debug("skipping trade with missing price/size",
				"tx", t.TxHash, "price", t.Price, "size", t.Size)
			continue
		}

		key := domain.PositionKey{ConditionID: t.ConditionID, Outcome: t.Outcome}
		pos, ok := positions[key]
		if !ok {
			pos = &domain.Position{Key: key, Title: t.Title}
			positions[key] = pos
		}
		pos.LastTradeAt = t.Timestamp

		switch t.Side {
		case domain.SideBuy:
			pos.Shares += t.Size
			pos.CostBasis += t.USD()

		case domain.SideSell:
			if pos.Shares <= 0 {
				// Venta sin posición abierta: no existen shorts en este
				// tipo de mercado, se ignora.
				continue
			}
			avg := pos.CostBasis / pos.Shares
			sold := math.Min(t.Size, pos.Shares)
			pnl := sold*t.Price - sold*avg

			pos.Shares = math.Max(0, pos.Shares-sold)
			pos.CostBasis = math.Max(0, pos.CostBasis-sold*avg)

			events = append(events, domain.PnLEvent{
				Date:        t.Timestamp,
				PnL:         pnl,
				ConditionID: t.ConditionID,
				Outcome:     t.Outcome,
				Title:       t.Title,
				Kind:        domain.EventTrade,
			})
		}
	}

	settled, active, err := l.settleRemaining(ctx, positions)
	if err != nil {
		return domain.LedgerResult{}, err
	}
	events = append(events, settled...)

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Date.Before(events[j].Date)
	})
	var cum float64
	for i := range events {
		cum += events[i].PnL
		events[i].CumulativePnL = cum
	}

	return domain.LedgerResult{Events: events, Active: active}, nil
}

// sortedKeys devuelve las claves de posición en orden determinista, para que
// reconciliar el mismo tape dos veces produzca resultados idénticos.
func sortedKeys(positions map[domain.PositionKey]*domain.Position) []domain.PositionKey {
	keys := make([]domain.PositionKey, 0, len(positions))
	for k := range positions {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].ConditionID != keys[j].ConditionID {
			return keys[i].ConditionID < keys[j].ConditionID
		}
		return keys[i].Outcome < keys[j].Outcome
	})
	return keys
}
