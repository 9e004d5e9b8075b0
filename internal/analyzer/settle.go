package analyzer

// settle.go — liquidación de posiciones contra mercados ya cerrados.

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/alejandrodnm/polycopy/internal/domain"
)

// minSettlementYear: Gamma a veces devuelve closedTime con años absurdos
// (2020 o anteriores, antes de que existiera el venue). Por debajo de este
// año la fecha se descarta y se usa el último trade del wallet.
const minSettlementYear = 2021

// settleRemaining resuelve cada posición abierta contra su mercado.
// Cerrado con ganador → evento SETTLEMENT y la posición se vacía.
// Abierto, lookup fallido, o cerrado sin resolver → posición activa
// (nunca se adivina un settlement con datos dudosos).
func (l *Ledger) settleRemaining(
	ctx context.Context,
	positions map[domain.PositionKey]*domain.Position,
) ([]domain.PnLEvent, []domain.ActivePosition, error) {
	var events []domain.PnLEvent
	var actives []domain.ActivePosition

	for _, key := range sortedKeys(positions) {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		pos := positions[key]
		if !pos.Open() {
			continue
		}

		snap, err := l.markets.FetchMarket(ctx, key.ConditionID)
		if err != nil {
			slog.Warn("market lookup failed, keeping position active",
				"condition_id", key.ConditionID, "err", err)
			actives = append(actives, domain.ActivePosition{Position: *pos})
			continue
		}

		if !snap.Closed {
			actives = append(actives, domain.ActivePosition{Position: *pos})
			continue
		}

		winner, ok := snap.Winner()
		if !ok {
			// Cerrado pero sin outcome resuelto por encima del umbral:
			// se omite el settlement y se deja la posición visible.
			slog.Debug("closed market without resolved winner, skipping settlement",
				"condition_id", key.ConditionID)
			actives = append(actives, domain.ActivePosition{Position: *pos})
			continue
		}

		settlementValue := 0.0
		if key.Outcome == winner {
			settlementValue = pos.Shares * 1.0 // el ganador paga $1/share
		}

		events = append(events, domain.PnLEvent{
			Date:        settlementDate(snap, *pos),
			PnL:         settlementValue - pos.CostBasis,
			ConditionID: key.ConditionID,
			Outcome:     key.Outcome,
			Title:       pos.Title,
			Kind:        domain.EventSettlement,
		})

		pos.Shares = 0
		pos.CostBasis = 0
	}

	weighActives(actives)
	return events, actives, nil
}

// settlementDate decide la fecha del evento de settlement. El closedTime de
// la API no es fiable: si precede al último trade del wallet en ese mercado,
// o el año es implausible, se usa el propio último trade. Un settlement nunca
// puede ser anterior a la evidencia que lo causó.
func settlementDate(snap domain.MarketSnapshot, pos domain.Position) time.Time {
	ct := snap.ClosedTime
	if ct.IsZero() || ct.Year() < minSettlementYear || ct.Before(pos.LastTradeAt) {
		return pos.LastTradeAt
	}
	return ct
}

// weighActives calcula el peso de cada posición activa sobre el coste total
// y las ordena por coste descendente.
func weighActives(actives []domain.ActivePosition) {
	var total float64
	for _, a := range actives {
		total += a.CostBasis
	}
	if total > 0 {
		for i := range actives {
			actives[i].Weight = actives[i].CostBasis / total
		}
	}
	sort.SliceStable(actives, func(i, j int) bool {
		return actives[i].CostBasis > actives[j].CostBasis
	})
}
