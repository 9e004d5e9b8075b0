package follower

// netting.go — wash-trade netting for one polling batch.
//
// A wallet that buys and fully exits the same (market, outcome) inside a
// single poll window carries no directional signal worth copying. A partial
// exit still carries the residual signal, and only the residual is copied.

import (
	"sort"

	"github.com/alejandrodnm/polycopy/internal/domain"
)

// washEpsilon: net sizes below this are a full in-window wash.
const washEpsilon = 1e-5

type netGroup struct {
	buyVolume  float64
	sellVolume float64
	lastBuy    domain.Trade
	lastSell   domain.Trade
	hasBuy     bool
	hasSell    bool
}

// NetBatch collapses a polling batch into at most one net intent per
// (market, outcome). The synthetic trade is templated on the most recent
// trade of the surviving side, with its size replaced by the residual.
// Results are sorted by template timestamp.
func NetBatch(batch []domain.Trade) []domain.NetTrade {
	groups := make(map[domain.PositionKey]*netGroup)

	for _, t := range batch {
		key := domain.PositionKey{ConditionID: t.ConditionID, Outcome: t.Outcome}
		g, ok := groups[key]
		if !ok {
			g = &netGroup{}
			groups[key] = g
		}
		switch t.Side {
		case domain.SideBuy:
			g.buyVolume += t.Size
			if !g.hasBuy || t.Timestamp.After(g.lastBuy.Timestamp) {
				g.lastBuy = t
				g.hasBuy = true
			}
		case domain.SideSell:
			g.sellVolume += t.Size
			if !g.hasSell || t.Timestamp.After(g.lastSell.Timestamp) {
				g.lastSell = t
				g.hasSell = true
			}
		}
	}

	var nets []domain.NetTrade
	for _, g := range groups {
		net := g.buyVolume - g.sellVolume
		if net > -washEpsilon && net < washEpsilon {
			// Full wash (or dust): informationally void, not copied.
			continue
		}

		nt := domain.NetTrade{
			BuyVolume:  g.buyVolume,
			SellVolume: g.sellVolume,
		}
		if net > 0 {
			nt.Template = g.lastBuy
			nt.Size = net
		} else {
			nt.Template = g.lastSell
			nt.Size = -net
		}
		nets = append(nets, nt)
	}

	sort.SliceStable(nets, func(i, j int) bool {
		ti, tj := nets[i].Template.Timestamp, nets[j].Template.Timestamp
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return nets[i].Template.TxHash < nets[j].Template.TxHash
	})
	return nets
}
