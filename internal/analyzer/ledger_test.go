package analyzer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/polycopy/internal/domain"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func mkTrade(side domain.Side, size, price float64, minuteOffset int, cid, outcome string) domain.Trade {
	return domain.Trade{
		Wallet:      "0xabc",
		ConditionID: cid,
		Outcome:     outcome,
		Title:       "Test market",
		Side:        side,
		Size:        size,
		Price:       price,
		Timestamp:   t0.Add(time.Duration(minuteOffset) * time.Minute),
		TxHash:      "0x" + cid + outcome + string(side) + time.Duration(minuteOffset).String(),
	}
}

type fakeMarkets struct {
	snaps map[string]domain.MarketSnapshot
	errs  map[string]error
	calls int
}

func (f *fakeMarkets) FetchMarket(_ context.Context, cid string) (domain.MarketSnapshot, error) {
	f.calls++
	if err, ok := f.errs[cid]; ok {
		return domain.MarketSnapshot{}, err
	}
	snap, ok := f.snaps[cid]
	if !ok {
		return domain.MarketSnapshot{}, errors.New("not found")
	}
	return snap, nil
}

func openMarket(cid string) domain.MarketSnapshot {
	return domain.MarketSnapshot{ConditionID: cid, Closed: false}
}

func resolvedMarket(cid, winner string, closedAt time.Time) domain.MarketSnapshot {
	outcomes := []string{"Yes", "No"}
	prices := []float64{0.0, 0.0}
	for i, o := range outcomes {
		if o == winner {
			prices[i] = 1.0
		}
	}
	return domain.MarketSnapshot{
		ConditionID:   cid,
		Closed:        true,
		Outcomes:      outcomes,
		OutcomePrices: prices,
		ClosedTime:    closedAt,
	}
}

func TestLedger_Reconcile_RealizedOnSell(t *testing.T) {
	markets := &fakeMarkets{snaps: map[string]domain.MarketSnapshot{"m1": openMarket("m1")}}
	l := NewLedger(markets)

	res, err := l.Reconcile(context.Background(), []domain.Trade{
		mkTrade(domain.SideBuy, 100, 0.20, 0, "m1", "Yes"),
		mkTrade(domain.SideSell, 40, 0.25, 10, "m1", "Yes"),
	})
	require.NoError(t, err)

	require.Len(t, res.Events, 1)
	ev := res.Events[0]
	assert.Equal(t, domain.EventTrade, ev.Kind)
	// pnl = 40×0.25 − 40×0.20 = 2.0
	assert.InDelta(t, 2.0, ev.PnL, 1e-9)
	assert.InDelta(t, 2.0, ev.CumulativePnL, 1e-9)

	// quedan 60 shares al mismo precio medio de entrada
	require.Len(t, res.Active, 1)
	assert.InDelta(t, 60, res.Active[0].Shares, 1e-9)
	assert.InDelta(t, 12.0, res.Active[0].CostBasis, 1e-9)
	assert.InDelta(t, 0.20, res.Active[0].AvgPrice(), 1e-9)
	assert.InDelta(t, 1.0, res.Active[0].Weight, 1e-9)
}

func TestLedger_Reconcile_OversellClampedToPosition(t *testing.T) {
	markets := &fakeMarkets{snaps: map[string]domain.MarketSnapshot{"m1": openMarket("m1")}}
	l := NewLedger(markets)

	res, err := l.Reconcile(context.Background(), []domain.Trade{
		mkTrade(domain.SideBuy, 10, 0.50, 0, "m1", "Yes"),
		mkTrade(domain.SideSell, 25, 0.60, 5, "m1", "Yes"),
	})
	require.NoError(t, err)

	// solo se realizan las 10 shares en cartera, el exceso no es un short
	require.Len(t, res.Events, 1)
	assert.InDelta(t, 10*0.60-10*0.50, res.Events[0].PnL, 1e-9)
	assert.Empty(t, res.Active)
}

func TestLedger_Reconcile_SellWithoutPositionIgnored(t *testing.T) {
	markets := &fakeMarkets{snaps: map[string]domain.MarketSnapshot{}}
	l := NewLedger(markets)

	res, err := l.Reconcile(context.Background(), []domain.Trade{
		mkTrade(domain.SideSell, 10, 0.50, 0, "m1", "Yes"),
	})
	require.NoError(t, err)
	assert.Empty(t, res.Events)
	assert.Empty(t, res.Active)
	assert.Zero(t, markets.calls)
}

func TestLedger_Reconcile_SettlementWinnerAndLoser(t *testing.T) {
	closedAt := t0.Add(48 * time.Hour)
	markets := &fakeMarkets{snaps: map[string]domain.MarketSnapshot{
		"win":  resolvedMarket("win", "Yes", closedAt),
		"lose": resolvedMarket("lose", "No", closedAt),
	}}
	l := NewLedger(markets)

	res, err := l.Reconcile(context.Background(), []domain.Trade{
		mkTrade(domain.SideBuy, 50, 0.30, 0, "win", "Yes"),  // cost 15
		mkTrade(domain.SideBuy, 20, 0.40, 1, "lose", "Yes"), // cost 8
	})
	require.NoError(t, err)

	require.Len(t, res.Events, 2)
	byMarket := map[string]domain.PnLEvent{}
	for _, ev := range res.Events {
		assert.Equal(t, domain.EventSettlement, ev.Kind)
		assert.Equal(t, closedAt, ev.Date)
		byMarket[ev.ConditionID] = ev
	}
	// ganador: 50×$1 − 15 = 35; perdedor: 0 − 8 = −8
	assert.InDelta(t, 35.0, byMarket["win"].PnL, 1e-9)
	assert.InDelta(t, -8.0, byMarket["lose"].PnL, 1e-9)
	assert.Empty(t, res.Active)
	assert.InDelta(t, 27.0, res.TotalPnL(), 1e-9)
}

func TestLedger_Reconcile_SettlementDateFallback(t *testing.T) {
	lastTrade := t0.Add(30 * time.Minute)

	cases := []struct {
		name       string
		closedTime time.Time
		want       time.Time
	}{
		{"año implausible", time.Date(2019, 6, 1, 0, 0, 0, 0, time.UTC), lastTrade},
		{"anterior al último trade", t0.Add(-time.Hour), lastTrade},
		{"sin closedTime", time.Time{}, lastTrade},
		{"closedTime válido", t0.Add(72 * time.Hour), t0.Add(72 * time.Hour)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			markets := &fakeMarkets{snaps: map[string]domain.MarketSnapshot{
				"m1": resolvedMarket("m1", "Yes", tc.closedTime),
			}}
			l := NewLedger(markets)

			res, err := l.Reconcile(context.Background(), []domain.Trade{
				mkTrade(domain.SideBuy, 10, 0.50, 0, "m1", "Yes"),
				mkTrade(domain.SideBuy, 5, 0.55, 30, "m1", "Yes"),
			})
			require.NoError(t, err)
			require.Len(t, res.Events, 1)
			assert.Equal(t, tc.want, res.Events[0].Date)
		})
	}
}

func TestLedger_Reconcile_ClosedUnresolvedStaysActive(t *testing.T) {
	markets := &fakeMarkets{snaps: map[string]domain.MarketSnapshot{
		"m1": {
			ConditionID:   "m1",
			Closed:        true,
			Outcomes:      []string{"Yes", "No"},
			OutcomePrices: []float64{0.60, 0.40}, // nadie supera 0.95
		},
	}}
	l := NewLedger(markets)

	res, err := l.Reconcile(context.Background(), []domain.Trade{
		mkTrade(domain.SideBuy, 10, 0.50, 0, "m1", "Yes"),
	})
	require.NoError(t, err)
	assert.Empty(t, res.Events)
	require.Len(t, res.Active, 1)
	assert.InDelta(t, 10, res.Active[0].Shares, 1e-9)
}

func TestLedger_Reconcile_LookupFailureStaysActive(t *testing.T) {
	markets := &fakeMarkets{errs: map[string]error{"m1": errors.New("boom")}}
	l := NewLedger(markets)

	res, err := l.Reconcile(context.Background(), []domain.Trade{
		mkTrade(domain.SideBuy, 10, 0.50, 0, "m1", "Yes"),
	})
	require.NoError(t, err)
	assert.Empty(t, res.Events)
	require.Len(t, res.Active, 1)
}

func TestLedger_Reconcile_SkipsTradesWithoutPrice(t *testing.T) {
	markets := &fakeMarkets{snaps: map[string]domain.MarketSnapshot{}}
	l := NewLedger(markets)

	res, err := l.Reconcile(context.Background(), []domain.Trade{
		mkTrade(domain.SideBuy, 10, 0, 0, "m1", "Yes"),
		mkTrade(domain.SideSell, 10, 0.5, 1, "m1", "Yes"),
	})
	require.NoError(t, err)
	// la compra sin precio no abrió posición, la venta se ignora
	assert.Empty(t, res.Events)
	assert.Empty(t, res.Active)
}

func TestLedger_Reconcile_Idempotent(t *testing.T) {
	closedAt := t0.Add(24 * time.Hour)
	markets := &fakeMarkets{snaps: map[string]domain.MarketSnapshot{
		"m1": resolvedMarket("m1", "Yes", closedAt),
		"m2": openMarket("m2"),
	}}
	l := NewLedger(markets)

	tape := []domain.Trade{
		mkTrade(domain.SideBuy, 100, 0.20, 0, "m1", "Yes"),
		mkTrade(domain.SideSell, 40, 0.25, 10, "m1", "Yes"),
		mkTrade(domain.SideBuy, 30, 0.70, 20, "m2", "No"),
		mkTrade(domain.SideBuy, 10, 0.10, 25, "m2", "Yes"),
	}

	first, err := l.Reconcile(context.Background(), tape)
	require.NoError(t, err)
	second, err := l.Reconcile(context.Background(), tape)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestLedger_Reconcile_ActiveWeightsSumToOne(t *testing.T) {
	markets := &fakeMarkets{snaps: map[string]domain.MarketSnapshot{
		"m1": openMarket("m1"),
		"m2": openMarket("m2"),
	}}
	l := NewLedger(markets)

	res, err := l.Reconcile(context.Background(), []domain.Trade{
		mkTrade(domain.SideBuy, 100, 0.30, 0, "m1", "Yes"),
		mkTrade(domain.SideBuy, 50, 0.20, 1, "m2", "No"),
	})
	require.NoError(t, err)

	require.Len(t, res.Active, 2)
	var sum float64
	for _, a := range res.Active {
		sum += a.Weight
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	// ordenadas por coste descendente
	assert.GreaterOrEqual(t, res.Active[0].CostBasis, res.Active[1].CostBasis)
}
