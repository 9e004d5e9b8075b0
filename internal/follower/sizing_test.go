package follower

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/polycopy/internal/domain"
)

// fakeExecutor stands in for the CLOB gateway during sizing and engine tests.
// PlaceOrder runs on the engine goroutine, so the placed slice is guarded.
type fakeExecutor struct {
	balance    float64
	balanceErr error
	holdings   map[string]float64

	mu        sync.Mutex
	placed    []domain.OrderIntent
	placeRes  domain.OrderResult
	placeErr  error
	cancelled []string
}

func (f *fakeExecutor) PlaceOrder(_ context.Context, intent domain.OrderIntent) (domain.OrderResult, error) {
	f.mu.Lock()
	f.placed = append(f.placed, intent)
	f.mu.Unlock()
	return f.placeRes, f.placeErr
}

func (f *fakeExecutor) placedOrders() []domain.OrderIntent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.OrderIntent(nil), f.placed...)
}

func (f *fakeExecutor) CancelOrder(_ context.Context, clobOrderID string) error {
	f.cancelled = append(f.cancelled, clobOrderID)
	return nil
}

func (f *fakeExecutor) GetBalance(_ context.Context) (float64, error) {
	return f.balance, f.balanceErr
}

func (f *fakeExecutor) TokenBalance(_ context.Context, tokenID string) (float64, error) {
	return f.holdings[tokenID], nil
}

type fakeBalances struct {
	cash map[string]float64
	err  error
}

func (f *fakeBalances) FetchCashBalance(_ context.Context, wallet string) (float64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.cash[wallet], nil
}

type fakeAlerts struct {
	sent []string
}

func (f *fakeAlerts) SendAlert(subject, _ string) bool {
	f.sent = append(f.sent, subject)
	return true
}

func netBuy(size, price float64) domain.NetTrade {
	t := tr(domain.SideBuy, size, price, 0, "m1", "Yes")
	return domain.NetTrade{Template: t, Size: size, BuyVolume: size}
}

func netSell(size, price float64) domain.NetTrade {
	t := tr(domain.SideSell, size, price, 0, "m1", "Yes")
	return domain.NetTrade{Template: t, Size: size, SellVolume: size}
}

func fixed(usd float64) domain.Strategy {
	return domain.Strategy{Mode: domain.StrategyFixed, Param: usd}
}

func rejectionReason(t *testing.T, err error) domain.RejectReason {
	t.Helper()
	var rej *domain.Rejection
	require.ErrorAs(t, err, &rej)
	return rej.Reason
}

func TestSizer_FixedBudgetBuy(t *testing.T) {
	exec := &fakeExecutor{balance: 500}
	s := NewSizer(NewFunds(exec), &fakeBalances{}, nil, SizerConfig{MinBalance: 5})

	// $50 fijos a 0.20: floor(50/0.20) = 250 shares.
	intent, err := s.Size(context.Background(), netBuy(100, 0.20), fixed(50))
	require.NoError(t, err)

	assert.Equal(t, domain.SideBuy, intent.Side)
	assert.InDelta(t, 250.0, intent.Shares, 1e-9)
	assert.InDelta(t, 50.0, intent.TargetUSD, 1e-9)
	assert.InDelta(t, 0.21, intent.Price, 1e-9, "FOK compra con un tick de margen")
	assert.NotEmpty(t, intent.ID)
	assert.Equal(t, domain.OrderFOK, intent.Type)
}

func TestSizer_BuyReservesBudgetUntilReleased(t *testing.T) {
	exec := &fakeExecutor{balance: 100}
	funds := NewFunds(exec)
	s := NewSizer(funds, &fakeBalances{}, nil, SizerConfig{MinBalance: 5})

	intent, err := s.Size(context.Background(), netBuy(100, 0.20), fixed(60))
	require.NoError(t, err)

	// Con $60 reservados, la segunda orden ve solo $40 disponibles.
	_, err = s.Size(context.Background(), netBuy(100, 0.20), fixed(60))
	assert.Equal(t, domain.RejectOverBudget, rejectionReason(t, err))

	funds.Release(intent.TargetUSD)
	_, err = s.Size(context.Background(), netBuy(100, 0.20), fixed(60))
	assert.NoError(t, err)
}

func TestSizer_ProportionalStrategy(t *testing.T) {
	exec := &fakeExecutor{balance: 500}
	s := NewSizer(NewFunds(exec), &fakeBalances{}, nil, SizerConfig{MinBalance: 5})

	// El trade fuente mueve 60 * 0.20 = $12; ratio 2.0 → $24 → 120 shares.
	intent, err := s.Size(context.Background(), netBuy(60, 0.20),
		domain.Strategy{Mode: domain.StrategyProportional, Param: 2.0})
	require.NoError(t, err)

	assert.InDelta(t, 24.0, intent.TargetUSD, 1e-9)
	assert.InDelta(t, 120.0, intent.Shares, 1e-9)
}

func TestSizer_PortfolioShareStrategy(t *testing.T) {
	exec := &fakeExecutor{balance: 500}
	bals := &fakeBalances{cash: map[string]float64{"0xsource": 1000}}
	s := NewSizer(NewFunds(exec), bals, nil, SizerConfig{MinBalance: 5})

	// La fuente gasta $12 de sus $1000 (1.2%); nuestro 1.2% de $500 = $6.
	intent, err := s.Size(context.Background(), netBuy(60, 0.20),
		domain.Strategy{Mode: domain.StrategyPortfolioShare, Param: 1.0})
	require.NoError(t, err)

	assert.InDelta(t, 6.0, intent.TargetUSD, 1e-9)
	assert.InDelta(t, 30.0, intent.Shares, 1e-9)
}

func TestSizer_PortfolioShareSourceCashErrorIsTransient(t *testing.T) {
	exec := &fakeExecutor{balance: 500}
	bals := &fakeBalances{err: errors.New("data api down")}
	s := NewSizer(NewFunds(exec), bals, nil, SizerConfig{MinBalance: 5})

	_, err := s.Size(context.Background(), netBuy(60, 0.20),
		domain.Strategy{Mode: domain.StrategyPortfolioShare, Param: 1.0})
	require.Error(t, err)

	var rej *domain.Rejection
	assert.False(t, errors.As(err, &rej), "un fallo de red no es un rechazo deliberado")
}

func TestSizer_LowBalanceAlertOncePerDay(t *testing.T) {
	exec := &fakeExecutor{balance: 3}
	alerts := &fakeAlerts{}
	s := NewSizer(NewFunds(exec), &fakeBalances{}, alerts, SizerConfig{MinBalance: 5})

	_, err := s.Size(context.Background(), netBuy(100, 0.20), fixed(50))
	assert.Equal(t, domain.RejectLowBalance, rejectionReason(t, err))

	_, err = s.Size(context.Background(), netBuy(100, 0.20), fixed(50))
	assert.Equal(t, domain.RejectLowBalance, rejectionReason(t, err))

	assert.Len(t, alerts.sent, 1, "la alerta se emite como máximo una vez al día")
}

func TestSizer_RejectsDustTarget(t *testing.T) {
	exec := &fakeExecutor{balance: 500}
	s := NewSizer(NewFunds(exec), &fakeBalances{}, nil, SizerConfig{MinBalance: 5})

	_, err := s.Size(context.Background(), netBuy(2, 0.20),
		domain.Strategy{Mode: domain.StrategyProportional, Param: 1.0}) // $0.40
	assert.Equal(t, domain.RejectDustOrder, rejectionReason(t, err))
}

func TestSizer_RejectsBelowMinShares(t *testing.T) {
	exec := &fakeExecutor{balance: 500}
	s := NewSizer(NewFunds(exec), &fakeBalances{}, nil, SizerConfig{MinBalance: 5})

	// $2 a 0.50 → 4 shares, por debajo del mínimo de 5 del venue.
	_, err := s.Size(context.Background(), netBuy(100, 0.50), fixed(2))
	assert.Equal(t, domain.RejectBelowMinShares, rejectionReason(t, err))
}

func TestSizer_SellCappedAtHoldings(t *testing.T) {
	exec := &fakeExecutor{balance: 500}
	nt := netSell(100, 0.50)
	exec.holdings = map[string]float64{nt.Template.TokenID: 40}
	s := NewSizer(NewFunds(exec), &fakeBalances{}, nil, SizerConfig{MinBalance: 5})

	intent, err := s.Size(context.Background(), nt, fixed(100)) // pediría 200 shares
	require.NoError(t, err)

	assert.Equal(t, domain.SideSell, intent.Side)
	assert.InDelta(t, 40.0, intent.Shares, 1e-9)
	assert.InDelta(t, 0.49, intent.Price, 1e-9, "FOK venta con un tick de margen")
}

func TestSizer_SellWithoutHoldingsRejected(t *testing.T) {
	exec := &fakeExecutor{balance: 500}
	s := NewSizer(NewFunds(exec), &fakeBalances{}, nil, SizerConfig{MinBalance: 5})

	_, err := s.Size(context.Background(), netSell(100, 0.50), fixed(50))
	assert.Equal(t, domain.RejectNoHoldings, rejectionReason(t, err))
}

func TestSizer_SellDoesNotReserveFunds(t *testing.T) {
	exec := &fakeExecutor{balance: 500}
	nt := netSell(100, 0.50)
	exec.holdings = map[string]float64{nt.Template.TokenID: 500}
	funds := NewFunds(exec)
	s := NewSizer(funds, &fakeBalances{}, nil, SizerConfig{MinBalance: 5})

	_, err := s.Size(context.Background(), nt, fixed(50))
	require.NoError(t, err)

	avail, err := funds.Balance(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 500.0, avail, 1e-9)
}

func TestSizer_GTCKeepsTemplatePrice(t *testing.T) {
	exec := &fakeExecutor{balance: 500}
	s := NewSizer(NewFunds(exec), &fakeBalances{}, nil,
		SizerConfig{MinBalance: 5, OrderType: domain.OrderGTC})

	intent, err := s.Size(context.Background(), netBuy(100, 0.20), fixed(50))
	require.NoError(t, err)
	assert.InDelta(t, 0.20, intent.Price, 1e-9)
	assert.True(t, intent.Expiration.IsZero())
}

func TestSizer_GTDSetsExpiration(t *testing.T) {
	exec := &fakeExecutor{balance: 500}
	s := NewSizer(NewFunds(exec), &fakeBalances{}, nil,
		SizerConfig{MinBalance: 5, OrderType: domain.OrderGTD})

	intent, err := s.Size(context.Background(), netBuy(100, 0.20), fixed(50))
	require.NoError(t, err)
	assert.False(t, intent.Expiration.IsZero())
}

func TestSizer_ExecPriceFloor(t *testing.T) {
	// Una venta FOK a 0.01 no puede bajar del tick mínimo.
	assert.InDelta(t, 0.01, execPrice(0.01, domain.SideSell, domain.OrderFOK), 1e-9)
	// El padding mantiene la rejilla de dos decimales.
	assert.InDelta(t, 0.35, execPrice(0.34, domain.SideBuy, domain.OrderFOK), 1e-9)
	assert.InDelta(t, 0.33, execPrice(0.34, domain.SideSell, domain.OrderFOK), 1e-9)
}

func TestSizer_BadTemplatePrice(t *testing.T) {
	exec := &fakeExecutor{balance: 500}
	s := NewSizer(NewFunds(exec), &fakeBalances{}, nil, SizerConfig{MinBalance: 5})

	nt := netBuy(100, 0.20)
	nt.Template.Price = 0
	_, err := s.Size(context.Background(), nt, fixed(50))
	assert.Equal(t, domain.RejectBadPrice, rejectionReason(t, err))
}
