package follower

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/polycopy/internal/domain"
)

// fakeSource serves canned tapes; latest drives seeding.
type fakeSource struct {
	latest    domain.Trade
	hasLatest bool
	latestErr error

	trades   []domain.Trade
	fetchErr error
}

func (f *fakeSource) FetchWalletTrades(_ context.Context, _ string, _ int) ([]domain.Trade, error) {
	return f.trades, f.fetchErr
}

func (f *fakeSource) FetchLatestTrade(_ context.Context, _ string) (domain.Trade, bool, error) {
	return f.latest, f.hasLatest, f.latestErr
}

type fakeNotifier struct {
	raw    [][]domain.Trade
	netted []domain.NetTrade
	orders []domain.OrderRecord
}

func (f *fakeNotifier) NotifyTrades(_ context.Context, _ string, trades []domain.Trade) error {
	f.raw = append(f.raw, trades)
	return nil
}

func (f *fakeNotifier) NotifyNetTrade(_ context.Context, _ string, nt domain.NetTrade) error {
	f.netted = append(f.netted, nt)
	return nil
}

func (f *fakeNotifier) NotifyOrder(_ context.Context, rec domain.OrderRecord) error {
	f.orders = append(f.orders, rec)
	return nil
}

func newTestMonitor(src *fakeSource, out chan domain.TradeBatch) (*Monitor, *fakeNotifier) {
	n := &fakeNotifier{}
	return NewMonitor("0xsource", src, n, out, MonitorConfig{}), n
}

func drainBatch(t *testing.T, out chan domain.TradeBatch) (domain.TradeBatch, bool) {
	t.Helper()
	select {
	case b := <-out:
		return b, true
	default:
		return domain.TradeBatch{}, false
	}
}

func TestMonitor_SeedDoesNotReplayHistory(t *testing.T) {
	last := tr(domain.SideBuy, 10, 0.40, 0, "m1", "Yes")
	src := &fakeSource{latest: last, hasLatest: true, trades: []domain.Trade{last}}
	out := make(chan domain.TradeBatch, 4)
	m, n := newTestMonitor(src, out)

	m.poll(context.Background())

	_, ok := drainBatch(t, out)
	assert.False(t, ok, "el trade histórico no debe reemitirse")
	assert.Empty(t, n.raw)
}

func TestMonitor_EmitsOnlyNewTrades(t *testing.T) {
	old := tr(domain.SideBuy, 10, 0.40, 0, "m1", "Yes")
	src := &fakeSource{latest: old, hasLatest: true, trades: []domain.Trade{old}}
	out := make(chan domain.TradeBatch, 4)
	m, n := newTestMonitor(src, out)

	m.poll(context.Background()) // seed + nada nuevo

	fresh1 := tr(domain.SideBuy, 5, 0.42, 10, "m1", "Yes")
	fresh2 := tr(domain.SideSell, 2, 0.45, 20, "m1", "Yes")
	src.trades = []domain.Trade{fresh2, fresh1, old} // la API devuelve más recientes primero

	m.poll(context.Background())

	batch, ok := drainBatch(t, out)
	require.True(t, ok)
	require.Len(t, batch.Trades, 2)
	assert.Equal(t, fresh1.TxHash, batch.Trades[0].TxHash, "orden cronológico dentro del batch")
	assert.Equal(t, fresh2.TxHash, batch.Trades[1].TxHash)
	assert.Equal(t, "0xsource", batch.Wallet)

	// El notifier recibe los trades crudos antes de cualquier neteo.
	require.Len(t, n.raw, 1)
	assert.Len(t, n.raw[0], 2)
}

func TestMonitor_DedupAcrossPolls(t *testing.T) {
	old := tr(domain.SideBuy, 10, 0.40, 0, "m1", "Yes")
	src := &fakeSource{latest: old, hasLatest: true}
	out := make(chan domain.TradeBatch, 4)
	m, _ := newTestMonitor(src, out)

	fresh := tr(domain.SideBuy, 5, 0.42, 10, "m1", "Yes")
	src.trades = []domain.Trade{fresh, old}

	m.poll(context.Background())
	_, ok := drainBatch(t, out)
	require.True(t, ok)

	m.poll(context.Background()) // mismo tape otra vez
	_, ok = drainBatch(t, out)
	assert.False(t, ok, "un hash ya visto no debe reemitirse")
}

func TestMonitor_SameTimestampDifferentHashPasses(t *testing.T) {
	old := tr(domain.SideBuy, 10, 0.40, 0, "m1", "Yes")
	src := &fakeSource{latest: old, hasLatest: true}
	out := make(chan domain.TradeBatch, 4)
	m, _ := newTestMonitor(src, out)
	m.poll(context.Background())

	// Mismo segundo que la marca de agua pero hash nuevo: debe pasar.
	twin := tr(domain.SideSell, 3, 0.41, 0, "m1", "Yes")
	src.trades = []domain.Trade{twin, old}

	m.poll(context.Background())
	batch, ok := drainBatch(t, out)
	require.True(t, ok)
	require.Len(t, batch.Trades, 1)
	assert.Equal(t, twin.TxHash, batch.Trades[0].TxHash)
}

func TestMonitor_SeedFailureRetriesNextTick(t *testing.T) {
	src := &fakeSource{latestErr: errors.New("data api 500")}
	out := make(chan domain.TradeBatch, 4)
	m, _ := newTestMonitor(src, out)

	m.poll(context.Background())
	assert.False(t, m.seeded)

	last := tr(domain.SideBuy, 10, 0.40, 0, "m1", "Yes")
	src.latestErr = nil
	src.latest, src.hasLatest = last, true

	m.poll(context.Background())
	assert.True(t, m.seeded)
	assert.Equal(t, last.Timestamp, m.lastSeen)
}

func TestMonitor_EmptyHistorySeedsClean(t *testing.T) {
	src := &fakeSource{}
	out := make(chan domain.TradeBatch, 4)
	m, _ := newTestMonitor(src, out)

	m.poll(context.Background())
	assert.True(t, m.seeded)

	fresh := tr(domain.SideBuy, 5, 0.42, 10, "m1", "Yes")
	src.trades = []domain.Trade{fresh}
	m.poll(context.Background())

	batch, ok := drainBatch(t, out)
	require.True(t, ok)
	assert.Len(t, batch.Trades, 1)
}

func TestMonitor_FetchErrorSkipsTick(t *testing.T) {
	old := tr(domain.SideBuy, 10, 0.40, 0, "m1", "Yes")
	src := &fakeSource{latest: old, hasLatest: true, fetchErr: errors.New("timeout")}
	out := make(chan domain.TradeBatch, 4)
	m, _ := newTestMonitor(src, out)

	m.poll(context.Background())
	_, ok := drainBatch(t, out)
	assert.False(t, ok)
}

func TestMonitor_SeenSetResetsOnOverflow(t *testing.T) {
	src := &fakeSource{}
	out := make(chan domain.TradeBatch, 4)
	m, _ := newTestMonitor(src, out)
	m.seeded = true

	for i := 0; i < maxSeenHashes; i++ {
		m.seen[fmt.Sprintf("0xstale%04d", i)] = struct{}{}
	}

	batch := []domain.Trade{
		tr(domain.SideBuy, 1, 0.50, 100, "m1", "Yes"),
		tr(domain.SideBuy, 1, 0.50, 101, "m1", "Yes"),
	}
	m.advance(batch)

	// El set desborda y se reinicia al batch actual; la marca de agua
	// sigue protegiendo contra reprocesar historia.
	assert.Len(t, m.seen, len(batch))
	_, kept := m.seen[batch[1].DedupKey()]
	assert.True(t, kept)
	assert.Equal(t, batch[1].Timestamp, m.lastSeen)
}
