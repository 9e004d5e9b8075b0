package follower

// monitor.go — per-wallet polling loop over the trade tape.
//
// Each Monitor owns its dedup state exclusively; nothing is shared across
// wallets. New-trade batches are handed downstream over a channel. No error
// class terminates the loop — only context cancellation does.

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/alejandrodnm/polycopy/internal/domain"
	"github.com/alejandrodnm/polycopy/internal/ports"
)

const (
	defaultPollInterval = 5 * time.Second
	defaultFetchLimit   = 15  // recent trades per poll, covers realistic burst rates
	maxSeenHashes       = 300 // dedup set cap; on overflow the set resets to the current batch
)

// MonitorConfig tunes one wallet's polling loop.
type MonitorConfig struct {
	PollInterval time.Duration
	FetchLimit   int
}

func (c *MonitorConfig) setDefaults() {
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.FetchLimit <= 0 {
		c.FetchLimit = defaultFetchLimit
	}
}

// Monitor watches one source wallet and emits batches of newly-seen trades.
type Monitor struct {
	wallet   string
	source   ports.TradeSource
	notifier ports.Notifier
	out      chan<- domain.TradeBatch
	cfg      MonitorConfig

	seeded   bool
	lastSeen time.Time
	seen     map[string]struct{}
}

// NewMonitor creates a monitor for one wallet. Batches go out on out.
func NewMonitor(wallet string, source ports.TradeSource, notifier ports.Notifier, out chan<- domain.TradeBatch, cfg MonitorConfig) *Monitor {
	cfg.setDefaults()
	return &Monitor{
		wallet:   wallet,
		source:   source,
		notifier: notifier,
		out:      out,
		cfg:      cfg,
		seen:     make(map[string]struct{}),
	}
}

// Run polls until the context is cancelled. Transient errors are logged and
// retried on the next tick.
func (m *Monitor) Run(ctx context.Context) error {
	slog.Info("monitor started", "wallet", m.wallet, "interval", m.cfg.PollInterval)

	for {
		m.poll(ctx)

		select {
		case <-ctx.Done():
			slog.Info("monitor stopped", "wallet", m.wallet)
			return nil
		case <-time.After(m.cfg.PollInterval):
		}
	}
}

// seed initializes the dedup state from the wallet's single most recent
// trade, so history is never replayed as new activity.
func (m *Monitor) seed(ctx context.Context) bool {
	latest, found, err := m.source.FetchLatestTrade(ctx, m.wallet)
	if err != nil {
		slog.Warn("monitor seed failed, retrying next tick", "wallet", m.wallet, "err", err)
		return false
	}
	if found {
		m.lastSeen = latest.Timestamp
		m.seen[latest.DedupKey()] = struct{}{}
		slog.Info("monitor seeded", "wallet", m.wallet, "last_trade", latest.Timestamp)
	} else {
		slog.Info("monitor seeded on empty history", "wallet", m.wallet)
	}
	m.seeded = true
	return true
}

func (m *Monitor) poll(ctx context.Context) {
	if !m.seeded && !m.seed(ctx) {
		return
	}

	trades, err := m.source.FetchWalletTrades(ctx, m.wallet, m.cfg.FetchLimit)
	if err != nil {
		slog.Warn("poll failed", "wallet", m.wallet, "err", err)
		return
	}

	batch := m.filterNew(trades)
	if len(batch) == 0 {
		slog.Debug("no new trades", "wallet", m.wallet, "fetched", len(trades))
		return
	}

	m.advance(batch)

	// Raw trades are shown first, in original per-trade form; the netted
	// view reaches execution consumers strictly afterwards.
	if err := m.notifier.NotifyTrades(ctx, m.wallet, batch); err != nil {
		slog.Warn("notify raw trades failed", "wallet", m.wallet, "err", err)
	}

	select {
	case m.out <- domain.TradeBatch{Wallet: m.wallet, Trades: batch}:
	case <-ctx.Done():
	}
}

// filterNew keeps trades at or after the watermark whose hash is unseen,
// sorted by timestamp.
func (m *Monitor) filterNew(trades []domain.Trade) []domain.Trade {
	var batch []domain.Trade
	for _, t := range trades {
		if t.Timestamp.Before(m.lastSeen) {
			continue
		}
		if _, dup := m.seen[t.DedupKey()]; dup {
			continue
		}
		batch = append(batch, t)
	}
	sort.SliceStable(batch, func(i, j int) bool {
		return batch[i].Timestamp.Before(batch[j].Timestamp)
	})
	return batch
}

// advance moves the watermark to the batch max and records its hashes.
func (m *Monitor) advance(batch []domain.Trade) {
	for _, t := range batch {
		if t.Timestamp.After(m.lastSeen) {
			m.lastSeen = t.Timestamp
		}
		m.seen[t.DedupKey()] = struct{}{}
	}

	if len(m.seen) > maxSeenHashes {
		m.seen = make(map[string]struct{}, len(batch))
		for _, t := range batch {
			m.seen[t.DedupKey()] = struct{}{}
		}
	}
}
