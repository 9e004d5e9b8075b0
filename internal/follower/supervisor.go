package follower

// supervisor.go — lifecycle of the wallet monitors and the engine.

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alejandrodnm/polycopy/internal/domain"
	"github.com/alejandrodnm/polycopy/internal/ports"
)

// staggerDelay spreads monitor start times so N wallets don't hammer the
// tape API in lockstep.
const staggerDelay = 2 * time.Second

// Supervisor starts one monitor per watched wallet plus the shared engine,
// and stops everything on context cancellation.
type Supervisor struct {
	source   ports.TradeSource
	notifier ports.Notifier
	cfg      MonitorConfig
	engine   *Engine
	batches  chan domain.TradeBatch
}

// NewSupervisor wires the monitors' output channel into the engine.
func NewSupervisor(
	source ports.TradeSource,
	notifier ports.Notifier,
	cfg MonitorConfig,
	strategy domain.Strategy,
	sizer *Sizer,
	funds *Funds,
	executor ports.OrderExecutor,
	journal ports.Journal,
	audit ports.AuditStore,
) *Supervisor {
	batches := make(chan domain.TradeBatch)
	return &Supervisor{
		source:   source,
		notifier: notifier,
		cfg:      cfg,
		batches:  batches,
		engine:   NewEngine(batches, strategy, sizer, funds, executor, journal, audit, notifier),
	}
}

// UpdateStrategy hot-swaps the sizing strategy without restarting monitors.
func (s *Supervisor) UpdateStrategy(strat domain.Strategy) {
	s.engine.UpdateStrategy(strat)
}

// Run blocks until the context is cancelled and all loops have drained.
func (s *Supervisor) Run(ctx context.Context, wallets []string) error {
	if len(wallets) == 0 {
		return fmt.Errorf("follower.Supervisor.Run: no wallets to watch")
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.engine.Run(ctx)
	}()

	for i, wallet := range wallets {
		wg.Add(1)
		go func(idx int, w string) {
			defer wg.Done()

			// Staggered start against a thundering herd.
			select {
			case <-time.After(time.Duration(idx) * staggerDelay):
			case <-ctx.Done():
				return
			}

			m := NewMonitor(w, s.source, s.notifier, s.batches, s.cfg)
			m.Run(ctx)
		}(i, wallet)
	}

	slog.Info("supervisor running", "wallets", len(wallets))
	wg.Wait()
	return nil
}
