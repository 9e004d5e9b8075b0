package follower

// engine.go — execution pipeline: trade batches in, mirrored orders out.
//
// All wallets' batches fan into one Engine goroutine, so order submission is
// serialized by construction. The strategy descriptor is swapped over a
// channel the loop selects on — no config file polling.

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/polycopy/internal/domain"
	"github.com/alejandrodnm/polycopy/internal/ports"
)

// Engine consumes netted trade signals and drives the sizing/execution path.
type Engine struct {
	batches  <-chan domain.TradeBatch
	strategy domain.Strategy
	updates  chan domain.Strategy

	sizer    *Sizer
	funds    *Funds
	executor ports.OrderExecutor
	journal  ports.Journal
	audit    ports.AuditStore
	notifier ports.Notifier
}

// NewEngine wires the execution pipeline. journal and audit may be nil in
// dry runs; notifier must not be.
func NewEngine(
	batches <-chan domain.TradeBatch,
	strategy domain.Strategy,
	sizer *Sizer,
	funds *Funds,
	executor ports.OrderExecutor,
	journal ports.Journal,
	audit ports.AuditStore,
	notifier ports.Notifier,
) *Engine {
	return &Engine{
		batches:  batches,
		strategy: strategy,
		updates:  make(chan domain.Strategy, 1),
		sizer:    sizer,
		funds:    funds,
		executor: executor,
		journal:  journal,
		audit:    audit,
		notifier: notifier,
	}
}

// UpdateStrategy hot-swaps the sizing strategy for subsequent cycles.
// Running monitors are not restarted.
func (e *Engine) UpdateStrategy(s domain.Strategy) {
	// Drop the pending update if nobody consumed it yet — last write wins.
	select {
	case <-e.updates:
	default:
	}
	e.updates <- s
}

// Run processes batches until the context is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("engine started", "strategy", e.strategy.Mode, "param", e.strategy.Param)

	for {
		select {
		case <-ctx.Done():
			slog.Info("engine stopped")
			return nil

		case s := <-e.updates:
			e.strategy = s
			slog.Info("strategy updated", "strategy", s.Mode, "param", s.Param)

		case batch := <-e.batches:
			e.process(ctx, batch)
		}
	}
}

func (e *Engine) process(ctx context.Context, batch domain.TradeBatch) {
	e.journalBatch(ctx, batch)

	nets := NetBatch(batch.Trades)
	if len(nets) == 0 {
		slog.Info("batch fully washed out, nothing to copy",
			"wallet", batch.Wallet, "trades", len(batch.Trades))
		return
	}

	for _, nt := range nets {
		if ctx.Err() != nil {
			return
		}
		if err := e.notifier.NotifyNetTrade(ctx, batch.Wallet, nt); err != nil {
			slog.Warn("notify net trade failed", "err", err)
		}

		rec := e.execute(ctx, batch.Wallet, nt)
		e.record(ctx, rec)
	}
}

// execute sizes and submits one net trade, producing its audit record.
// No outcome here is fatal to the loop.
func (e *Engine) execute(ctx context.Context, wallet string, nt domain.NetTrade) domain.OrderRecord {
	rec := domain.OrderRecord{
		ID:           uuid.NewString(),
		RecordedAt:   time.Now().UTC(),
		SourceWallet: wallet,
		SourceTxHash: nt.Template.TxHash,
		ConditionID:  nt.Template.ConditionID,
		Outcome:      nt.Template.Outcome,
		Title:        nt.Template.Title,
		Side:         nt.Side(),
		SourceSize:   nt.Size,
		SourcePrice:  nt.Template.Price,
		Strategy:     string(e.strategy.Mode),
		Param:        e.strategy.Param,
	}

	intent, err := e.sizer.Size(ctx, nt, e.strategy)
	if err != nil {
		var rej *domain.Rejection
		if errors.As(err, &rej) {
			rec.Rejected = string(rej.Reason)
			slog.Info("copy skipped", "wallet", wallet, "reason", rej.Reason, "detail", rej.Detail)
		} else {
			rec.Error = err.Error()
			slog.Warn("sizing failed", "wallet", wallet, "err", err)
		}
		return rec
	}

	rec.TargetUSD = intent.TargetUSD
	rec.Shares = intent.Shares
	rec.Price = intent.Price
	rec.OrderType = string(intent.Type)

	result, err := e.executor.PlaceOrder(ctx, intent)
	if intent.Side == domain.SideBuy {
		e.funds.Release(intent.TargetUSD)
	}
	if err != nil {
		// Venue rejected the signed order: keep the full computed intent
		// in the record so the decision can be audited.
		rec.Error = err.Error()
		slog.Error("order execution failed",
			"wallet", wallet, "side", intent.Side, "shares", intent.Shares,
			"price", intent.Price, "err", err)
		return rec
	}

	rec.Submitted = true
	rec.CLOBOrderID = result.CLOBOrderID
	rec.Status = result.Status
	if !result.Success {
		rec.Error = result.ErrorMsg
	}

	slog.Info("mirror order submitted",
		"wallet", wallet, "side", intent.Side, "shares", intent.Shares,
		"price", intent.Price, "order_id", result.CLOBOrderID, "status", result.Status)
	return rec
}

// journalBatch persists the raw captured trades (session log + audit store).
func (e *Engine) journalBatch(ctx context.Context, batch domain.TradeBatch) {
	if e.journal != nil {
		for _, t := range batch.Trades {
			if err := e.journal.RecordTrade(t); err != nil {
				slog.Warn("session journal write failed", "err", err)
			}
		}
	}
	if e.audit != nil {
		if err := e.audit.SaveSessionTrades(ctx, batch.Wallet, batch.Trades); err != nil {
			slog.Warn("audit store write failed", "err", err)
		}
	}
}

// record persists one order record everywhere it is surfaced.
func (e *Engine) record(ctx context.Context, rec domain.OrderRecord) {
	if err := e.notifier.NotifyOrder(ctx, rec); err != nil {
		slog.Warn("notify order failed", "err", err)
	}
	if e.journal != nil {
		if err := e.journal.RecordOrder(rec); err != nil {
			slog.Warn("order journal write failed", "err", err)
		}
	}
	if e.audit != nil {
		if err := e.audit.SaveOrderRecord(ctx, rec); err != nil {
			slog.Warn("audit store write failed", "err", err)
		}
	}
}
