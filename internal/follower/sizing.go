package follower

// sizing.go — strategy-based position sizing with risk guards.
//
// Guards run in a fixed order; any failure is a structured Rejection, never
// an exception. Rejections are journaled so every skipped copy can be
// reconstructed later.

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/polycopy/internal/domain"
	"github.com/alejandrodnm/polycopy/internal/ports"
)

const (
	minOrderUSD    = 1.0  // dust floor on the computed budget
	minOrderShares = 5.0  // CLOB minimum order size per side
	fokPricePad    = 0.01 // one tick against the taker to raise fill odds
	minExecPrice   = 0.01
	gtdLifetime    = time.Minute
)

// SizerConfig tunes the risk guards.
type SizerConfig struct {
	MinBalance float64          // cash floor below which copying pauses
	OrderType  domain.OrderType // order type for mirrored orders
}

// Sizer turns a net trade into a bounded, fundable OrderIntent.
type Sizer struct {
	funds    *Funds
	balances ports.BalanceSource
	alerts   ports.AlertSender
	cfg      SizerConfig

	lastAlertDay string // "2006-01-02" of the last low-balance alert
}

// NewSizer creates a Sizer. balances is only consulted by the
// portfolio-share strategy; alerts may be nil.
func NewSizer(funds *Funds, balances ports.BalanceSource, alerts ports.AlertSender, cfg SizerConfig) *Sizer {
	if cfg.OrderType == "" {
		cfg.OrderType = domain.OrderFOK
	}
	return &Sizer{funds: funds, balances: balances, alerts: alerts, cfg: cfg}
}

// Size applies the strategy and the guard chain to one net trade.
// A *domain.Rejection error means the order was deliberately skipped;
// any other error is transient and the caller may retry the trade later.
// On a successful BUY the target budget is left reserved in Funds — the
// caller must Release it after the order round-trip completes.
func (s *Sizer) Size(ctx context.Context, nt domain.NetTrade, strat domain.Strategy) (domain.OrderIntent, error) {
	price := nt.Template.Price
	if price <= 0 {
		return domain.OrderIntent{}, &domain.Rejection{Reason: domain.RejectBadPrice}
	}

	myCash, err := s.funds.Balance(ctx)
	if err != nil {
		return domain.OrderIntent{}, fmt.Errorf("follower.Sizer.Size: balance: %w", err)
	}

	if myCash < s.cfg.MinBalance {
		s.lowBalanceAlert(myCash)
		return domain.OrderIntent{}, &domain.Rejection{
			Reason: domain.RejectLowBalance,
			Detail: fmt.Sprintf("cash %.2f below floor %.2f", myCash, s.cfg.MinBalance),
		}
	}

	targetUSD, err := s.targetUSD(ctx, nt, strat, myCash)
	if err != nil {
		return domain.OrderIntent{}, err
	}

	if targetUSD > myCash {
		return domain.OrderIntent{}, &domain.Rejection{
			Reason: domain.RejectOverBudget,
			Detail: fmt.Sprintf("target %.2f exceeds cash %.2f", targetUSD, myCash),
		}
	}
	if targetUSD < minOrderUSD {
		return domain.OrderIntent{}, &domain.Rejection{
			Reason: domain.RejectDustOrder,
			Detail: fmt.Sprintf("target %.2f below $%.0f floor", targetUSD, minOrderUSD),
		}
	}

	shares := math.Floor(targetUSD / price)

	if nt.Side() == domain.SideSell {
		holdings, err := s.funds.Holdings(ctx, nt.Template.TokenID)
		if err != nil {
			return domain.OrderIntent{}, fmt.Errorf("follower.Sizer.Size: holdings: %w", err)
		}
		if holdings <= 0 {
			return domain.OrderIntent{}, &domain.Rejection{Reason: domain.RejectNoHoldings}
		}
		if shares > holdings {
			// Full-close fallback: never oversell what we actually hold.
			shares = holdings
		}
	}

	if shares < minOrderShares {
		return domain.OrderIntent{}, &domain.Rejection{
			Reason: domain.RejectBelowMinShares,
			Detail: fmt.Sprintf("%.2f shares below venue minimum %.0f", shares, minOrderShares),
		}
	}

	intent := domain.OrderIntent{
		ID:          uuid.NewString(),
		TokenID:     nt.Template.TokenID,
		ConditionID: nt.Template.ConditionID,
		Outcome:     nt.Template.Outcome,
		Title:       nt.Template.Title,
		Side:        nt.Side(),
		Shares:      shares,
		Price:       execPrice(price, nt.Side(), s.cfg.OrderType),
		TargetUSD:   targetUSD,
		Type:        s.cfg.OrderType,
	}
	if intent.Type == domain.OrderGTD {
		intent.Expiration = time.Now().Add(gtdLifetime)
	}

	if intent.Side == domain.SideBuy {
		s.funds.Reserve(targetUSD)
	}
	return intent, nil
}

// targetUSD computes the mirror budget for the selected strategy mode.
func (s *Sizer) targetUSD(ctx context.Context, nt domain.NetTrade, strat domain.Strategy, myCash float64) (float64, error) {
	switch strat.Mode {
	case domain.StrategyProportional:
		return nt.USD() * strat.Param, nil

	case domain.StrategyPortfolioShare:
		srcCash, err := s.balances.FetchCashBalance(ctx, nt.Template.Wallet)
		if err != nil {
			return 0, fmt.Errorf("follower.Sizer.targetUSD: source cash: %w", err)
		}
		if srcCash <= 0 {
			return 0, fmt.Errorf("follower.Sizer.targetUSD: source wallet %s reports no cash", nt.Template.Wallet)
		}
		return nt.USD() / srcCash * myCash, nil

	case domain.StrategyFixed:
		return strat.Param, nil

	default:
		return 0, fmt.Errorf("follower.Sizer.targetUSD: unknown strategy mode %q", strat.Mode)
	}
}

// execPrice pads immediate-or-cancel orders by one tick against the taker
// so the marketable order actually crosses. Prices keep the venue's 0.01
// tick grid and never go below it.
func execPrice(price float64, side domain.Side, typ domain.OrderType) float64 {
	p := price
	if typ == domain.OrderFOK {
		if side == domain.SideBuy {
			p += fokPricePad
		} else {
			p -= fokPricePad
		}
	}
	p = math.Round(p*100) / 100
	if p < minExecPrice {
		p = minExecPrice
	}
	return p
}

// lowBalanceAlert raises the out-of-band alert at most once per calendar day.
func (s *Sizer) lowBalanceAlert(cash float64) {
	today := time.Now().UTC().Format("2006-01-02")
	if s.lastAlertDay == today || s.alerts == nil {
		return
	}
	s.lastAlertDay = today

	subject := fmt.Sprintf("Low balance alert ($%.2f)", cash)
	body := fmt.Sprintf(
		"The funding wallet balance dropped below the configured floor.\n\n"+
			"Current balance: $%.2f\nRequired floor:  $%.2f\n\n"+
			"Copy-trading is paused until the balance recovers. "+
			"This alert fires at most once per day.\n",
		cash, s.cfg.MinBalance)

	if ok := s.alerts.SendAlert(subject, body); !ok {
		slog.Warn("low balance alert could not be delivered", "balance", cash)
	}
}
