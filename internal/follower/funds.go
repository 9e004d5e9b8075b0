package follower

// funds.go — single-writer gate over the funding wallet's cash and holdings.
//
// Every sizing decision funnels through one Funds instance, so two source
// wallets firing at the same time cannot both pass a balance check against
// a stale snapshot and jointly overdraw the funding wallet.

import (
	"context"
	"fmt"
	"sync"

	"github.com/alejandrodnm/polycopy/internal/ports"
)

// Funds serializes balance and holdings reads against the execution venue
// and tracks budget reserved by in-flight buy orders that the venue balance
// does not reflect yet.
type Funds struct {
	exec ports.OrderExecutor

	mu       sync.Mutex
	reserved float64
}

// NewFunds creates the balance/holdings service over the executor.
func NewFunds(exec ports.OrderExecutor) *Funds {
	return &Funds{exec: exec}
}

// Balance fetches the venue's authoritative cash balance and subtracts the
// budget currently reserved by in-flight orders.
func (f *Funds) Balance(ctx context.Context) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	bal, err := f.exec.GetBalance(ctx)
	if err != nil {
		return 0, fmt.Errorf("follower.Funds.Balance: %w", err)
	}
	avail := bal - f.reserved
	if avail < 0 {
		avail = 0
	}
	return avail, nil
}

// Holdings fetches the on-chain share balance for a token.
func (f *Funds) Holdings(ctx context.Context, tokenID string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	shares, err := f.exec.TokenBalance(ctx, tokenID)
	if err != nil {
		return 0, fmt.Errorf("follower.Funds.Holdings: %w", err)
	}
	return shares, nil
}

// Reserve earmarks buy budget until the submitted order settles into the
// venue balance. Paired with Release.
func (f *Funds) Reserve(usd float64) {
	f.mu.Lock()
	f.reserved += usd
	f.mu.Unlock()
}

// Release frees budget reserved by Reserve once the order round-trip is done.
func (f *Funds) Release(usd float64) {
	f.mu.Lock()
	f.reserved -= usd
	if f.reserved < 0 {
		f.reserved = 0
	}
	f.mu.Unlock()
}
