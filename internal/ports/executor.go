package ports

import (
	"context"

	"github.com/alejandrodnm/polycopy/internal/domain"
)

// OrderExecutor firma y envía órdenes reales al CLOB de Polymarket.
// Es el gateway opaco de ejecución: el core nunca toca la firma.
type OrderExecutor interface {
	// PlaceOrder firma y envía la orden al CLOB.
	PlaceOrder(ctx context.Context, intent domain.OrderIntent) (domain.OrderResult, error)

	// CancelOrder cancela una orden abierta por su CLOB order ID.
	CancelOrder(ctx context.Context, clobOrderID string) error

	// GetBalance devuelve el balance USDC disponible según el endpoint
	// balance-allowance del CLOB (la fuente autoritativa para sizing).
	GetBalance(ctx context.Context) (float64, error)

	// TokenBalance devuelve las shares on-chain (ERC-1155) de un token.
	TokenBalance(ctx context.Context, tokenID string) (float64, error)
}

// BalanceSource obtiene el cash de un wallet arbitrario desde la Data API.
// Lo usa la estrategia portfolio_share para conocer el cash del wallet fuente.
type BalanceSource interface {
	FetchCashBalance(ctx context.Context, wallet string) (float64, error)
}
