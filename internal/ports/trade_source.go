package ports

import (
	"context"

	"github.com/alejandrodnm/polycopy/internal/domain"
)

// TradeSource obtiene el tape de trades de un wallet desde la Data API.
type TradeSource interface {
	// FetchWalletTrades devuelve hasta limit trades del wallet, paginando
	// internamente. El orden no está garantizado: el caller ordena.
	FetchWalletTrades(ctx context.Context, wallet string, limit int) ([]domain.Trade, error)

	// FetchLatestTrade devuelve el trade más reciente del wallet.
	// found=false si el wallet no tiene historial.
	FetchLatestTrade(ctx context.Context, wallet string) (domain.Trade, bool, error)
}
