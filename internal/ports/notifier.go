package ports

import (
	"context"

	"github.com/alejandrodnm/polycopy/internal/domain"
)

// Notifier presenta el flujo de trades y las decisiones de ejecución al usuario.
type Notifier interface {
	// NotifyTrades muestra los trades crudos recién capturados de un wallet,
	// en su forma original, antes del netting.
	NotifyTrades(ctx context.Context, wallet string, trades []domain.Trade) error

	// NotifyNetTrade muestra el residuo neto que pasa a ejecución.
	NotifyNetTrade(ctx context.Context, wallet string, nt domain.NetTrade) error

	// NotifyOrder muestra el resultado de una orden espejo (envío o rechazo).
	NotifyOrder(ctx context.Context, rec domain.OrderRecord) error
}

// AlertSender envía alertas fuera de banda (email). Best-effort: nunca
// bloquea ni interrumpe el camino de trading.
type AlertSender interface {
	SendAlert(subject, body string) bool
}
