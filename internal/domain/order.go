package domain

import (
	"fmt"
	"time"
)

// NetTrade es el residuo direccional de un grupo (mercado, outcome) tras
// netear compras y ventas de un mismo batch de polling.
type NetTrade struct {
	Template   Trade   // trade más reciente del lado ganador, usado como plantilla
	Size       float64 // shares netas (siempre > 0; el lado lo da Template.Side)
	BuyVolume  float64 // shares compradas en el batch
	SellVolume float64 // shares vendidas en el batch
}

// Side devuelve la dirección del residuo neto.
func (n NetTrade) Side() Side {
	return n.Template.Side
}

// USD devuelve el valor nominal del residuo al precio de la plantilla.
func (n NetTrade) USD() float64 {
	return n.Size * n.Template.Price
}

// Reduced indica si el batch contenía actividad en el lado contrario
// (compra parcialmente cancelada por ventas, o viceversa).
func (n NetTrade) Reduced() bool {
	return n.BuyVolume > 0 && n.SellVolume > 0
}

// StrategyMode selecciona cómo se dimensiona la orden espejo.
type StrategyMode string

const (
	// StrategyProportional: targetUsd = sourceTradeUsd × Param.
	StrategyProportional StrategyMode = "proportional"
	// StrategyPortfolioShare: targetUsd = (sourceTradeUsd / sourceCash) × myCash.
	StrategyPortfolioShare StrategyMode = "portfolio_share"
	// StrategyFixed: targetUsd = Param, constante por orden.
	StrategyFixed StrategyMode = "fixed"
)

// Strategy es el descriptor de sizing activo. Se puede actualizar en caliente
// sin reiniciar los monitores.
type Strategy struct {
	Mode  StrategyMode
	Param float64
}

// OrderType es el tipo de orden del CLOB.
type OrderType string

const (
	OrderGTC OrderType = "GTC" // good-till-cancelled
	OrderFOK OrderType = "FOK" // fill-or-kill, usada como orden de mercado
	OrderGTD OrderType = "GTD" // good-till-date
)

// OrderIntent es una orden espejo completamente especificada, lista para
// firmarse y enviarse al CLOB. Se genera fresca por cada net trade y no
// se persiste como estado.
type OrderIntent struct {
	ID          string // uuid local de tracking
	TokenID     string
	ConditionID string
	Outcome     string
	Title       string
	Side        Side
	Shares      float64
	Price       float64 // precio de ejecución, ya con el padding FOK aplicado
	TargetUSD   float64 // presupuesto calculado por la estrategia
	Type        OrderType
	Expiration  time.Time // solo para GTD
}

// OrderResult es la respuesta del CLOB a una orden enviada.
type OrderResult struct {
	Success     bool
	CLOBOrderID string
	Status      string
	ErrorMsg    string
}

// Rejection es un rechazo estructurado del sizing/risk-guard. No es un
// fallo: la orden simplemente no se emite y el motivo queda en el journal.
type Rejection struct {
	Reason RejectReason
	Detail string
}

// RejectReason clasifica por qué no se emitió una orden espejo.
type RejectReason string

const (
	RejectLowBalance     RejectReason = "balance_below_floor"
	RejectOverBudget     RejectReason = "target_exceeds_cash"
	RejectDustOrder      RejectReason = "target_below_dust_floor"
	RejectNoHoldings     RejectReason = "no_holdings_to_sell"
	RejectBelowMinShares RejectReason = "below_venue_minimum"
	RejectBadPrice       RejectReason = "missing_price"
)

func (r *Rejection) Error() string {
	if r.Detail == "" {
		return string(r.Reason)
	}
	return fmt.Sprintf("%s: %s", r.Reason, r.Detail)
}

// OrderRecord es la entrada del journal de auditoría: una por net trade
// procesado, tanto si acabó en orden enviada como en rechazo.
type OrderRecord struct {
	ID           string    `json:"id"`
	RecordedAt   time.Time `json:"recorded_at"`
	SourceWallet string    `json:"source_wallet"`
	SourceTxHash string    `json:"source_tx_hash"`
	ConditionID  string    `json:"condition_id"`
	Outcome      string    `json:"outcome"`
	Title        string    `json:"title"`
	Side         Side      `json:"side"`
	SourceSize   float64   `json:"source_size"`
	SourcePrice  float64   `json:"source_price"`
	Strategy     string    `json:"strategy"`
	Param        float64   `json:"param"`
	TargetUSD    float64   `json:"target_usd"`
	Shares       float64   `json:"shares"`
	Price        float64   `json:"price"`
	OrderType    string    `json:"order_type"`
	Submitted    bool      `json:"submitted"`
	CLOBOrderID  string    `json:"clob_order_id,omitempty"`
	Status       string    `json:"status,omitempty"`
	Rejected     string    `json:"rejected,omitempty"` // RejectReason si no se envió
	Error        string    `json:"error,omitempty"`
}
