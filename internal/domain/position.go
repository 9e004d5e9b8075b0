package domain

import "time"

// DustShares: restos de posición por debajo de este umbral se tratan como cero.
const DustShares = 1e-3

// PositionKey identifica una posición: un outcome de un mercado.
type PositionKey struct {
	ConditionID string
	Outcome     string
}

// Position es el estado de cost-basis de una posición abierta.
// Invariantes: Shares ≥ 0 y CostBasis ≥ 0 en todo momento.
type Position struct {
	Key         PositionKey
	Title       string
	Shares      float64
	CostBasis   float64 // USD pagados por las shares actuales
	LastTradeAt time.Time
}

// AvgPrice devuelve el precio medio de entrada, o 0 sin shares.
func (p Position) AvgPrice() float64 {
	if p.Shares <= 0 {
		return 0
	}
	return p.CostBasis / p.Shares
}

// Open indica si la posición tiene shares por encima del umbral de dust.
func (p Position) Open() bool {
	return p.Shares > DustShares
}

// EventKind distingue el origen de un evento de PnL.
type EventKind string

const (
	EventTrade      EventKind = "TRADE"      // cierre activo por venta
	EventSettlement EventKind = "SETTLEMENT" // resolución del mercado
)

// PnLEvent es un evento de PnL realizado, en orden cronológico.
type PnLEvent struct {
	Date          time.Time
	PnL           float64
	CumulativePnL float64 // suma acumulada tras ordenar por fecha
	ConditionID   string
	Outcome       string
	Title         string
	Kind          EventKind
}

// ActivePosition es una posición abierta en un mercado aún sin resolver.
type ActivePosition struct {
	Position
	Weight float64 // CostBasis / Σ CostBasis activos, solo para display
}

// LedgerResult es el resultado de reconciliar el tape completo de un wallet.
type LedgerResult struct {
	Events []PnLEvent
	Active []ActivePosition
}

// TotalPnL devuelve la suma de todos los eventos realizados.
func (r LedgerResult) TotalPnL() float64 {
	if len(r.Events) == 0 {
		return 0
	}
	return r.Events[len(r.Events)-1].CumulativePnL
}
