package domain

import (
	"fmt"
	"time"
)

// Side es la dirección de un trade.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Trade representa un trade ejecutado de un wallet, tal como lo devuelve
// la Data API. Inmutable una vez parseado.
type Trade struct {
	Wallet      string
	ConditionID string
	TokenID     string // asset id del outcome concreto
	Outcome     string // "Yes", "No", o el nombre del outcome
	Title       string // pregunta del mercado, solo para display
	Side        Side
	Size        float64 // shares
	Price       float64 // 0..1
	Timestamp   time.Time
	TxHash      string
}

// USD devuelve el valor nominal del trade (shares × precio).
func (t Trade) USD() float64 {
	return t.Size * t.Price
}

// DedupKey es la clave de deduplicación: el tx hash si existe, o una
// clave compuesta si la API no lo devolvió.
func (t Trade) DedupKey() string {
	if t.TxHash != "" {
		return t.TxHash
	}
	return fmt.Sprintf("%d|%s|%s|%s|%.6f|%.6f",
		t.Timestamp.Unix(), t.Wallet, t.ConditionID, t.Side, t.Size, t.Price)
}

// TradeBatch es el lote de trades nuevos detectado en un ciclo de polling
// de un wallet monitorizado.
type TradeBatch struct {
	Wallet string
	Trades []Trade // orden no decreciente por timestamp
}
