package domain

import "time"

// DailySummary agrega la actividad de copy-trading de un día natural (UTC).
type DailySummary struct {
	Day       time.Time
	Orders    int // net trades procesados
	Submitted int // órdenes realmente enviadas al CLOB
	Rejected  int
	BuyUSD    float64 // presupuesto total en compras enviadas
	SellUSD   float64
}

// PerformanceReport son las métricas estadísticas derivadas de la secuencia
// de eventos de PnL de un wallet.
type PerformanceReport struct {
	Trades       int     // eventos cerrados considerados
	Wins         int     // eventos con PnL > 0
	WinRate      float64 // Wins / Trades
	ProfitFactor float64 // Σ ganancias / |Σ pérdidas|
	Sharpe       float64
	Sortino      float64 // capped para display si no hay pérdidas
	MaxDrawdown  float64 // máxima distancia peak-to-trough del acumulado
	PValue       float64 // test t de una cola, H0: media ≤ 0
	Kelly        float64 // fracción de Kelly, clamp [0,1]
	TotalPnL     float64
}
