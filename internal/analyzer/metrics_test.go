package analyzer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeMetrics_WinRateAndProfitFactor(t *testing.T) {
	rep := ComputeMetrics([]float64{5, -5, 3})

	assert.Equal(t, 3, rep.Trades)
	assert.Equal(t, 2, rep.Wins)
	assert.InDelta(t, 2.0/3.0, rep.WinRate, 1e-9)
	// profit factor = (5+3) / |−5| = 1.6
	assert.InDelta(t, 1.6, rep.ProfitFactor, 1e-9)
	assert.InDelta(t, 3.0, rep.TotalPnL, 1e-9)
}

func TestComputeMetrics_BelowMinSamples(t *testing.T) {
	rep := ComputeMetrics([]float64{5, -5, 3})

	// con menos de 5 muestras los ratios quedan en valores neutros
	assert.Zero(t, rep.Sharpe)
	assert.Zero(t, rep.Sortino)
	assert.Zero(t, rep.MaxDrawdown)
	assert.Zero(t, rep.Kelly)
	assert.Equal(t, 1.0, rep.PValue)
}

func TestComputeMetrics_Empty(t *testing.T) {
	rep := ComputeMetrics(nil)
	assert.Zero(t, rep.Trades)
	assert.Zero(t, rep.WinRate)
	assert.Zero(t, rep.ProfitFactor)
	assert.Equal(t, 1.0, rep.PValue)
}

func TestComputeMetrics_Sharpe(t *testing.T) {
	rep := ComputeMetrics([]float64{1, 2, 3, 4, 5})

	// media 3, std poblacional √2, sharpe = 3/√2 × √5
	want := 3.0 / math.Sqrt2 * math.Sqrt(5)
	assert.InDelta(t, want, rep.Sharpe, 1e-9)
}

func TestComputeMetrics_AllWins(t *testing.T) {
	rep := ComputeMetrics([]float64{1, 2, 3, 4, 5})

	assert.Equal(t, 1.0, rep.WinRate)
	assert.Equal(t, profitFactorMax, rep.ProfitFactor)
	// sin pérdidas el sortino diverge y se acota
	assert.Equal(t, sortinoCap, rep.Sortino)
	assert.Equal(t, 1.0, rep.Kelly)
	assert.Zero(t, rep.MaxDrawdown)
}

func TestComputeMetrics_AllLosses(t *testing.T) {
	rep := ComputeMetrics([]float64{-1, -2, -1, -3, -2})

	assert.Zero(t, rep.WinRate)
	assert.Zero(t, rep.ProfitFactor)
	assert.Zero(t, rep.Kelly)
	assert.Less(t, rep.Sortino, 0.0)
	// media claramente negativa: nada de significancia
	assert.Greater(t, rep.PValue, 0.5)
}

func TestComputeMetrics_Kelly(t *testing.T) {
	rep := ComputeMetrics([]float64{5, -5, 3, 3, -5})

	// wins: 5,3,3 (avg 11/3), losses: −5,−5 (avg 5)
	// w = 3/5, b = (11/3)/5, kelly = (b·w − (1−w)) / b
	b := (11.0 / 3.0) / 5.0
	want := (b*0.6 - 0.4) / b
	assert.InDelta(t, want, rep.Kelly, 1e-9)
}

func TestComputeMetrics_MaxDrawdown(t *testing.T) {
	rep := ComputeMetrics([]float64{10, -4, -3, 5, 1})

	// acumulado: 10, 6, 3, 8, 9 — peak 10, trough 3
	assert.InDelta(t, 7.0, rep.MaxDrawdown, 1e-9)
}

func TestComputeMetrics_PValueSignificantForConsistentWinner(t *testing.T) {
	pnls := []float64{2, 3, 1.5, 2.5, 2, 3.5, 1, 2, 2.5, 3}
	rep := ComputeMetrics(pnls)

	// muestra consistente y positiva: significativa de sobra
	assert.Less(t, rep.PValue, 0.01)
	assert.Greater(t, rep.PValue, 0.0)
}

func TestComputeMetrics_PValueNeutralWithZeroVariance(t *testing.T) {
	rep := ComputeMetrics([]float64{2, 2, 2, 2, 2})
	assert.Equal(t, 1.0, rep.PValue)
	assert.Zero(t, rep.Sharpe)
}
