package analyzer

// metrics.go — métricas estadísticas sobre la secuencia de PnL de un wallet.
// Puro y sin estado: nunca toca la red.

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/alejandrodnm/polycopy/internal/domain"
)

const (
	// minSamplesForStats: por debajo de esta muestra los ratios no son
	// significativos y se devuelven en sus valores neutros.
	minSamplesForStats = 5
	// sortinoCap acota el sortino para display cuando no hay pérdidas.
	sortinoCap = 100.0
	// profitFactorMax es el sentinel cuando hay ganancias y cero pérdidas.
	profitFactorMax = 999.0
)

// ComputeMetrics deriva el reporte de performance de una secuencia de PnL
// por evento cerrado (en las unidades que sean: USD o porcentaje).
func ComputeMetrics(pnls []float64) domain.PerformanceReport {
	rep := domain.PerformanceReport{
		Trades: len(pnls),
		PValue: 1.0,
	}
	if len(pnls) == 0 {
		return rep
	}

	var sumWin, sumLoss, total float64
	var losses []float64
	for _, p := range pnls {
		total += p
		switch {
		case p > 0:
			rep.Wins++
			sumWin += p
		case p < 0:
			sumLoss += -p
			losses = append(losses, p)
		}
	}
	rep.TotalPnL = total
	rep.WinRate = float64(rep.Wins) / float64(len(pnls))

	switch {
	case rep.Wins == 0:
		rep.ProfitFactor = 0
	case sumLoss == 0:
		rep.ProfitFactor = profitFactorMax
	default:
		rep.ProfitFactor = sumWin / sumLoss
	}

	if len(pnls) < minSamplesForStats {
		return rep
	}

	n := float64(len(pnls))
	mean := total / n
	std := popStd(pnls, mean)

	if std > 0 {
		rep.Sharpe = mean / std * math.Sqrt(n)
	}

	rep.Sortino = sortino(pnls, losses, mean, n)
	rep.MaxDrawdown = maxDrawdown(pnls)
	rep.PValue = pValue(pnls, mean)
	rep.Kelly = kelly(rep.Wins, len(losses), len(pnls), sumWin, sumLoss)

	return rep
}

// sortino es el sharpe usando solo la desviación de los retornos negativos.
// Sin pérdidas (o con desviación nula) diverge: se acota al cap si la media
// es positiva, 0 si no.
func sortino(pnls, losses []float64, mean, n float64) float64 {
	if len(losses) > 0 {
		var lossSum float64
		for _, l := range losses {
			lossSum += l
		}
		downStd := popStd(losses, lossSum/float64(len(losses)))
		if downStd > 0 {
			return math.Min(mean/downStd*math.Sqrt(n), sortinoCap)
		}
	}
	if mean > 0 {
		return sortinoCap
	}
	return 0
}

// maxDrawdown devuelve la máxima distancia peak-to-trough de la curva
// acumulada de PnL.
func maxDrawdown(pnls []float64) float64 {
	var cum, peak, maxDD float64
	for _, p := range pnls {
		cum += p
		if cum > peak {
			peak = cum
		}
		if dd := peak - cum; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// pValue es la significancia de una cola de que la media supere cero:
// test t de una muestra contra 0, partido o complementado según el signo
// del estadístico.
func pValue(pnls []float64, mean float64) float64 {
	n := float64(len(pnls))
	if n < 2 {
		return 1.0
	}
	sampleStd := sampleStd(pnls, mean)
	if sampleStd <= 0 {
		return 1.0
	}
	t := mean / (sampleStd / math.Sqrt(n))

	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: n - 1}
	pTwoTailed := 2 * (1 - dist.CDF(math.Abs(t)))
	if t > 0 {
		return pTwoTailed / 2
	}
	return 1 - pTwoTailed/2
}

// kelly calcula la fracción de Kelly a partir del win rate y el ratio
// ganancia/pérdida media, clamp a [0,1].
func kelly(wins, losses, total int, sumWin, sumLoss float64) float64 {
	switch {
	case wins == 0:
		return 0
	case losses == 0:
		return 1.0
	}
	w := float64(wins) / float64(total)
	avgWin := sumWin / float64(wins)
	avgLoss := sumLoss / float64(losses)
	if avgLoss <= 0 {
		return clamp01(w)
	}
	b := avgWin / avgLoss
	return clamp01((b*w - (1 - w)) / b)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(v, 1))
}

// popStd es la desviación estándar poblacional (divisor n).
func popStd(vals []float64, mean float64) float64 {
	var ss float64
	for _, v := range vals {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(vals)))
}

// sampleStd es la desviación estándar muestral (divisor n-1), la que usa
// el estadístico t.
func sampleStd(vals []float64, mean float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	var ss float64
	for _, v := range vals {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(vals)-1))
}
