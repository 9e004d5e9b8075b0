package domain

import "time"

// MarketSnapshot es el estado actual de un mercado según la Gamma API.
// Outcomes y OutcomePrices son arrays paralelos.
type MarketSnapshot struct {
	ConditionID   string
	Question      string
	Slug          string
	Closed        bool
	Outcomes      []string
	OutcomePrices []float64
	ClosedTime    time.Time // no fiable: ver el fallback de settlement en el analyzer
}

// winnerThreshold: un outcome con precio resuelto por encima de este
// umbral se considera el ganador del mercado.
const winnerThreshold = 0.95

// Winner devuelve el outcome ganador de un mercado cerrado.
// ok=false si el mercado sigue abierto, los arrays son inconsistentes,
// o ningún precio supera el umbral (cerrado pero sin resolver).
func (m MarketSnapshot) Winner() (string, bool) {
	if !m.Closed || len(m.Outcomes) == 0 || len(m.Outcomes) != len(m.OutcomePrices) {
		return "", false
	}
	for i, p := range m.OutcomePrices {
		if p > winnerThreshold {
			return m.Outcomes[i], true
		}
	}
	return "", false
}
