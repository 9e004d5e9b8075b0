package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/alejandrodnm/polycopy/internal/domain"
)

const (
	gammaMarketsPath  = "/markets"
	gammaConditionMax = 20
)

// FetchMarket obtiene el estado de resolución de un mercado desde Gamma.
// Implementa ports.MarketSource.
func (c *Client) FetchMarket(ctx context.Context, conditionID string) (domain.MarketSnapshot, error) {
	url := fmt.Sprintf("%s%s?condition_ids=%s", c.gammaBase, gammaMarketsPath, conditionID)

	var resp gammaMarketsResponse
	if err := c.get(ctx, c.gammaLimiter, url, &resp); err != nil {
		return domain.MarketSnapshot{}, fmt.Errorf("polymarket.FetchMarket: %w", err)
	}
	if len(resp) == 0 {
		return domain.MarketSnapshot{}, fmt.Errorf("polymarket.FetchMarket: market %s not found", conditionID)
	}
	return gammaToSnapshot(resp[0]), nil
}

// FetchMarkets obtiene varios mercados en batches. Los que Gamma no conoce
// simplemente no aparecen en el mapa; el caller decide qué hacer con ellos.
func (c *Client) FetchMarkets(ctx context.Context, conditionIDs []string) (map[string]domain.MarketSnapshot, error) {
	result := make(map[string]domain.MarketSnapshot, len(conditionIDs))

	for i := 0; i < len(conditionIDs); i += gammaConditionMax {
		end := i + gammaConditionMax
		if end > len(conditionIDs) {
			end = len(conditionIDs)
		}
		batch := conditionIDs[i:end]

		url := fmt.Sprintf("%s%s?condition_ids=%s&limit=%d",
			c.gammaBase,
			gammaMarketsPath,
			strings.Join(batch, ","),
			gammaConditionMax,
		)

		var resp gammaMarketsResponse
		if err := c.get(ctx, c.gammaLimiter, url, &resp); err != nil {
			return nil, fmt.Errorf("polymarket.FetchMarkets: batch %d-%d: %w", i, end, err)
		}
		for _, gm := range resp {
			result[gm.ConditionID] = gammaToSnapshot(gm)
		}
	}

	slog.Debug("fetched market snapshots", "requested", len(conditionIDs), "found", len(result))
	return result, nil
}

func gammaToSnapshot(gm gammaMarket) domain.MarketSnapshot {
	return domain.MarketSnapshot{
		ConditionID:   gm.ConditionID,
		Question:      gm.Question,
		Slug:          gm.Slug,
		Closed:        gm.Closed,
		Outcomes:      parseJSONStringArray(gm.Outcomes),
		OutcomePrices: parseJSONFloatArray(gm.OutcomePrices),
		ClosedTime:    parseClosedTime(gm.ClosedTime),
	}
}

// parseJSONStringArray decodifica el formato de Gamma: un array JSON
// serializado dentro de un string, p.ej. `"[\"Yes\", \"No\"]"`.
func parseJSONStringArray(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	return out
}

// parseJSONFloatArray decodifica precios que Gamma serializa como strings
// dentro del array: `"[\"1\", \"0\"]"`.
func parseJSONFloatArray(s string) []float64 {
	raw := parseJSONStringArray(s)
	if raw == nil {
		return nil
	}
	out := make([]float64, 0, len(raw))
	for _, r := range raw {
		f, err := strconv.ParseFloat(r, 64)
		if err != nil {
			return nil
		}
		out = append(out, f)
	}
	return out
}

// parseClosedTime acepta los dos formatos que Gamma usa para closedTime.
func parseClosedTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02 15:04:05-07",
		"2006-01-02T15:04:05",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
