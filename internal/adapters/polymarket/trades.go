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
	tradesPath = "/trades"
	valuePath  = "/value"

	tradesPerPage  = 500
	tradesMaxPages = 6
)

// FetchWalletTrades obtiene los trades más recientes de un wallet desde la
// Data API pública, más recientes primero. Implementa ports.TradeSource.
func (c *Client) FetchWalletTrades(ctx context.Context, wallet string, limit int) ([]domain.Trade, error) {
	if limit <= 0 {
		limit = tradesPerPage
	}

	var all []domain.Trade
	for offset := 0; offset < limit && offset < tradesPerPage*tradesMaxPages; offset += tradesPerPage {
		pageLimit := limit - offset
		if pageLimit > tradesPerPage {
			pageLimit = tradesPerPage
		}
		url := fmt.Sprintf("%s%s?user=%s&limit=%d&offset=%d",
			c.dataBase, tradesPath, wallet, pageLimit, offset)

		var resp []rawDataTrade
		if err := c.get(ctx, c.dataLimiter, url, &resp); err != nil {
			return nil, fmt.Errorf("polymarket.FetchWalletTrades: %w", err)
		}
		if len(resp) == 0 {
			break
		}

		for _, rt := range resp {
			all = append(all, rt.toDomain(wallet))
		}
		if len(resp) < pageLimit {
			break
		}
	}

	slog.Debug("fetched wallet trades", "wallet", shortAddr(wallet), "count", len(all))
	return all, nil
}

// FetchLatestTrade devuelve el trade más reciente del wallet, si existe.
// Se usa para sembrar el estado de dedup sin reprocesar historia.
func (c *Client) FetchLatestTrade(ctx context.Context, wallet string) (domain.Trade, bool, error) {
	url := fmt.Sprintf("%s%s?user=%s&limit=1", c.dataBase, tradesPath, wallet)

	var resp []rawDataTrade
	if err := c.get(ctx, c.dataLimiter, url, &resp); err != nil {
		return domain.Trade{}, false, fmt.Errorf("polymarket.FetchLatestTrade: %w", err)
	}
	if len(resp) == 0 {
		return domain.Trade{}, false, nil
	}
	return resp[0].toDomain(wallet), true, nil
}

// FetchCashBalance devuelve el cash USDC de un wallet arbitrario según la
// Data API. Implementa ports.BalanceSource para la estrategia portfolio_share.
func (c *Client) FetchCashBalance(ctx context.Context, wallet string) (float64, error) {
	url := fmt.Sprintf("%s%s?user=%s", c.dataBase, valuePath, wallet)

	var resp []rawUserValue
	if err := c.get(ctx, c.dataLimiter, url, &resp); err != nil {
		return 0, fmt.Errorf("polymarket.FetchCashBalance: %w", err)
	}
	for _, v := range resp {
		if strings.EqualFold(v.User, wallet) {
			val, _ := v.Value.Float64()
			return val, nil
		}
	}
	if len(resp) > 0 {
		val, _ := resp[0].Value.Float64()
		return val, nil
	}
	return 0, fmt.Errorf("polymarket.FetchCashBalance: no value for wallet %s", wallet)
}

// toDomain convierte el DTO de la Data API al trade de dominio.
func (rt rawDataTrade) toDomain(wallet string) domain.Trade {
	price, _ := rt.Price.Float64()
	size, _ := rt.Size.Float64()

	w := rt.ProxyWallet
	if w == "" {
		w = wallet
	}
	return domain.Trade{
		Wallet:      w,
		ConditionID: rt.ConditionID,
		TokenID:     rt.Asset,
		Outcome:     rt.Outcome,
		Title:       rt.Title,
		Side:        domain.Side(strings.ToUpper(rt.Side)),
		Size:        size,
		Price:       price,
		Timestamp:   parseTradeTimestamp(rt.Timestamp),
		TxHash:      rt.TransactionHash,
	}
}

// parseTradeTimestamp acepta unix seconds, millis, float o ISO 8601.
func parseTradeTimestamp(n json.Number) time.Time {
	s := n.String()
	if sec, err := strconv.ParseInt(s, 10, 64); err == nil {
		if sec > 1e12 {
			return time.Unix(sec/1000, (sec%1000)*int64(time.Millisecond))
		}
		return time.Unix(sec, 0)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		sec := int64(f)
		nsec := int64((f - float64(sec)) * 1e9)
		return time.Unix(sec, nsec)
	}
	for _, layout := range []string{
		time.RFC3339Nano, time.RFC3339,
		"2006-01-02T15:04:05.000Z", "2006-01-02T15:04:05Z",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func shortAddr(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:10] + "..."
}
