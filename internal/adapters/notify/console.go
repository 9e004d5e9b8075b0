package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/polycopy/internal/domain"
)

// Console implementa ports.Notifier: imprime el flujo de copy-trading y los
// reportes del analyzer en stdout.
type Console struct {
	out io.Writer
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole() *Console {
	return &Console{out: os.Stdout}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer) *Console {
	return &Console{out: w}
}

// NotifyTrades imprime los trades crudos recién capturados, en su forma
// original, antes del netting.
func (c *Console) NotifyTrades(_ context.Context, wallet string, trades []domain.Trade) error {
	now := time.Now().Format("15:04:05")
	fmt.Fprintf(c.out, "\n[%s] %s → %d trade(s) nuevos\n", now, shortWallet(wallet), len(trades))

	for _, t := range trades {
		fmt.Fprintf(c.out, "  %s %-4s %s [%s]\n", t.Timestamp.Format("15:04:05"), t.Side,
			compactName(t.Title, 44), t.Outcome)
		fmt.Fprintf(c.out, "       size %.2f @ $%.3f = $%.2f\n", t.Size, t.Price, t.USD())
	}
	return nil
}

// NotifyNetTrade imprime el residuo neto que pasa a ejecución.
func (c *Console) NotifyNetTrade(_ context.Context, wallet string, nt domain.NetTrade) error {
	label := "NET " + string(nt.Side())
	if nt.Reduced() {
		label += " (reducido por wash)"
	}
	fmt.Fprintf(c.out, "  >> %s %.2f @ $%.3f = $%.2f | %s [%s]\n",
		label, nt.Size, nt.Template.Price, nt.USD(),
		compactName(nt.Template.Title, 40), nt.Template.Outcome)
	return nil
}

// NotifyOrder imprime el resultado de una orden espejo.
func (c *Console) NotifyOrder(_ context.Context, rec domain.OrderRecord) error {
	switch {
	case rec.Rejected != "":
		fmt.Fprintf(c.out, "  -- SKIP [%s] %s %s\n", rec.Rejected, rec.Side,
			compactName(rec.Title, 40))
	case rec.Error != "" && !rec.Submitted:
		fmt.Fprintf(c.out, "  !! ERROR %s %s: %s\n", rec.Side,
			compactName(rec.Title, 40), rec.Error)
	default:
		status := rec.Status
		if status == "" {
			status = "sent"
		}
		fmt.Fprintf(c.out, "  ** ORDER %s %.2f @ $%.2f ($%.2f) [%s] id=%s\n",
			rec.Side, rec.Shares, rec.Price, rec.TargetUSD, status, rec.CLOBOrderID)
	}
	return nil
}

// PrintLedger imprime el resultado completo de una reconciliación: eventos
// de PnL, posiciones activas y métricas de performance.
func (c *Console) PrintLedger(wallet string, res domain.LedgerResult, rep domain.PerformanceReport) {
	fmt.Fprintf(c.out, "\n=== LEDGER %s ===\n", shortWallet(wallet))

	c.printEvents(res.Events)
	c.printActives(res.Active)
	c.printMetrics(rep, res.TotalPnL())
}

// printEvents imprime la serie de eventos de PnL realizado.
func (c *Console) printEvents(events []domain.PnLEvent) {
	if len(events) == 0 {
		fmt.Fprintln(c.out, "\n  Sin PnL realizado todavía.")
		return
	}

	fmt.Fprintf(c.out, "\n  PnL realizado — %d eventos\n", len(events))

	table := tablewriter.NewWriter(c.out)
	table.Header("Date", "Kind", "Market", "Outcome", "PnL", "Cum")

	for _, ev := range events {
		table.Append(
			ev.Date.Format("2006-01-02"),
			string(ev.Kind),
			compactName(ev.Title, 38),
			ev.Outcome,
			fmt.Sprintf("$%.2f", ev.PnL),
			fmt.Sprintf("$%.2f", ev.CumulativePnL),
		)
	}
	table.Render()
}

// printActives imprime las posiciones abiertas con su peso en el portfolio.
func (c *Console) printActives(active []domain.ActivePosition) {
	if len(active) == 0 {
		fmt.Fprintln(c.out, "\n  Sin posiciones activas.")
		return
	}

	fmt.Fprintf(c.out, "\n  Posiciones activas — %d\n", len(active))

	table := tablewriter.NewWriter(c.out)
	table.Header("Market", "Outcome", "Shares", "AvgPrice", "Cost", "Weight")

	for _, ap := range active {
		table.Append(
			compactName(ap.Title, 38),
			ap.Key.Outcome,
			fmt.Sprintf("%.2f", ap.Shares),
			fmt.Sprintf("$%.3f", ap.AvgPrice()),
			fmt.Sprintf("$%.2f", ap.CostBasis),
			fmt.Sprintf("%.1f%%", ap.Weight*100),
		)
	}
	table.Render()
}

// printMetrics imprime el bloque de métricas de performance.
func (c *Console) printMetrics(rep domain.PerformanceReport, totalPnL float64) {
	fmt.Fprintf(c.out, "\n  --- PERFORMANCE ---\n")
	fmt.Fprintf(c.out, "  Trades cerrados:   %d (%d wins, %.1f%% win rate)\n",
		rep.Trades, rep.Wins, rep.WinRate*100)
	fmt.Fprintf(c.out, "  PnL total:         $%.2f\n", totalPnL)
	fmt.Fprintf(c.out, "  Profit factor:     %s\n", profitFactorLabel(rep.ProfitFactor))
	fmt.Fprintf(c.out, "  Sharpe:            %.2f\n", rep.Sharpe)
	fmt.Fprintf(c.out, "  Sortino:           %.2f\n", rep.Sortino)
	fmt.Fprintf(c.out, "  Max drawdown:      $%.2f\n", rep.MaxDrawdown)
	fmt.Fprintf(c.out, "  Kelly:             %.1f%%\n", rep.Kelly*100)
	fmt.Fprintf(c.out, "  p-value (1 cola):  %.4f\n", rep.PValue)

	switch {
	case rep.Trades < 5:
		fmt.Fprintf(c.out, "\n  VEREDICTO: muestra insuficiente para juzgar la señal\n\n")
	case rep.PValue < 0.05 && totalPnL > 0:
		fmt.Fprintf(c.out, "\n  VEREDICTO: señal estadísticamente significativa\n\n")
	case totalPnL > 0:
		fmt.Fprintf(c.out, "\n  VEREDICTO: rentable pero no concluyente (p=%.2f)\n\n", rep.PValue)
	default:
		fmt.Fprintf(c.out, "\n  VEREDICTO: no rentable en el período analizado\n\n")
	}
}

// PrintDailySummary imprime el resumen de actividad de un día.
func (c *Console) PrintDailySummary(s domain.DailySummary) {
	fmt.Fprintf(c.out, "\n[%s] resumen diario: %d órdenes | %d enviadas | %d rechazadas | buy $%.2f | sell $%.2f\n",
		s.Day.Format("2006-01-02"), s.Orders, s.Submitted, s.Rejected, s.BuyUSD, s.SellUSD)
}

// --- helpers ---

func profitFactorLabel(pf float64) string {
	if pf >= 999 {
		return "INF (sin pérdidas)"
	}
	return fmt.Sprintf("%.2f", pf)
}

func shortWallet(w string) string {
	if len(w) <= 10 {
		return w
	}
	return w[:6] + "…" + w[len(w)-4:]
}

func compactName(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := s[:maxLen]
	if idx := strings.LastIndex(cut, " "); idx > maxLen/2 {
		cut = cut[:idx]
	}
	return cut + "…"
}
