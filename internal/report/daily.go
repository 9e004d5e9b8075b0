// Package report genera el resumen diario de actividad y lo distribuye
// por consola y email.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/alejandrodnm/polycopy/internal/domain"
	"github.com/alejandrodnm/polycopy/internal/ports"
)

// DefaultSchedule dispara el informe cada mañana, cubriendo el día anterior.
const DefaultSchedule = "0 9 * * *"

// SummaryPrinter imprime el resumen en la salida local.
type SummaryPrinter interface {
	PrintDailySummary(domain.DailySummary)
}

// Reporter agrega las órdenes del día desde el audit store y envía el
// informe. El envío por email es best-effort.
type Reporter struct {
	store    ports.AuditStore
	printer  SummaryPrinter
	alerts   ports.AlertSender
	schedule string
	cron     *cron.Cron
}

// NewReporter crea el reporter. Con schedule vacío usa DefaultSchedule.
func NewReporter(store ports.AuditStore, printer SummaryPrinter, alerts ports.AlertSender, schedule string) *Reporter {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	return &Reporter{
		store:    store,
		printer:  printer,
		alerts:   alerts,
		schedule: schedule,
		cron:     cron.New(cron.WithLocation(time.UTC)),
	}
}

// Start programa el informe diario. El job cubre siempre el día natural
// anterior al momento de disparo.
func (r *Reporter) Start() error {
	_, err := r.cron.AddFunc(r.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		day := time.Now().UTC().AddDate(0, 0, -1)
		if err := r.RunOnce(ctx, day); err != nil {
			slog.Error("daily report failed", "err", err)
		}
	})
	if err != nil {
		return fmt.Errorf("report.Start: schedule %q: %w", r.schedule, err)
	}
	r.cron.Start()
	slog.Info("daily report scheduled", "cron", r.schedule)
	return nil
}

// Stop detiene el scheduler y espera a que termine el job en curso.
func (r *Reporter) Stop() {
	<-r.cron.Stop().Done()
}

// RunOnce genera y distribuye el informe del día dado.
func (r *Reporter) RunOnce(ctx context.Context, day time.Time) error {
	summary, err := r.store.GetDailySummary(ctx, day)
	if err != nil {
		return fmt.Errorf("report.RunOnce: summary: %w", err)
	}

	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	history, err := r.store.GetOrderHistory(ctx, dayStart, dayStart.Add(24*time.Hour))
	if err != nil {
		return fmt.Errorf("report.RunOnce: history: %w", err)
	}

	r.printer.PrintDailySummary(summary)

	subject := fmt.Sprintf("Informe diario %s", summary.Day.Format("2006-01-02"))
	r.alerts.SendAlert(subject, formatReport(summary, history))
	return nil
}

// formatReport construye el cuerpo de texto plano del email.
func formatReport(s domain.DailySummary, history []domain.OrderRecord) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Resumen de copy-trading — %s\n\n", s.Day.Format("2006-01-02"))
	fmt.Fprintf(&b, "Net trades procesados: %d\n", s.Orders)
	fmt.Fprintf(&b, "Órdenes enviadas:      %d\n", s.Submitted)
	fmt.Fprintf(&b, "Rechazadas:            %d\n", s.Rejected)
	fmt.Fprintf(&b, "Comprado:              $%.2f\n", s.BuyUSD)
	fmt.Fprintf(&b, "Vendido:               $%.2f\n", s.SellUSD)

	if len(history) == 0 {
		b.WriteString("\nSin actividad.\n")
		return b.String()
	}

	b.WriteString("\nÓrdenes:\n")
	for _, rec := range history {
		switch {
		case rec.Submitted:
			fmt.Fprintf(&b, "  %s %s %.0f @ %.2f — %s (%s) [%s]\n",
				rec.RecordedAt.UTC().Format("15:04"), rec.Side, rec.Shares,
				rec.Price, rec.Title, rec.Outcome, rec.Status)
		case rec.Rejected != "":
			fmt.Fprintf(&b, "  %s %s — %s (%s) RECHAZADA: %s\n",
				rec.RecordedAt.UTC().Format("15:04"), rec.Side,
				rec.Title, rec.Outcome, rec.Rejected)
		default:
			fmt.Fprintf(&b, "  %s %s — %s (%s) ERROR: %s\n",
				rec.RecordedAt.UTC().Format("15:04"), rec.Side,
				rec.Title, rec.Outcome, rec.Error)
		}
	}
	return b.String()
}
