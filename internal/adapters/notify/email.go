package notify

// email.go — alertas fuera de banda vía SMTP.
//
// Best-effort por diseño: un fallo de SMTP se loguea y devuelve false,
// nunca interrumpe el camino de trading. Puerto 465 → SSL implícito,
// cualquier otro → STARTTLS.

import (
	"log/slog"

	"github.com/wneessen/go-mail"
)

// EmailConfig es la configuración SMTP del canal de alertas.
type EmailConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	To       string
}

// enabled indica si hay configuración suficiente para enviar.
func (c EmailConfig) enabled() bool {
	return c.Host != "" && c.User != "" && c.Password != "" && c.To != ""
}

// Email implementa ports.AlertSender sobre SMTP.
type Email struct {
	cfg EmailConfig
}

// NewEmail crea el canal de alertas. Con configuración incompleta los
// envíos se degradan a no-ops logueados.
func NewEmail(cfg EmailConfig) *Email {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &Email{cfg: cfg}
}

// SendAlert envía un email de texto plano. Devuelve false si falta
// configuración o el envío falla.
func (e *Email) SendAlert(subject, body string) bool {
	if !e.cfg.enabled() {
		slog.Warn("email alert skipped, smtp not configured", "subject", subject)
		return false
	}

	msg := mail.NewMsg()
	if err := msg.From(e.cfg.User); err != nil {
		slog.Warn("email alert failed", "err", err)
		return false
	}
	if err := msg.To(e.cfg.To); err != nil {
		slog.Warn("email alert failed", "err", err)
		return false
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	opts := []mail.Option{
		mail.WithPort(e.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(e.cfg.User),
		mail.WithPassword(e.cfg.Password),
	}
	if e.cfg.Port == 465 {
		opts = append(opts, mail.WithSSLPort(false))
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}

	client, err := mail.NewClient(e.cfg.Host, opts...)
	if err != nil {
		slog.Warn("email alert failed", "err", err)
		return false
	}

	if err := client.DialAndSend(msg); err != nil {
		slog.Warn("email alert failed", "subject", subject, "err", err)
		return false
	}

	slog.Info("email alert sent", "to", e.cfg.To, "subject", subject)
	return true
}
