package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"

	"github.com/jordan-wright/email"
)

// SMTPConfig holds the mail server settings.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	To       []string
}

type sendFunc func(e *email.Email, addr string, auth smtp.Auth) error

// EmailNotifier sends one plain text email per reminder.
type EmailNotifier struct {
	cfg  SMTPConfig
	send sendFunc
}

func NewEmailNotifier(cfg SMTPConfig) *EmailNotifier {
	return &EmailNotifier{
		cfg: cfg,
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
	}
}

func (n *EmailNotifier) Notify(ctx context.Context, r Reminder) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e := email.NewEmail()
	e.From = n.cfg.From
	e.To = n.cfg.To
	e.Subject = r.Subject()
	e.Text = []byte(r.Body())

	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}
	addr := net.JoinHostPort(n.cfg.Host, n.cfg.Port)
	if err := n.send(e, addr, auth); err != nil {
		return fmt.Errorf("send reminder for %s %s: %w", r.Kind, r.ID, err)
	}
	slog.InfoContext(ctx, "Reminder email sent", "to", n.cfg.To, "subject", e.Subject)
	return nil
}
