package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"

	"github.com/jordan-wright/email"

	"docshare/internal/config"
)

// smtpNotifier is a Notifier backed by plain SMTP. It is safe for concurrent
// use; each Send builds and ships an independent message.
type smtpNotifier struct {
	cfg config.SMTPConfig
}

// NewSMTP creates a Notifier from SMTP settings.
func NewSMTP(cfg config.SMTPConfig) (Notifier, error) {
	if cfg.Host == "" || cfg.Port == "" || cfg.From == "" {
		return nil, fmt.Errorf("smtp host, port, and from address are required")
	}
	return &smtpNotifier{cfg: cfg}, nil
}

// Send delivers one HTML message. The context is honored only up to the SMTP
// dial; the underlying client has no context plumbing.
func (n *smtpNotifier) Send(ctx context.Context, toEmail, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e := email.NewEmail()
	e.From = n.cfg.From
	e.To = []string{toEmail}
	e.Subject = subject
	e.HTML = []byte(htmlBody)

	addr := n.cfg.Host + ":" + n.cfg.Port
	var auth smtp.Auth
	if n.cfg.User != "" {
		auth = smtp.PlainAuth("", n.cfg.User, n.cfg.Password, n.cfg.Host)
	}
	tlsConfig := &tls.Config{ServerName: n.cfg.Host}

	switch {
	case n.cfg.UseTLS || n.cfg.Port == "465":
		return e.SendWithTLS(addr, auth, tlsConfig)
	case n.cfg.UseStartTLS:
		return e.SendWithStartTLS(addr, auth, tlsConfig)
	default:
		return e.Send(addr, auth)
	}
}
