package notify

import "context"

// Package notify delivers share links and one-time codes by email. The core
// services receive a Notifier at construction; delivery is best-effort and
// failures never roll back the triggering operation.

// Notifier sends a single message to one recipient.
type Notifier interface {
	Send(ctx context.Context, toEmail, subject, htmlBody string) error
}

// Noop is a Notifier that drops every message. Useful in tests and in
// deployments without SMTP configured.
type Noop struct{}

func (Noop) Send(ctx context.Context, toEmail, subject, htmlBody string) error {
	return nil
}
