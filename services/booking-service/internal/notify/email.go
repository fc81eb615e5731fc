package notify

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/cronosflow/cronosflow/services/booking-service/internal/model"
)

// EmailSender sends plain-text mail via unauthenticated SMTP
// (Mailpit-compatible for local development).
type EmailSender struct {
	addr string
	from string
}

func NewEmailSender(host, port, from string) *EmailSender {
	from = strings.TrimSpace(from)
	if from == "" {
		from = "no-reply@cronosflow.local"
	}
	return &EmailSender{
		addr: fmt.Sprintf("%s:%s", strings.TrimSpace(host), strings.TrimSpace(port)),
		from: from,
	}
}

func (s *EmailSender) ProviderID() string {
	return "smtp"
}

func (s *EmailSender) Send(_ context.Context, client model.Client, msg Message) error {
	if strings.TrimSpace(client.Email) == "" {
		return errors.New("client has no email address")
	}
	subject := msg.Subject
	if subject == "" {
		subject = "CronosFlow"
	}
	body := buildMessage(s.from, client.Email, subject, msg.Body)
	return smtp.SendMail(s.addr, nil, s.from, []string{client.Email}, []byte(body))
}

func buildMessage(from, to, subject, body string) string {
	// Minimal RFC 5322 message; enough for Mailpit and most relays.
	return fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n",
		from,
		to,
		subject,
		body,
	)
}

// NoopSender accepts everything without delivering. Used in dev so the
// reminder loop can be exercised without a gateway.
type NoopSender struct{}

func NewNoopSender() *NoopSender {
	return &NoopSender{}
}

func (s *NoopSender) ProviderID() string {
	return "noop"
}

func (s *NoopSender) Send(_ context.Context, _ model.Client, _ Message) error {
	return nil
}
