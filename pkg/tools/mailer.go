package tools

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"

	"github.com/huddlehq/huddle/pkg/utils"
)

// Mailer delivers follow-up emails composed by the email tools.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogMailer logs emails instead of delivering them. It is the default when
// no SMTP relay is configured.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer() *LogMailer {
	return &LogMailer{logger: utils.GetLogger()}
}

func (m *LogMailer) Send(_ context.Context, to, subject, body string) error {
	m.logger.Info("email (not delivered, no SMTP relay configured)",
		"to", to, "subject", subject, "bytes", len(body))
	return nil
}

// SMTPMailer delivers mail through a plain SMTP relay.
type SMTPMailer struct {
	Addr string // host:port
	From string
}

func NewSMTPMailer(addr, from string) *SMTPMailer {
	return &SMTPMailer{Addr: addr, From: from}
}

func (m *SMTPMailer) Send(_ context.Context, to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n", m.From, to, subject, body)
	if err := smtp.SendMail(m.Addr, nil, m.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail via %s: %w", m.Addr, err)
	}
	return nil
}
