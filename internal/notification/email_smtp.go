package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/delordemm1/matrimony-api/internal/config"
	mail "github.com/xhit/go-simple-mail/v2"
)

// smtpEmailSender is the concrete implementation for sending emails via SMTP.
type smtpEmailSender struct {
	client *mail.SMTPServer
	from   string
	log    *slog.Logger
}

// NewSMTPEmailSender creates a new sender that uses an SMTP server.
func NewSMTPEmailSender(cfg config.SMTPConfig, log *slog.Logger) Sender {
	server := mail.NewSMTPClient()
	server.Host = cfg.Host
	server.Port = cfg.Port
	server.Username = cfg.Username
	server.Password = cfg.Password
	server.Encryption = mail.EncryptionSTARTTLS
	server.KeepAlive = false
	server.ConnectTimeout = 10 * time.Second
	server.SendTimeout = 10 * time.Second

	return &smtpEmailSender{
		client: server,
		from:   cfg.From,
		log:    log,
	}
}

func (s *smtpEmailSender) Send(ctx context.Context, m Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	smtpClient, err := s.client.Connect()
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}

	email := buildMessage(s.from, m)
	if email.Error != nil {
		return fmt.Errorf("failed to build email: %w", email.Error)
	}
	if err = email.Send(smtpClient); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.log.InfoContext(ctx, "email sent via smtp", "to", m.To)
	return nil
}

// buildMessage prefers a plain text body with an HTML alternative.
func buildMessage(from string, m Message) *mail.Email {
	email := mail.NewMSG()
	email.SetFrom(from).AddTo(m.To).SetSubject(m.Subject)
	switch {
	case m.TextBody != "" && m.HTMLBody != "":
		email.SetBody(mail.TextPlain, m.TextBody)
		email.AddAlternative(mail.TextHTML, m.HTMLBody)
	case m.HTMLBody != "":
		email.SetBody(mail.TextHTML, m.HTMLBody)
	default:
		email.SetBody(mail.TextPlain, m.TextBody)
	}
	return email
}
