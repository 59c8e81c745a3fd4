package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/delordemm1/matrimony-api/internal/notification/templates"
)

// Message is a rendered email ready for delivery.
type Message struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// Sender delivers a single message or fails.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

// Service renders the account emails and hands them to a Sender.
type Service struct {
	log    *slog.Logger
	engine *templates.Engine
	sender Sender
}

// NewService creates a new notification service.
func NewService(log *slog.Logger, engine *templates.Engine, sender Sender) *Service {
	return &Service{
		log:    log,
		engine: engine,
		sender: sender,
	}
}

// SendPasswordReset emails the reset link.
func (s *Service) SendPasswordReset(ctx context.Context, to string, data templates.PasswordResetData) error {
	return deliver(ctx, s, templates.PasswordReset, to, data)
}

// SendEmailVerification emails the verification link.
func (s *Service) SendEmailVerification(ctx context.Context, to string, data templates.VerifyEmailData) error {
	return deliver(ctx, s, templates.VerifyEmail, to, data)
}

func deliver[T any](ctx context.Context, s *Service, h templates.Handle[T], to string, data T) error {
	r, err := templates.Render(ctx, s.engine, h, data)
	if err != nil {
		return fmt.Errorf("render %s: %w", h.ID(), err)
	}

	s.log.InfoContext(ctx, "dispatching email notification", "template", h.ID(), "recipient", to)
	if err := s.sender.Send(ctx, Message{
		To:       to,
		Subject:  r.Subject,
		TextBody: r.EmailText,
		HTMLBody: r.EmailHTML,
	}); err != nil {
		return fmt.Errorf("send %s: %w", h.ID(), err)
	}
	return nil
}

// LogSender only logs the envelope. Used when no SMTP host is configured.
type LogSender struct {
	Log *slog.Logger
}

func (l LogSender) Send(ctx context.Context, m Message) error {
	l.Log.InfoContext(ctx, "email delivery disabled, message dropped", "to", m.To, "subject", m.Subject)
	return nil
}
