package notification

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/delordemm1/matrimony-api/internal/notification/templates"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	sent []Message
	err  error
}

func (r *recordingSender) Send(_ context.Context, m Message) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, m)
	return nil
}

func newTestService(sender Sender) *Service {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(log, templates.NewEngine(templates.Config{}, log), sender)
}

func TestService_SendPasswordReset(t *testing.T) {
	sender := &recordingSender{}
	svc := newTestService(sender)

	err := svc.SendPasswordReset(context.Background(), "a@x.com", templates.PasswordResetData{
		Email:     "a@x.com",
		ResetURL:  "http://localhost:3000/reset-password?token=raw",
		ExpiresIn: "1 hour",
	})
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)

	m := sender.sent[0]
	assert.Equal(t, "a@x.com", m.To)
	assert.Equal(t, "Reset your password", m.Subject)
	assert.Contains(t, m.TextBody, "reset-password?token=raw")
	assert.Contains(t, m.HTMLBody, "reset-password?token=raw")
}

func TestService_SendFailureIsReturned(t *testing.T) {
	svc := newTestService(&recordingSender{err: errors.New("smtp down")})

	err := svc.SendEmailVerification(context.Background(), "a@x.com", templates.VerifyEmailData{Email: "a@x.com"})
	assert.ErrorContains(t, err, "smtp down")
}

func TestBuildMessage(t *testing.T) {
	email := buildMessage("noreply@example.com", Message{
		To:       "a@x.com",
		Subject:  "hi",
		TextBody: "plain",
		HTMLBody: "<p>html</p>",
	})
	require.NoError(t, email.Error)

	raw := email.GetMessage()
	assert.Contains(t, raw, "Subject: hi")
	assert.Contains(t, raw, "plain")
	assert.Contains(t, raw, "<p>html</p>")
	assert.Contains(t, raw, "multipart/alternative")

	htmlOnly := buildMessage("noreply@example.com", Message{To: "a@x.com", Subject: "hi", HTMLBody: "<p>x</p>"})
	require.NoError(t, htmlOnly.Error)
	assert.Contains(t, htmlOnly.GetMessage(), "text/html")
}

func TestLogSender(t *testing.T) {
	s := LogSender{Log: slog.New(slog.NewTextHandler(io.Discard, nil))}
	assert.NoError(t, s.Send(context.Background(), Message{To: "a@x.com"}))
}
