package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/delordemm1/matrimony-api/internal/notification/templates"
)

// RequestEmailVerification emails a fresh verification link. Already verified
// accounts are a no-op.
func (s *service) RequestEmailVerification(ctx context.Context, accountID string) error {
	a, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return ErrInternal.WithCause(err)
	}
	if a.EmailVerified {
		return nil
	}
	if err := s.sendVerification(ctx, a); err != nil {
		s.logger.ErrorContext(ctx, "failed to send verification email",
			slog.String("account_id", a.ID), slog.String("error", err.Error()))
		if errors.Is(err, ErrInternal) {
			return err
		}
	}
	return nil
}

// ConsumeEmailVerification marks the email of the token's account verified.
func (s *service) ConsumeEmailVerification(ctx context.Context, rawToken string) error {
	t, err := s.lookupActionToken(ctx, rawToken, PurposeEmailVerify)
	if err != nil {
		return s.finishTokenFlow(ctx, PurposeEmailVerify, err)
	}
	err = s.repo.WithinTx(ctx, func(tx Repository) error {
		if err := s.claimActionToken(ctx, tx, t); err != nil {
			return err
		}
		if err := tx.MarkEmailVerified(ctx, t.AccountID); err != nil {
			return ErrInternal.WithCause(fmt.Errorf("mark email verified: %w", err))
		}
		return nil
	})
	if err != nil {
		return s.finishTokenFlow(ctx, PurposeEmailVerify, err)
	}
	s.logger.InfoContext(ctx, "email verified", slog.String("account_id", t.AccountID))
	return nil
}

// sendVerification issues a token and mails it. Token storage failures come
// back as ErrInternal; delivery failures are returned unwrapped.
func (s *service) sendVerification(ctx context.Context, a *Account) error {
	ttl := s.config.Tokens.EmailVerifyTTL
	raw, err := s.issueActionToken(ctx, a.ID, PurposeEmailVerify, ttl)
	if err != nil {
		return ErrInternal.WithCause(err)
	}
	return s.notifier.SendEmailVerification(ctx, a.Email, templates.VerifyEmailData{
		Email:     a.Email,
		VerifyURL: s.frontendLink("verify-email", raw),
		ExpiresIn: humanDuration(ttl),
	})
}

// humanDuration renders whole hours or minutes, e.g. "1 hour", "24 hours", "30 minutes".
func humanDuration(d time.Duration) string {
	plural := func(n int64, unit string) string {
		if n == 1 {
			return fmt.Sprintf("1 %s", unit)
		}
		return fmt.Sprintf("%d %ss", n, unit)
	}
	if d >= time.Hour && d%time.Hour == 0 {
		return plural(int64(d/time.Hour), "hour")
	}
	return plural(int64(d/time.Minute), "minute")
}
