package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/delordemm1/matrimony-api/internal/notification/templates"
)

// RequestPasswordReset emails a reset link when the address belongs to an
// account. Unknown addresses succeed without creating anything.
func (s *service) RequestPasswordReset(ctx context.Context, email string) error {
	a, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.InfoContext(ctx, "password reset requested for unknown email")
			return nil
		}
		s.logger.ErrorContext(ctx, "failed to find account for password reset", "error", err)
		return ErrInternal.WithCause(err)
	}

	ttl := s.config.Tokens.PasswordResetTTL
	raw, err := s.issueActionToken(ctx, a.ID, PurposePasswordReset, ttl)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to issue password reset token", "error", err)
		return ErrInternal.WithCause(err)
	}

	// The token stays valid when delivery fails; the user can ask again.
	if err := s.notifier.SendPasswordReset(ctx, a.Email, templates.PasswordResetData{
		Email:     a.Email,
		ResetURL:  s.frontendLink("reset-password", raw),
		ExpiresIn: humanDuration(ttl),
	}); err != nil {
		s.logger.ErrorContext(ctx, "failed to send password reset email",
			slog.String("account_id", a.ID), slog.String("error", err.Error()))
	}
	return nil
}

// ConsumePasswordReset sets a new password and signs the account out everywhere.
func (s *service) ConsumePasswordReset(ctx context.Context, rawToken, newPassword string) error {
	t, err := s.lookupActionToken(ctx, rawToken, PurposePasswordReset)
	if err != nil {
		return s.finishTokenFlow(ctx, PurposePasswordReset, err)
	}

	hashed, err := hashPassword(newPassword)
	if err != nil {
		return ErrInternal.WithCause(err)
	}

	// The token is only spent if the password and the session revocation land too.
	var revoked int64
	err = s.repo.WithinTx(ctx, func(tx Repository) error {
		if err := s.claimActionToken(ctx, tx, t); err != nil {
			return err
		}
		if err := tx.UpdatePassword(ctx, t.AccountID, hashed); err != nil {
			return ErrInternal.WithCause(fmt.Errorf("update password: %w", err))
		}
		n, err := tx.RevokeAllSessions(ctx, t.AccountID, s.now())
		if err != nil {
			return ErrInternal.WithCause(fmt.Errorf("revoke sessions: %w", err))
		}
		revoked = n
		return nil
	})
	if err != nil {
		return s.finishTokenFlow(ctx, PurposePasswordReset, err)
	}

	s.logger.InfoContext(ctx, "password reset",
		slog.String("account_id", t.AccountID),
		slog.Int64("sessions_revoked", revoked),
	)
	return nil
}
