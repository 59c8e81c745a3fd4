package account

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/delordemm1/matrimony-api/internal/token"
)

// issueActionToken replaces any pending token of the same purpose and returns
// the raw value for delivery.
func (s *service) issueActionToken(ctx context.Context, accountID string, purpose TokenPurpose, ttl time.Duration) (string, error) {
	raw, hash, err := token.NewOpaque()
	if err != nil {
		return "", err
	}
	if err := s.repo.DeletePendingActionTokens(ctx, accountID, purpose); err != nil {
		return "", err
	}
	now := s.now()
	if err := s.repo.CreateActionToken(ctx, &ActionToken{
		AccountID: accountID,
		Purpose:   purpose,
		TokenHash: hash,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}); err != nil {
		return "", err
	}
	return raw, nil
}

// lookupActionToken finds the token for raw and reports why it cannot be used.
func (s *service) lookupActionToken(ctx context.Context, raw string, purpose TokenPurpose) (*ActionToken, error) {
	if raw == "" {
		return nil, ErrInvalidToken.WithCause(token.ErrInvalid)
	}

	t, err := s.repo.FindActionTokenByHash(ctx, token.Hash(raw), purpose)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidToken.WithCause(token.ErrInvalid)
		}
		return nil, ErrInternal.WithCause(err)
	}

	switch {
	case t.ConsumedAt != nil:
		return nil, ErrInvalidToken.WithCause(token.ErrAlreadyUsed)
	case !s.now().Before(t.ExpiresAt):
		return nil, ErrInvalidToken.WithCause(token.ErrExpired)
	}
	return t, nil
}

// claimActionToken atomically consumes t through repo, which is normally bound
// to the transaction applying the token's effect. Of concurrent claims exactly
// one wins.
func (s *service) claimActionToken(ctx context.Context, repo Repository, t *ActionToken) error {
	err := repo.ConsumeActionToken(ctx, t.ID, s.now())
	if errors.Is(err, errStale) {
		return ErrInvalidToken.WithCause(token.ErrAlreadyUsed)
	}
	if err != nil {
		return ErrInternal.WithCause(err)
	}
	return nil
}

// finishTokenFlow logs a failed consume transaction and maps it to the
// error returned to the caller.
func (s *service) finishTokenFlow(ctx context.Context, purpose TokenPurpose, err error) error {
	if errors.Is(err, ErrInvalidToken) {
		s.logTokenRejected(ctx, purpose, err)
		return err
	}
	s.logger.ErrorContext(ctx, "single-use token flow failed",
		slog.String("purpose", string(purpose)),
		slog.String("error", err.Error()),
	)
	if errors.Is(err, ErrInternal) {
		return err
	}
	return ErrInternal.WithCause(err)
}

func (s *service) logTokenRejected(ctx context.Context, purpose TokenPurpose, err error) {
	reason := "invalid"
	switch {
	case errors.Is(err, token.ErrExpired):
		reason = "expired"
	case errors.Is(err, token.ErrAlreadyUsed):
		reason = "already_used"
	}
	s.logger.InfoContext(ctx, "single-use token rejected",
		slog.String("purpose", string(purpose)),
		slog.String("reason", reason),
	)
}
