package account

import (
	"context"
	"errors"
	"log/slog"

	"github.com/delordemm1/matrimony-api/internal/token"
	"github.com/google/uuid"
)

// RegisterInput is a local sign-up request.
type RegisterInput struct {
	Email       string
	Password    string
	DisplayName string
}

// Register creates a local account, its profile stub and a first session, then
// sends the email verification link.
func (s *service) Register(ctx context.Context, input RegisterInput, meta ClientMeta) (*AuthResult, error) {
	email := normalizeEmail(input.Email)

	_, err := s.repo.FindByEmail(ctx, email)
	if err == nil {
		return nil, ErrEmailExists
	}
	if !errors.Is(err, ErrNotFound) {
		s.logger.ErrorContext(ctx, "failed to look up email for registration", "error", err)
		return nil, ErrInternal.WithCause(err)
	}

	hashed, err := hashPassword(input.Password)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to hash password", "error", err)
		return nil, ErrInternal.WithCause(err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, ErrInternal.WithCause(err)
	}
	a := &Account{
		ID:           id.String(),
		Email:        email,
		PasswordHash: &hashed,
		AuthProvider: AuthProviderLocal,
		Role:         RoleMember,
		CreatedAt:    s.now(),
	}
	if err := s.repo.Create(ctx, a); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, ErrEmailExists.WithCause(err)
		}
		s.logger.ErrorContext(ctx, "failed to create account", "error", err)
		return nil, ErrInternal.WithCause(err)
	}
	s.logger.InfoContext(ctx, "account registered", slog.String("account_id", a.ID))

	s.createProfileStub(ctx, a, ProfileHints{DisplayName: input.DisplayName})
	if err := s.sendVerification(ctx, a); err != nil {
		s.logger.WarnContext(ctx, "verification email not sent after registration",
			slog.String("account_id", a.ID), slog.String("error", err.Error()))
	}

	return s.issuePair(ctx, a, meta)
}

// Login authenticates with email and password.
func (s *service) Login(ctx context.Context, email, password string, meta ClientMeta) (*AuthResult, error) {
	a, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil && !errors.Is(err, ErrNotFound) {
		s.logger.ErrorContext(ctx, "failed to find account by email", "error", err)
		return nil, ErrInternal.WithCause(err)
	}
	if !checkPassword(a, password) {
		return nil, ErrInvalidCredentials
	}

	s.logger.InfoContext(ctx, "account logged in", slog.String("account_id", a.ID))
	return s.issuePair(ctx, a, meta)
}

// Refresh rotates the refresh token and issues a new access token. Token
// failures are reported as ErrUnauthorized. Rotation is the last step, so a
// failure before it leaves the presented token usable.
func (s *service) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	if refreshToken == "" {
		return nil, ErrUnauthorized
	}

	accountID, err := s.tokens.VerifyRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, s.unauthorized(ctx, "refresh rejected", err)
	}

	a, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, s.unauthorized(ctx, "refresh for unknown account", err)
		}
		s.logger.ErrorContext(ctx, "failed to load account for refresh", "error", err)
		return nil, ErrInternal.WithCause(err)
	}

	access, accessExp, err := s.tokens.IssueAccessToken(a.ID, a.Role)
	if err != nil {
		return nil, ErrInternal.WithCause(err)
	}

	rot, err := s.tokens.RotateRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, s.unauthorized(ctx, "refresh rejected", err)
	}
	return &AuthResult{
		Account:          a,
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     rot.Token,
		RefreshExpiresAt: rot.ExpiresAt,
	}, nil
}

// Logout ends the session behind the refresh token. It is idempotent: unknown,
// expired and malformed tokens succeed.
func (s *service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	err := s.tokens.RevokeRefreshToken(ctx, refreshToken)
	if err == nil || errors.Is(err, token.ErrInvalid) || errors.Is(err, token.ErrExpired) {
		return nil
	}
	s.logger.ErrorContext(ctx, "failed to revoke refresh token", "error", err)
	return ErrInternal.WithCause(err)
}

// Me returns the authenticated account.
func (s *service) Me(ctx context.Context, accountID string) (*Account, error) {
	a, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, ErrInternal.WithCause(err)
	}
	return a, nil
}

// unauthorized logs the real reason and returns the opaque 401.
func (s *service) unauthorized(ctx context.Context, msg string, err error) error {
	switch {
	case errors.Is(err, token.ErrReused):
		s.logger.WarnContext(ctx, msg, "reason", "reused", "error", err)
	case errors.Is(err, token.ErrExpired):
		s.logger.InfoContext(ctx, msg, "reason", "expired")
	case errors.Is(err, token.ErrInvalid), errors.Is(err, ErrNotFound):
		s.logger.InfoContext(ctx, msg, "reason", "invalid", "error", err)
	default:
		s.logger.ErrorContext(ctx, msg, "error", err)
		return ErrInternal.WithCause(err)
	}
	return ErrUnauthorized.WithCause(err)
}
