package account

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/delordemm1/matrimony-api/internal/token"
	"golang.org/x/crypto/bcrypt"
)

// dummyHash is compared against when no account matches so that unknown
// emails cost the same bcrypt work as wrong passwords.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("matrimony-dummy-password"), bcrypt.DefaultCost)

// hashPassword uses bcrypt to generate a hash from a plaintext password.
func hashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// checkPassword compares a plaintext password with the account's hash.
func checkPassword(a *Account, password string) bool {
	if a == nil || !a.HasPassword() {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(*a.PasswordHash), []byte(password)) == nil
}

// issuePair opens a new session for the account and returns both tokens.
func (s *service) issuePair(ctx context.Context, a *Account, meta ClientMeta) (*AuthResult, error) {
	access, accessExp, err := s.tokens.IssueAccessToken(a.ID, a.Role)
	if err != nil {
		return nil, ErrInternal.WithCause(err)
	}
	refresh, refreshExp, err := s.tokens.IssueRefreshToken(ctx, a.ID, token.SessionMeta{
		UserAgent: meta.UserAgent,
		IPAddress: meta.IPAddress,
	})
	if err != nil {
		return nil, ErrInternal.WithCause(err)
	}
	return &AuthResult{
		Account:          a,
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// frontendLink builds <FrontendURL>/<path>?token=<raw>.
func (s *service) frontendLink(path, raw string) string {
	return fmt.Sprintf("%s/%s?token=%s", s.config.App.FrontendURL, path, url.QueryEscape(raw))
}

// createProfileStub never fails the caller; it reports whether the stub exists.
func (s *service) createProfileStub(ctx context.Context, a *Account, hints ProfileHints) bool {
	if s.profiles == nil {
		return true
	}
	if err := s.profiles.CreateStub(ctx, a.ID, hints.DisplayName, hints.PictureURL); err != nil {
		s.logger.ErrorContext(ctx, "profile stub creation failed",
			slog.String("account_id", a.ID),
			slog.String("error", err.Error()),
		)
		return false
	}
	return true
}
