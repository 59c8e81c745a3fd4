package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/delordemm1/matrimony-api/internal/token"
	"golang.org/x/oauth2"
)

const oauthStateTTL = 5 * time.Minute

func (s *service) provider(name string) (OAuthProvider, AuthProvider, error) {
	p := AuthProvider(name)
	if p == AuthProviderLocal {
		return nil, "", ErrUnsupportedOAuthProvider
	}
	provider, ok := s.providers[p]
	if !ok {
		return nil, "", ErrUnsupportedOAuthProvider.WithDetail(fmt.Sprintf("unsupported oauth provider: %s", name))
	}
	return provider, p, nil
}

// InitiateOAuthLogin stores a state with its PKCE verifier and returns the
// provider's authorization URL.
func (s *service) InitiateOAuthLogin(ctx context.Context, providerName string) (string, error) {
	provider, p, err := s.provider(providerName)
	if err != nil {
		return "", err
	}

	state, _, err := token.NewOpaque()
	if err != nil {
		return "", ErrInternal.WithCause(fmt.Errorf("failed to generate oauth state: %w", err))
	}
	verifier := oauth2.GenerateVerifier()
	now := s.now()
	if err := s.repo.InsertOAuthState(ctx, &OAuthState{
		State:     state,
		Provider:  p,
		Verifier:  verifier,
		ExpiresAt: now.Add(oauthStateTTL),
		CreatedAt: now,
	}); err != nil {
		return "", ErrInternal.WithCause(fmt.Errorf("failed to store oauth state: %w", err))
	}

	return provider.AuthCodeURL(state, verifier), nil
}

// HandleOAuthCallback consumes the state, exchanges the code, resolves the
// identity to an account and opens a session for it.
func (s *service) HandleOAuthCallback(ctx context.Context, providerName, state, code string, meta ClientMeta) (*AuthResult, error) {
	provider, p, err := s.provider(providerName)
	if err != nil {
		return nil, err
	}

	stored, err := s.repo.TakeOAuthState(ctx, state)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.WarnContext(ctx, "oauth state not found", slog.String("provider", providerName))
			return nil, ErrOAuthStateInvalid.WithCause(err)
		}
		return nil, ErrInternal.WithCause(err)
	}
	if stored.Provider != p {
		return nil, ErrOAuthStateInvalid
	}
	if !s.now().Before(stored.ExpiresAt) {
		return nil, ErrOAuthStateExpired
	}

	identity, err := provider.Exchange(ctx, code, stored.Verifier)
	if err != nil {
		s.logger.WarnContext(ctx, "oauth exchange failed", slog.String("provider", providerName), slog.String("error", err.Error()))
		return nil, ErrOAuthExchangeFailed.WithCause(err)
	}

	res, err := s.ResolveOAuthIdentity(ctx, *identity)
	if err != nil {
		return nil, err
	}
	if res.Degraded {
		s.logger.WarnContext(ctx, "oauth sign-in completed without profile stub", slog.String("account_id", res.Account.ID))
	}

	s.logger.InfoContext(ctx, "account logged in via oauth",
		slog.String("provider", providerName),
		slog.String("account_id", res.Account.ID),
		slog.String("outcome", string(res.Outcome)),
	)
	return s.issuePair(ctx, res.Account, meta)
}

// PurgeExpiredTokens removes expired single-use tokens, OAuth states and
// sessions. Meant for a periodic job.
func (s *service) PurgeExpiredTokens(ctx context.Context) (PurgeReport, error) {
	var report PurgeReport
	now := s.now()

	n, err := s.repo.DeleteExpiredActionTokens(ctx, now)
	if err != nil {
		return report, ErrInternal.WithCause(err)
	}
	report.ActionTokens = n

	if n, err = s.repo.DeleteExpiredOAuthStates(ctx, now); err != nil {
		return report, ErrInternal.WithCause(err)
	}
	report.OAuthStates = n

	if n, err = s.tokens.PurgeSessions(ctx); err != nil {
		return report, ErrInternal.WithCause(err)
	}
	report.Sessions = n

	s.logger.InfoContext(ctx, "expired tokens purged",
		slog.Int64("action_tokens", report.ActionTokens),
		slog.Int64("oauth_states", report.OAuthStates),
		slog.Int64("sessions", report.Sessions),
	)
	return report, nil
}
