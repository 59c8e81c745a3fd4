package account

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
)

// maxResolveAttempts bounds retries after losing a create or link race.
const maxResolveAttempts = 3

// errResolveRace means another request changed the rows we looked at; the
// lookup steps are run again.
var errResolveRace = errors.New("account: identity resolution raced")

// ResolveOAuthIdentity maps a provider identity to exactly one account:
//  1. an account already linked to (provider, providerID) is returned as is;
//  2. otherwise an account with the same email is linked, but only when the
//     provider verified the email and linking is enabled;
//  3. otherwise a new account is created with no password.
func (s *service) ResolveOAuthIdentity(ctx context.Context, identity OAuthIdentity) (*Resolution, error) {
	identity.Email = normalizeEmail(identity.Email)
	switch {
	case identity.Provider == "" || identity.Provider == AuthProviderLocal || identity.ProviderID == "":
		return nil, ErrUnsupportedOAuthProvider.WithDetail("a provider identity is required")
	case identity.Email == "":
		return nil, ErrOAuthEmailMissing
	}

	for attempt := 1; attempt <= maxResolveAttempts; attempt++ {
		res, err := s.resolveOnce(ctx, identity)
		if errors.Is(err, errResolveRace) {
			s.logger.InfoContext(ctx, "identity resolution raced, retrying",
				slog.String("provider", string(identity.Provider)),
				slog.Int("attempt", attempt),
			)
			continue
		}
		return res, err
	}
	return nil, ErrConflict
}

func (s *service) resolveOnce(ctx context.Context, identity OAuthIdentity) (*Resolution, error) {
	// 1. Already linked.
	a, err := s.repo.FindByProvider(ctx, identity.Provider, identity.ProviderID)
	switch {
	case err == nil:
		return &Resolution{Account: a, Outcome: OutcomeExisting}, nil
	case !errors.Is(err, ErrNotFound):
		return nil, ErrInternal.WithCause(err)
	}

	// 2. Same email.
	a, err = s.repo.FindByEmail(ctx, identity.Email)
	switch {
	case err == nil:
		return s.link(ctx, a, identity)
	case !errors.Is(err, ErrNotFound):
		return nil, ErrInternal.WithCause(err)
	}

	// 3. New account.
	return s.createFromIdentity(ctx, identity)
}

func (s *service) link(ctx context.Context, a *Account, identity OAuthIdentity) (*Resolution, error) {
	if a.LinkedTo(identity.Provider, identity.ProviderID) {
		// Linked by a concurrent request since the provider lookup.
		return &Resolution{Account: a, Outcome: OutcomeExisting}, nil
	}
	if a.ProviderID != nil {
		s.logger.WarnContext(ctx, "email already linked to another provider identity",
			slog.String("account_id", a.ID),
			slog.String("provider", string(identity.Provider)),
		)
		return nil, ErrIdentityConflict
	}
	// Both sides must have proven control of the address. An unverified local
	// account may have been registered by someone else, and linking would keep
	// their password.
	if !identity.EmailVerified || !a.EmailVerified || !s.config.OAuth.AllowEmailLinking {
		s.logger.WarnContext(ctx, "refusing to link provider identity by email",
			slog.String("account_id", a.ID),
			slog.String("provider", string(identity.Provider)),
			slog.Bool("email_verified", identity.EmailVerified),
			slog.Bool("account_email_verified", a.EmailVerified),
		)
		return nil, ErrOAuthLinkNotAllowed
	}

	err := s.repo.LinkProvider(ctx, a.ID, identity.Provider, identity.ProviderID, identity.EmailVerified)
	if errors.Is(err, errStale) {
		return nil, errResolveRace
	}
	if err != nil {
		return nil, ErrInternal.WithCause(err)
	}

	providerID := identity.ProviderID
	a.AuthProvider = identity.Provider
	a.ProviderID = &providerID
	a.EmailVerified = a.EmailVerified || identity.EmailVerified

	s.logger.InfoContext(ctx, "provider identity linked",
		slog.String("account_id", a.ID),
		slog.String("provider", string(identity.Provider)),
	)
	return &Resolution{Account: a, Outcome: OutcomeLinked}, nil
}

func (s *service) createFromIdentity(ctx context.Context, identity OAuthIdentity) (*Resolution, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, ErrInternal.WithCause(err)
	}
	providerID := identity.ProviderID
	a := &Account{
		ID:            id.String(),
		Email:         identity.Email,
		AuthProvider:  identity.Provider,
		ProviderID:    &providerID,
		Role:          RoleMember,
		EmailVerified: identity.EmailVerified,
		CreatedAt:     s.now(),
	}
	if err := s.repo.Create(ctx, a); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, errResolveRace
		}
		return nil, ErrInternal.WithCause(err)
	}
	s.logger.InfoContext(ctx, "account created from provider identity",
		slog.String("account_id", a.ID),
		slog.String("provider", string(identity.Provider)),
	)

	res := &Resolution{Account: a, Outcome: OutcomeCreated}
	res.Degraded = !s.createProfileStub(ctx, a, identity.Profile)
	return res, nil
}
