package account

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/delordemm1/matrimony-api/internal/config"
	"github.com/delordemm1/matrimony-api/internal/notification/templates"
	"github.com/delordemm1/matrimony-api/internal/token"
)

// Service defines the business logic of the account module.
type Service interface {
	// Local credentials and sessions
	Register(ctx context.Context, input RegisterInput, meta ClientMeta) (*AuthResult, error)
	Login(ctx context.Context, email, password string, meta ClientMeta) (*AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*AuthResult, error)
	Logout(ctx context.Context, refreshToken string) error
	Me(ctx context.Context, accountID string) (*Account, error)

	// Single-use token flows
	RequestPasswordReset(ctx context.Context, email string) error
	ConsumePasswordReset(ctx context.Context, rawToken, newPassword string) error
	RequestEmailVerification(ctx context.Context, accountID string) error
	ConsumeEmailVerification(ctx context.Context, rawToken string) error

	// Identity linking and OAuth
	ResolveOAuthIdentity(ctx context.Context, identity OAuthIdentity) (*Resolution, error)
	InitiateOAuthLogin(ctx context.Context, provider string) (redirectURL string, err error)
	HandleOAuthCallback(ctx context.Context, provider, state, code string, meta ClientMeta) (*AuthResult, error)

	// Maintenance
	PurgeExpiredTokens(ctx context.Context) (PurgeReport, error)
}

// TokenIssuer is the subset of token.Service the account flows rely on.
type TokenIssuer interface {
	IssueAccessToken(accountID, role string) (string, time.Time, error)
	IssueRefreshToken(ctx context.Context, accountID string, meta token.SessionMeta) (string, time.Time, error)
	VerifyRefreshToken(ctx context.Context, raw string) (accountID string, err error)
	RotateRefreshToken(ctx context.Context, raw string) (*token.Rotation, error)
	RevokeRefreshToken(ctx context.Context, raw string) error
	PurgeSessions(ctx context.Context) (int64, error)
}

// Notifier delivers the emails carrying single-use links.
type Notifier interface {
	SendPasswordReset(ctx context.Context, to string, data templates.PasswordResetData) error
	SendEmailVerification(ctx context.Context, to string, data templates.VerifyEmailData) error
}

// ProfileCreator creates the empty profile attached to a new account.
type ProfileCreator interface {
	CreateStub(ctx context.Context, accountID, displayName, photoURL string) error
}

// service implements the Service interface.
type service struct {
	repo      Repository
	tokens    TokenIssuer
	notifier  Notifier
	profiles  ProfileCreator
	providers map[AuthProvider]OAuthProvider
	logger    *slog.Logger
	config    *config.Config
	now       func() time.Time
}

// Config holds the dependencies for the account service.
type Config struct {
	Repo     Repository
	Tokens   TokenIssuer
	Notifier Notifier
	Profiles ProfileCreator
	Logger   *slog.Logger
	Config   *config.Config
	Now      func() time.Time

	// Providers overrides the OAuth providers built from Config. Optional.
	Providers map[AuthProvider]OAuthProvider
}

// NewService creates a new account service with the given dependencies.
func NewService(cfg *Config) (Service, error) {
	switch {
	case cfg.Repo == nil:
		return nil, errors.New("account: repository is required")
	case cfg.Tokens == nil:
		return nil, errors.New("account: token issuer is required")
	case cfg.Notifier == nil:
		return nil, errors.New("account: notifier is required")
	case cfg.Config == nil:
		return nil, errors.New("account: config is required")
	}

	s := &service{
		repo:      cfg.Repo,
		tokens:    cfg.Tokens,
		notifier:  cfg.Notifier,
		profiles:  cfg.Profiles,
		providers: cfg.Providers,
		logger:    cfg.Logger,
		config:    cfg.Config,
		now:       cfg.Now,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.providers == nil {
		providers, err := providersFromConfig(cfg.Config)
		if err != nil {
			return nil, err
		}
		s.providers = providers
	}
	return s, nil
}
