// Package token issues and verifies access tokens, rotating refresh tokens and
// the opaque single-use tokens used by reset and verification links.
package token

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/delordemm1/matrimony-api/internal/session"
	"github.com/golang-jwt/jwt/v5"
)

const (
	audienceAccess  = "access"
	audienceRefresh = "refresh"
)

// Config carries the signing material and lifetimes. Build it once at startup
// and hand it to NewService.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string

	// Now overrides the clock. Nil means time.Now.
	Now func() time.Time
}

// Service owns token issuance. Access verification touches no storage; refresh
// tokens are backed by one session row per login.
type Service struct {
	cfg      Config
	sessions session.Store
	logger   *slog.Logger
	now      func() time.Time
}

// NewService validates cfg and returns a ready Service.
func NewService(cfg Config, sessions session.Store, logger *slog.Logger) (*Service, error) {
	if len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("token: access and refresh secrets are required")
	}
	if string(cfg.AccessSecret) == string(cfg.RefreshSecret) {
		return nil, errors.New("token: access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, fmt.Errorf("token: invalid ttl (access=%s refresh=%s)", cfg.AccessTTL, cfg.RefreshTTL)
	}
	if sessions == nil {
		return nil, errors.New("token: session store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{cfg: cfg, sessions: sessions, logger: logger, now: now}, nil
}

func (s *Service) parser(audience string) *jwt.Parser {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.cfg.Issuer))
	}
	return jwt.NewParser(opts...)
}

// classify folds jwt parse errors into ErrExpired or ErrInvalid.
func classify(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return ErrExpired
	}
	return fmt.Errorf("%w: %w", ErrInvalid, err)
}
