package token

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/delordemm1/matrimony-api/internal/session"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// RefreshClaims is the payload of a refresh token. SessionID ties the token to
// the session row holding its hash.
type RefreshClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// SessionMeta describes the client a session was issued to.
type SessionMeta struct {
	UserAgent string
	IPAddress string
}

// Rotation is the outcome of a successful refresh.
type Rotation struct {
	AccountID string
	Token     string
	ExpiresAt time.Time
}

func (s *Service) signRefresh(accountID, sessionID string, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(s.cfg.RefreshTTL)
	claims := RefreshClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   accountID,
			Issuer:    s.cfg.Issuer,
			Audience:  jwt.ClaimStrings{audienceRefresh},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.RefreshSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return signed, expiresAt, nil
}

// IssueRefreshToken opens a new session for the account and returns the raw
// token. Only its hash is stored.
func (s *Service) IssueRefreshToken(ctx context.Context, accountID string, meta SessionMeta) (string, time.Time, error) {
	now := s.now().Truncate(time.Second)
	sid, err := uuid.NewV7()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("session id: %w", err)
	}

	raw, expiresAt, err := s.signRefresh(accountID, sid.String(), now)
	if err != nil {
		return "", time.Time{}, err
	}

	sess := &session.Session{
		ID:               sid.String(),
		AccountID:        accountID,
		RefreshTokenHash: Hash(raw),
		UserAgent:        optional(meta.UserAgent),
		IPAddress:        optional(meta.IPAddress),
		IssuedAt:         now,
		ExpiresAt:        expiresAt,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return "", time.Time{}, fmt.Errorf("create session: %w", err)
	}
	return raw, expiresAt, nil
}

// VerifyRefreshToken returns the account id the token belongs to. Presenting a
// token that has since been rotated revokes its session and fails with ErrReused.
func (s *Service) VerifyRefreshToken(ctx context.Context, raw string) (string, error) {
	claims, _, err := s.verifyRefresh(ctx, raw)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// RotateRefreshToken verifies raw and atomically replaces it with a new token
// on the same session. Of two concurrent rotations of one token exactly one
// wins; the other is treated as reuse.
func (s *Service) RotateRefreshToken(ctx context.Context, raw string) (*Rotation, error) {
	claims, sess, err := s.verifyRefresh(ctx, raw)
	if err != nil {
		return nil, err
	}

	now := s.now().Truncate(time.Second)
	next, expiresAt, err := s.signRefresh(claims.Subject, sess.ID, now)
	if err != nil {
		return nil, err
	}

	err = s.sessions.Rotate(ctx, sess.ID, sess.RefreshTokenHash, Hash(next), expiresAt, now)
	if errors.Is(err, session.ErrStale) {
		s.revokeReused(ctx, sess)
		return nil, ErrReused
	}
	if err != nil {
		return nil, fmt.Errorf("rotate session: %w", err)
	}

	return &Rotation{AccountID: claims.Subject, Token: next, ExpiresAt: expiresAt}, nil
}

// RevokeRefreshToken ends the session behind raw. Unknown or already ended
// sessions are not an error.
func (s *Service) RevokeRefreshToken(ctx context.Context, raw string) error {
	claims, err := s.parseRefresh(raw)
	if err != nil {
		return err
	}
	if err := s.sessions.Delete(ctx, claims.SessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *Service) parseRefresh(raw string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	_, err := s.parser(audienceRefresh).ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.cfg.RefreshSecret, nil
	})
	if err != nil {
		return nil, classify(err)
	}
	if claims.Subject == "" || claims.SessionID == "" {
		return nil, fmt.Errorf("%w: missing subject or session", ErrInvalid)
	}
	return claims, nil
}

func (s *Service) verifyRefresh(ctx context.Context, raw string) (*RefreshClaims, *session.Session, error) {
	claims, err := s.parseRefresh(raw)
	if err != nil {
		return nil, nil, err
	}

	sess, err := s.sessions.Get(ctx, claims.SessionID)
	if errors.Is(err, session.ErrNotFound) {
		return nil, nil, fmt.Errorf("%w: unknown session", ErrInvalid)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load session: %w", err)
	}

	if sess.AccountID != claims.Subject {
		return nil, nil, fmt.Errorf("%w: session owner mismatch", ErrInvalid)
	}
	// A genuine token that no longer matches its session has been superseded.
	if !Equal(Hash(raw), sess.RefreshTokenHash) {
		if sess.RevokedAt == nil {
			s.revokeReused(ctx, sess)
		}
		return nil, nil, ErrReused
	}
	switch {
	case sess.RevokedAt != nil:
		return nil, nil, fmt.Errorf("%w: session revoked", ErrInvalid)
	case !s.now().Before(sess.ExpiresAt):
		return nil, nil, ErrExpired
	}
	return claims, sess, nil
}

func (s *Service) revokeReused(ctx context.Context, sess *session.Session) {
	s.logger.WarnContext(ctx, "refresh token reuse detected",
		slog.String("account_id", sess.AccountID),
		slog.String("session_id", sess.ID),
	)
	if err := s.sessions.Revoke(ctx, sess.ID, s.now()); err != nil {
		s.logger.ErrorContext(ctx, "failed to revoke reused session",
			slog.String("session_id", sess.ID),
			slog.String("error", err.Error()),
		)
	}
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

// PurgeSessions deletes sessions that expired or were revoked before now.
func (s *Service) PurgeSessions(ctx context.Context) (int64, error) {
	n, err := s.sessions.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	return n, nil
}
