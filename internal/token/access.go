package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims is the payload of an access token.
type AccessClaims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// AccountID returns the subject.
func (c *AccessClaims) AccountID() string { return c.Subject }

// IssueAccessToken signs a short-lived access token for the account.
func (s *Service) IssueAccessToken(accountID, role string) (string, time.Time, error) {
	now := s.now().Truncate(time.Second)
	expiresAt := now.Add(s.cfg.AccessTTL)

	claims := AccessClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			Issuer:    s.cfg.Issuer,
			Audience:  jwt.ClaimStrings{audienceAccess},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.AccessSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, expiresAt, nil
}

// VerifyAccessToken checks signature, audience and expiry. It never touches storage.
func (s *Service) VerifyAccessToken(raw string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	_, err := s.parser(audienceAccess).ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.cfg.AccessSecret, nil
	})
	if err != nil {
		return nil, classify(err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalid)
	}
	return claims, nil
}
