package session

import (
	"context"
	"errors"
	"time"

	"github.com/delordemm1/matrimony-api/internal/database"
)

var (
	ErrNotFound = errors.New("session not found")
	// ErrStale is returned by Rotate when the stored hash no longer matches the expected
	// one, i.e. another request rotated or revoked the session first.
	ErrStale = errors.New("session rotated concurrently")
)

// Session is one refresh-token lineage, created at login and rotated on every refresh.
// Only the SHA-256 of the current refresh token is stored.
type Session struct {
	ID               string     `db:"id"`
	AccountID        string     `db:"account_id"`
	RefreshTokenHash string     `db:"refresh_token_hash"`
	UserAgent        *string    `db:"user_agent"`
	IPAddress        *string    `db:"ip_address"`
	IssuedAt         time.Time  `db:"issued_at"`
	RotatedAt        *time.Time `db:"rotated_at"`
	ExpiresAt        time.Time  `db:"expires_at"`
	RevokedAt        *time.Time `db:"revoked_at"`
}

// Store persists refresh sessions. Every mutation is a single conditional statement
// so concurrent refreshes of the same session cannot both succeed.
type Store interface {
	// Create inserts a new session.
	Create(ctx context.Context, s *Session) error

	// Get returns the session by ID or ErrNotFound.
	Get(ctx context.Context, id string) (*Session, error)

	// Rotate replaces the refresh hash only if the stored hash still equals oldHash and the
	// session is not revoked. It returns ErrStale otherwise.
	Rotate(ctx context.Context, id, oldHash, newHash string, expiresAt, rotatedAt time.Time) error

	// Revoke marks a single session revoked. It is idempotent.
	Revoke(ctx context.Context, id string, at time.Time) error

	// RevokeAllForAccount revokes every live session of the account and returns how many were revoked.
	RevokeAllForAccount(ctx context.Context, accountID string, at time.Time) (int64, error)

	// Delete removes a session (logout). It is idempotent.
	Delete(ctx context.Context, id string) error

	// DeleteExpired removes sessions that expired or were revoked before the cutoff.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// NewPostgresStore returns a Postgres-backed Store implementation.
// Implemented in postgres.go.
func NewPostgresStore(db database.DBTX) Store {
	return &postgresStore{db: db}
}
