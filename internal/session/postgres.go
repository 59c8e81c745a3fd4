package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/delordemm1/matrimony-api/internal/database"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
)

type postgresStore struct {
	db database.DBTX
}

func (p *postgresStore) Create(ctx context.Context, s *Session) error {
	sql := `
		INSERT INTO refresh_sessions
			(id, account_id, refresh_token_hash, user_agent, ip_address, issued_at, expires_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := p.db.Exec(ctx, sql, s.ID, s.AccountID, s.RefreshTokenHash, s.UserAgent, s.IPAddress, s.IssuedAt, s.ExpiresAt); err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

func (p *postgresStore) Get(ctx context.Context, id string) (*Session, error) {
	query := `
		SELECT id, account_id, refresh_token_hash, user_agent, ip_address, issued_at, rotated_at, expires_at, revoked_at
		FROM refresh_sessions
		WHERE id = $1
		LIMIT 1
	`
	var s Session
	if err := pgxscan.Get(ctx, p.db, &s, query, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return &s, nil
}

func (p *postgresStore) Rotate(ctx context.Context, id, oldHash, newHash string, expiresAt, rotatedAt time.Time) error {
	sql := `
		UPDATE refresh_sessions
		SET refresh_token_hash = $1, expires_at = $2, rotated_at = $3
		WHERE id = $4 AND refresh_token_hash = $5 AND revoked_at IS NULL
	`
	tag, err := p.db.Exec(ctx, sql, newHash, expiresAt, rotatedAt, id, oldHash)
	if err != nil {
		return fmt.Errorf("failed to rotate session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStale
	}
	return nil
}

func (p *postgresStore) Revoke(ctx context.Context, id string, at time.Time) error {
	sql := `UPDATE refresh_sessions SET revoked_at = $1 WHERE id = $2 AND revoked_at IS NULL`
	if _, err := p.db.Exec(ctx, sql, at, id); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

func (p *postgresStore) RevokeAllForAccount(ctx context.Context, accountID string, at time.Time) (int64, error) {
	sql := `UPDATE refresh_sessions SET revoked_at = $1 WHERE account_id = $2 AND revoked_at IS NULL`
	tag, err := p.db.Exec(ctx, sql, at, accountID)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke account sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (p *postgresStore) Delete(ctx context.Context, id string) error {
	if _, err := p.db.Exec(ctx, `DELETE FROM refresh_sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (p *postgresStore) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := p.db.Exec(ctx, `DELETE FROM refresh_sessions WHERE expires_at < $1 OR revoked_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
