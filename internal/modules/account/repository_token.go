package account

import (
	"context"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// --- Single-use action tokens (password reset, email verification) ---

func (r *repository) CreateActionToken(ctx context.Context, t *ActionToken) error {
	if t.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		t.ID = id.String()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}

	sql, args, err := r.psql.Insert("action_tokens").
		Columns("id", "account_id", "purpose", "token_hash", "expires_at", "consumed_at", "created_at").
		Values(t.ID, t.AccountID, t.Purpose, t.TokenHash, t.ExpiresAt, t.ConsumedAt, t.CreatedAt).
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

// FindActionTokenByHash returns the token whatever its state, so callers can
// tell consumed and expired tokens apart.
func (r *repository) FindActionTokenByHash(ctx context.Context, tokenHash string, purpose TokenPurpose) (*ActionToken, error) {
	sql, args, err := r.psql.Select("id", "account_id", "purpose", "token_hash", "expires_at", "consumed_at", "created_at").
		From("action_tokens").
		Where(squirrel.Eq{"token_hash": tokenHash, "purpose": purpose}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, err
	}
	var t ActionToken
	if err := pgxscan.Get(ctx, r.db, &t, sql, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound.WithCause(err)
		}
		return nil, err
	}
	return &t, nil
}

func (r *repository) ConsumeActionToken(ctx context.Context, id string, now time.Time) error {
	sql, args, err := r.psql.Update("action_tokens").
		Set("consumed_at", now).
		Where(squirrel.Eq{"id": id}).
		Where("consumed_at IS NULL").
		Where(squirrel.Gt{"expires_at": now}).
		ToSql()
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errStale
	}
	return nil
}

func (r *repository) DeletePendingActionTokens(ctx context.Context, accountID string, purpose TokenPurpose) error {
	sql, args, err := r.psql.Delete("action_tokens").
		Where(squirrel.Eq{"account_id": accountID, "purpose": purpose}).
		Where("consumed_at IS NULL").
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func (r *repository) DeleteExpiredActionTokens(ctx context.Context, cutoff time.Time) (int64, error) {
	sql, args, err := r.psql.Delete("action_tokens").
		Where(squirrel.Lt{"expires_at": cutoff}).
		ToSql()
	if err != nil {
		return 0, err
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
