package account

import (
	"context"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
)

// InsertOAuthState inserts a new OAuth state record into the database.
func (r *repository) InsertOAuthState(ctx context.Context, state *OAuthState) error {
	if state.CreatedAt.IsZero() {
		state.CreatedAt = time.Now()
	}

	query, args, err := r.psql.Insert("oauth_states").
		Columns("state", "provider", "verifier", "expires_at", "created_at").
		Values(state.State, state.Provider, state.Verifier, state.ExpiresAt, state.CreatedAt).
		ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, query, args...)
	return err
}

// TakeOAuthState removes the state row and returns what it held. A second
// call with the same state gets ErrNotFound.
func (r *repository) TakeOAuthState(ctx context.Context, state string) (*OAuthState, error) {
	query, args, err := r.psql.Delete("oauth_states").
		Where(squirrel.Eq{"state": state}).
		Suffix("RETURNING state, provider, verifier, expires_at, created_at").
		ToSql()
	if err != nil {
		return nil, err
	}

	var oauthState OAuthState
	if err := pgxscan.Get(ctx, r.db, &oauthState, query, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound.WithCause(err)
		}
		return nil, err
	}
	return &oauthState, nil
}

// DeleteExpiredOAuthStates removes all OAuth state records that expired before cutoff.
func (r *repository) DeleteExpiredOAuthStates(ctx context.Context, cutoff time.Time) (int64, error) {
	query, args, err := r.psql.Delete("oauth_states").
		Where(squirrel.Lt{"expires_at": cutoff}).
		ToSql()
	if err != nil {
		return 0, err
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
