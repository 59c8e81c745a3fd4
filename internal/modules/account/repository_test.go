package account

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (Repository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewRepository(mock), mock
}

func TestRepository_Create(t *testing.T) {
	hash := "bcrypt-hash"
	a := &Account{
		ID:           "a1",
		Email:        "asha@example.com",
		PasswordHash: &hash,
		AuthProvider: AuthProviderLocal,
		Role:         RoleMember,
		CreatedAt:    time.Now(),
	}

	t.Run("inserts", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO accounts (id,email,password_hash,auth_provider,provider_id,role,email_verified,created_at,updated_at)")).
			WithArgs("a1", "asha@example.com", &hash, AuthProviderLocal, (*string)(nil), RoleMember, false, pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, repo.Create(context.Background(), a))
		assert.Equal(t, a.CreatedAt, a.UpdatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unique violation", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO accounts")).
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "accounts_email_lower_key"})

		err := repo.Create(context.Background(), a)
		assert.ErrorIs(t, err, ErrConflict)
	})
}

func TestRepository_FindByEmail(t *testing.T) {
	const q = "SELECT id, email, password_hash, auth_provider, provider_id, role, email_verified, created_at, updated_at FROM accounts WHERE lower(email) = $1 LIMIT 1"

	t.Run("found", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		now := time.Now()
		providerID := "g-1"
		rows := pgxmock.NewRows(accountColumns).
			AddRow("a1", "asha@example.com", (*string)(nil), AuthProviderGoogle, &providerID, RoleMember, true, now, now)
		mock.ExpectQuery(regexp.QuoteMeta(q)).WithArgs("asha@example.com").WillReturnRows(rows)

		a, err := repo.FindByEmail(context.Background(), " Asha@Example.com")
		require.NoError(t, err)
		assert.Equal(t, "a1", a.ID)
		assert.True(t, a.LinkedTo(AuthProviderGoogle, "g-1"))
		assert.False(t, a.HasPassword())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(q)).WithArgs("ghost@example.com").WillReturnError(pgx.ErrNoRows)

		_, err := repo.FindByEmail(context.Background(), "ghost@example.com")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestRepository_LinkProvider(t *testing.T) {
	const q = "UPDATE accounts SET auth_provider = $1, provider_id = $2, email_verified = email_verified OR $3, updated_at = $4 WHERE id = $5 AND provider_id IS NULL"

	tests := []struct {
		name    string
		result  pgconn.CommandTag
		err     error
		wantErr error
	}{
		{name: "links", result: pgxmock.NewResult("UPDATE", 1)},
		{name: "already linked", result: pgxmock.NewResult("UPDATE", 0), wantErr: errStale},
		{name: "identity taken", err: &pgconn.PgError{Code: "23505"}, wantErr: errStale},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo, mock := newMockRepo(t)
			exp := mock.ExpectExec(regexp.QuoteMeta(q)).
				WithArgs(AuthProviderGoogle, "g-1", true, pgxmock.AnyArg(), "a1")
			if tc.err != nil {
				exp.WillReturnError(tc.err)
			} else {
				exp.WillReturnResult(tc.result)
			}

			err := repo.LinkProvider(context.Background(), "a1", AuthProviderGoogle, "g-1", true)
			if tc.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tc.wantErr)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRepository_ConsumeActionToken(t *testing.T) {
	const q = "UPDATE action_tokens SET consumed_at = $1 WHERE id = $2 AND consumed_at IS NULL AND expires_at > $3"
	now := time.Now()

	repo, mock := newMockRepo(t)
	mock.ExpectExec(regexp.QuoteMeta(q)).WithArgs(now, "t1", now).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(regexp.QuoteMeta(q)).WithArgs(now, "t1", now).WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectExec(regexp.QuoteMeta(q)).WithArgs(now, "t1", now).WillReturnError(errors.New("db down"))

	require.NoError(t, repo.ConsumeActionToken(context.Background(), "t1", now))
	assert.ErrorIs(t, repo.ConsumeActionToken(context.Background(), "t1", now), errStale)
	err := repo.ConsumeActionToken(context.Background(), "t1", now)
	require.Error(t, err)
	assert.NotErrorIs(t, err, errStale)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_TakeOAuthState(t *testing.T) {
	const q = "DELETE FROM oauth_states WHERE state = $1 RETURNING state, provider, verifier, expires_at, created_at"
	now := time.Now()

	repo, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta(q)).WithArgs("st").
		WillReturnRows(pgxmock.NewRows([]string{"state", "provider", "verifier", "expires_at", "created_at"}).
			AddRow("st", AuthProviderGoogle, "verifier", now.Add(time.Minute), now))
	mock.ExpectQuery(regexp.QuoteMeta(q)).WithArgs("st").WillReturnError(pgx.ErrNoRows)

	s, err := repo.TakeOAuthState(context.Background(), "st")
	require.NoError(t, err)
	assert.Equal(t, AuthProviderGoogle, s.Provider)
	assert.Equal(t, "verifier", s.Verifier)

	_, err = repo.TakeOAuthState(context.Background(), "st")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_DeleteExpired(t *testing.T) {
	cutoff := time.Now()
	repo, mock := newMockRepo(t)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM action_tokens WHERE expires_at < $1")).
		WithArgs(cutoff).WillReturnResult(pgxmock.NewResult("DELETE", 4))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM oauth_states WHERE expires_at < $1")).
		WithArgs(cutoff).WillReturnResult(pgxmock.NewResult("DELETE", 2))

	n, err := repo.DeleteExpiredActionTokens(context.Background(), cutoff)
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)

	n, err = repo.DeleteExpiredOAuthStates(context.Background(), cutoff)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_WithinTx(t *testing.T) {
	const (
		consume = "UPDATE action_tokens SET consumed_at = $1 WHERE id = $2 AND consumed_at IS NULL AND expires_at > $3"
		update  = "UPDATE accounts SET password_hash = $1, updated_at = $2 WHERE id = $3"
		revoke  = "UPDATE refresh_sessions SET revoked_at = $1 WHERE account_id = $2 AND revoked_at IS NULL"
	)
	now := time.Now()

	apply := func(ctx context.Context, tx Repository) error {
		if err := tx.ConsumeActionToken(ctx, "t1", now); err != nil {
			return err
		}
		if err := tx.UpdatePassword(ctx, "a1", "new-hash"); err != nil {
			return err
		}
		_, err := tx.RevokeAllSessions(ctx, "a1", now)
		return err
	}

	t.Run("commits", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(consume)).WithArgs(now, "t1", now).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectExec(regexp.QuoteMeta(update)).WithArgs("new-hash", pgxmock.AnyArg(), "a1").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectExec(regexp.QuoteMeta(revoke)).WithArgs(now, "a1").WillReturnResult(pgxmock.NewResult("UPDATE", 3))
		mock.ExpectCommit()

		err := repo.WithinTx(context.Background(), func(tx Repository) error {
			return apply(context.Background(), tx)
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on failure", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(consume)).WithArgs(now, "t1", now).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectExec(regexp.QuoteMeta(update)).WithArgs("new-hash", pgxmock.AnyArg(), "a1").WillReturnError(errors.New("connection reset"))
		mock.ExpectRollback()

		err := repo.WithinTx(context.Background(), func(tx Repository) error {
			return apply(context.Background(), tx)
		})
		assert.ErrorContains(t, err, "connection reset")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
