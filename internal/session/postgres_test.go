package session

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresStore(mock), mock
}

func TestPostgresStore_Create(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()
	ua := "firefox"

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO refresh_sessions")).
		WithArgs("s1", "a1", "hash", &ua, (*string)(nil), now, now.Add(time.Hour)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := store.Create(context.Background(), &Session{
		ID:               "s1",
		AccountID:        "a1",
		RefreshTokenHash: "hash",
		UserAgent:        &ua,
		IssuedAt:         now,
		ExpiresAt:        now.Add(time.Hour),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Rotate(t *testing.T) {
	const q = "UPDATE refresh_sessions SET refresh_token_hash = $1, expires_at = $2, rotated_at = $3 WHERE id = $4 AND refresh_token_hash = $5 AND revoked_at IS NULL"

	t.Run("wins compare and swap", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectExec(regexp.QuoteMeta(q)).
			WithArgs("new", pgxmock.AnyArg(), pgxmock.AnyArg(), "s1", "old").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := store.Rotate(context.Background(), "s1", "old", "new", time.Now().Add(time.Hour), time.Now())
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("loses compare and swap", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectExec(regexp.QuoteMeta(q)).
			WithArgs("new", pgxmock.AnyArg(), pgxmock.AnyArg(), "s1", "old").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := store.Rotate(context.Background(), "s1", "old", "new", time.Now().Add(time.Hour), time.Now())
		assert.ErrorIs(t, err, ErrStale)
	})

	t.Run("database error", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectExec(regexp.QuoteMeta(q)).
			WithArgs("new", pgxmock.AnyArg(), pgxmock.AnyArg(), "s1", "old").
			WillReturnError(errors.New("db down"))

		err := store.Rotate(context.Background(), "s1", "old", "new", time.Now(), time.Now())
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrStale)
	})
}

func TestPostgresStore_GetNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM refresh_sessions WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresStore_RevokeAllForAccount(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE refresh_sessions SET revoked_at = $1 WHERE account_id = $2 AND revoked_at IS NULL")).
		WithArgs(pgxmock.AnyArg(), "a1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 3))

	n, err := store.RevokeAllForAccount(context.Background(), "a1", time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestPostgresStore_DeleteAndPurge(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM refresh_sessions WHERE id = $1")).
		WithArgs("s1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM refresh_sessions WHERE expires_at < $1 OR revoked_at < $1")).
		WithArgs(pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("DELETE", 7))

	require.NoError(t, store.Delete(context.Background(), "s1"))
	n, err := store.DeleteExpired(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
