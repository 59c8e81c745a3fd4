package account

import (
	"context"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/delordemm1/matrimony-api/internal/database"
	"github.com/delordemm1/matrimony-api/internal/session"
	"github.com/jackc/pgx/v5"
)

// errStale is returned by conditional updates that matched no row.
var errStale = errors.New("account: conditional update matched no row")

// Repository defines the database operations of the account module.
type Repository interface {
	// WithinTx runs fn against a repository bound to a single transaction,
	// committing when fn returns nil and rolling back otherwise.
	WithinTx(ctx context.Context, fn func(tx Repository) error) error

	// Accounts
	Create(ctx context.Context, a *Account) error
	FindByID(ctx context.Context, id string) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByProvider(ctx context.Context, provider AuthProvider, providerID string) (*Account, error)
	// LinkProvider attaches a provider identity to an account that has none yet.
	// It returns errStale when the account is already linked.
	LinkProvider(ctx context.Context, id string, provider AuthProvider, providerID string, emailVerified bool) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	MarkEmailVerified(ctx context.Context, id string) error

	// Single-use tokens
	CreateActionToken(ctx context.Context, t *ActionToken) error
	FindActionTokenByHash(ctx context.Context, tokenHash string, purpose TokenPurpose) (*ActionToken, error)
	// ConsumeActionToken marks the token consumed if it is still unconsumed and
	// unexpired at now. It returns errStale otherwise.
	ConsumeActionToken(ctx context.Context, id string, now time.Time) error
	DeletePendingActionTokens(ctx context.Context, accountID string, purpose TokenPurpose) error
	DeleteExpiredActionTokens(ctx context.Context, cutoff time.Time) (int64, error)

	// RevokeAllSessions revokes every live refresh session of the account.
	RevokeAllSessions(ctx context.Context, accountID string, at time.Time) (int64, error)

	// OAuth states
	InsertOAuthState(ctx context.Context, state *OAuthState) error
	// TakeOAuthState deletes and returns the state so it can only be used once.
	TakeOAuthState(ctx context.Context, state string) (*OAuthState, error)
	DeleteExpiredOAuthStates(ctx context.Context, cutoff time.Time) (int64, error)
}

// repository implements the Repository interface using pgx and squirrel.
type repository struct {
	db   database.DBTX
	psql squirrel.StatementBuilderType
}

// NewRepository creates a new account repository with the given database connection.
func NewRepository(db database.DBTX) Repository {
	return &repository{
		db:   db,
		psql: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *repository) WithinTx(ctx context.Context, fn func(tx Repository) error) error {
	db, ok := r.db.(database.TxBeginner)
	if !ok {
		return errors.New("account: database handle cannot begin a transaction")
	}
	return database.WithTx(ctx, db, func(tx pgx.Tx) error {
		return fn(&repository{db: tx, psql: r.psql})
	})
}

// RevokeAllSessions shares the session store's statement so it can join the
// caller's transaction.
func (r *repository) RevokeAllSessions(ctx context.Context, accountID string, at time.Time) (int64, error) {
	return session.NewPostgresStore(r.db).RevokeAllForAccount(ctx, accountID, at)
}
