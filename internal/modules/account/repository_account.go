package account

import (
	"context"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/delordemm1/matrimony-api/internal/database"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
)

var accountColumns = []string{
	"id", "email", "password_hash", "auth_provider", "provider_id",
	"role", "email_verified", "created_at", "updated_at",
}

// Create inserts a new account. Unique violations on email or provider
// identity come back as ErrConflict.
func (r *repository) Create(ctx context.Context, a *Account) error {
	now := time.Now()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = a.CreatedAt

	query, args, err := r.psql.Insert("accounts").
		Columns(accountColumns...).
		Values(a.ID, a.Email, a.PasswordHash, a.AuthProvider, a.ProviderID,
			a.Role, a.EmailVerified, a.CreatedAt, a.UpdatedAt).
		ToSql()
	if err != nil {
		return err
	}

	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		if database.IsUniqueViolation(err) {
			return ErrConflict.WithCause(err)
		}
		return err
	}
	return nil
}

// FindByID retrieves an account by its ID.
// It returns ErrNotFound if no account is found.
func (r *repository) FindByID(ctx context.Context, id string) (*Account, error) {
	return r.findOne(ctx, squirrel.Eq{"id": id})
}

// FindByEmail matches case-insensitively.
func (r *repository) FindByEmail(ctx context.Context, email string) (*Account, error) {
	return r.findOne(ctx, squirrel.Expr("lower(email) = ?", normalizeEmail(email)))
}

// FindByProvider retrieves the account linked to a provider identity.
func (r *repository) FindByProvider(ctx context.Context, provider AuthProvider, providerID string) (*Account, error) {
	return r.findOne(ctx, squirrel.Eq{"auth_provider": provider, "provider_id": providerID})
}

func (r *repository) LinkProvider(ctx context.Context, id string, provider AuthProvider, providerID string, emailVerified bool) error {
	query, args, err := r.psql.Update("accounts").
		Set("auth_provider", provider).
		Set("provider_id", providerID).
		Set("email_verified", squirrel.Expr("email_verified OR ?", emailVerified)).
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"id": id}).
		Where("provider_id IS NULL").
		ToSql()
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return errStale
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return errStale
	}
	return nil
}

// UpdatePassword replaces the password hash.
func (r *repository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.update(ctx, id, map[string]any{"password_hash": passwordHash})
}

// MarkEmailVerified sets email_verified.
func (r *repository) MarkEmailVerified(ctx context.Context, id string) error {
	return r.update(ctx, id, map[string]any{"email_verified": true})
}

func (r *repository) update(ctx context.Context, id string, set map[string]any) error {
	set["updated_at"] = time.Now()
	query, args, err := r.psql.Update("accounts").
		SetMap(set).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// findOne is a helper method to find a single account by a given condition.
func (r *repository) findOne(ctx context.Context, condition squirrel.Sqlizer) (*Account, error) {
	query, args, err := r.psql.Select(accountColumns...).
		From("accounts").
		Where(condition).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, err
	}

	var a Account
	if err := pgxscan.Get(ctx, r.db, &a, query, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound.WithCause(err)
		}
		return nil, err
	}
	return &a, nil
}
