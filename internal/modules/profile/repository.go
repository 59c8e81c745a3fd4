package profile

import (
	"context"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/delordemm1/matrimony-api/internal/database"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines the database operations of the profile module.
type Repository interface {
	// CreateIfMissing inserts the profile unless one exists for the account.
	CreateIfMissing(ctx context.Context, p *Profile) error
	FindByAccountID(ctx context.Context, accountID string) (*Profile, error)
	// InsertInterest reports whether a new interest was recorded; an existing
	// one for the same pair is left untouched.
	InsertInterest(ctx context.Context, in *Interest) (bool, error)
}

type repository struct {
	db   database.DBTX
	psql squirrel.StatementBuilderType
}

// NewRepository creates a new profile repository with the given database connection.
func NewRepository(db database.DBTX) Repository {
	return &repository{
		db:   db,
		psql: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *repository) CreateIfMissing(ctx context.Context, p *Profile) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	p.UpdatedAt = p.CreatedAt

	query, args, err := r.psql.Insert("profiles").
		Columns("account_id", "display_name", "photo_url", "bio", "created_at", "updated_at").
		Values(p.AccountID, p.DisplayName, p.PhotoURL, p.Bio, p.CreatedAt, p.UpdatedAt).
		Suffix("ON CONFLICT (account_id) DO NOTHING").
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, query, args...)
	return err
}

func (r *repository) FindByAccountID(ctx context.Context, accountID string) (*Profile, error) {
	query, args, err := r.psql.Select("account_id", "display_name", "photo_url", "bio", "created_at", "updated_at").
		From("profiles").
		Where(squirrel.Eq{"account_id": accountID}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var p Profile
	if err := pgxscan.Get(ctx, r.db, &p, query, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound.WithCause(err)
		}
		return nil, err
	}
	return &p, nil
}

func (r *repository) InsertInterest(ctx context.Context, in *Interest) (bool, error) {
	if in.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return false, err
		}
		in.ID = id.String()
	}
	if in.CreatedAt.IsZero() {
		in.CreatedAt = time.Now()
	}

	query, args, err := r.psql.Insert("interests").
		Columns("id", "from_account_id", "to_account_id", "created_at").
		Values(in.ID, in.FromAccountID, in.ToAccountID, in.CreatedAt).
		Suffix("ON CONFLICT (from_account_id, to_account_id) DO NOTHING").
		ToSql()
	if err != nil {
		return false, err
	}
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
