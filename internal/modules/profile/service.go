package profile

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/delordemm1/matrimony-api/internal/config"
	"github.com/delordemm1/matrimony-api/internal/ratelimit"
)

const (
	ActionProfileView = "profile_view"
	ActionInterest    = "interest_send"
)

// Service defines the business logic of the profile module.
type Service interface {
	// CreateStub creates the empty profile of a new account. It is idempotent.
	CreateStub(ctx context.Context, accountID, displayName, photoURL string) error
	// View returns another account's profile, charged to the viewer's budget.
	View(ctx context.Context, viewerID, accountID string) (*Profile, error)
	// SendInterest records interest from one account in another, charged to the
	// sender's budget. It reports whether the interest is new.
	SendInterest(ctx context.Context, fromID, toID string) (bool, error)
}

type service struct {
	repo     Repository
	limiter  ratelimit.Limiter
	view     ratelimit.Rule
	interest ratelimit.Rule
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a new profile service. Budgets come from cfg.RateLimit.
func NewService(repo Repository, limiter ratelimit.Limiter, cfg *config.Config, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &service{
		repo:    repo,
		limiter: limiter,
		view: ratelimit.Rule{
			Action: ActionProfileView,
			Limit:  cfg.RateLimit.ProfileViewLimit,
			Window: cfg.RateLimit.ProfileViewWindow,
		},
		interest: ratelimit.Rule{
			Action: ActionInterest,
			Limit:  cfg.RateLimit.InterestLimit,
			Window: cfg.RateLimit.InterestWindow,
		},
		logger: logger,
		now:    time.Now,
	}
}

func (s *service) CreateStub(ctx context.Context, accountID, displayName, photoURL string) error {
	p := &Profile{
		AccountID:   accountID,
		DisplayName: strings.TrimSpace(displayName),
		CreatedAt:   s.now(),
	}
	if photoURL != "" {
		p.PhotoURL = &photoURL
	}
	if err := s.repo.CreateIfMissing(ctx, p); err != nil {
		return ErrInternal.WithCause(err)
	}
	return nil
}

func (s *service) View(ctx context.Context, viewerID, accountID string) (*Profile, error) {
	// Lookups of unknown ids are charged too, so the budget also bounds enumeration.
	if err := s.enforce(ctx, s.view, viewerID); err != nil {
		return nil, err
	}

	p, err := s.repo.FindByAccountID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		s.logger.ErrorContext(ctx, "failed to load profile", "account_id", accountID, "error", err)
		return nil, ErrInternal.WithCause(err)
	}
	return p, nil
}

func (s *service) SendInterest(ctx context.Context, fromID, toID string) (bool, error) {
	if fromID == toID {
		return false, ErrSelfInterest
	}
	if err := s.enforce(ctx, s.interest, fromID); err != nil {
		return false, err
	}

	if _, err := s.repo.FindByAccountID(ctx, toID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, ErrNotFound
		}
		return false, ErrInternal.WithCause(err)
	}

	created, err := s.repo.InsertInterest(ctx, &Interest{
		FromAccountID: fromID,
		ToAccountID:   toID,
		CreatedAt:     s.now(),
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to record interest", "from", fromID, "to", toID, "error", err)
		return false, ErrInternal.WithCause(err)
	}
	if created {
		s.logger.InfoContext(ctx, "interest sent", slog.String("from", fromID), slog.String("to", toID))
	}
	return created, nil
}

func (s *service) enforce(ctx context.Context, rule ratelimit.Rule, actorID string) error {
	err := ratelimit.Enforce(ctx, s.limiter, rule, actorID)
	if err == nil {
		return nil
	}
	var exceeded *ratelimit.ExceededError
	if errors.As(err, &exceeded) {
		s.logger.InfoContext(ctx, "action rate limited",
			slog.String("action", rule.Action),
			slog.String("actor", actorID),
			slog.Duration("retry_after", exceeded.RetryAfter),
		)
		return exceeded
	}
	return ErrInternal.WithCause(err)
}
