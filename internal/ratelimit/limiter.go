// Package ratelimit bounds how often an actor may perform an action using a
// fixed-window counter keyed by (actor, action).
package ratelimit

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/delordemm1/matrimony-api/internal/domainerr"
)

// Decision is the outcome of one CheckAndConsume call.
type Decision struct {
	Allowed   bool
	Remaining int
	// RetryAfter is how long until the current window closes. Only set when rejected.
	RetryAfter time.Duration
}

// Limiter counts actions in fixed windows. A window opens on the first call
// after the previous one elapsed; within it at most limit calls are allowed.
type Limiter interface {
	CheckAndConsume(ctx context.Context, actorID, actionKey string, limit int, window time.Duration) (Decision, error)
}

// Rule names an action and its budget.
type Rule struct {
	Action string
	Limit  int
	Window time.Duration
}

// ErrRateLimitExceeded matches every *ExceededError via errors.Is.
var ErrRateLimitExceeded = domainerr.New("ratelimit", "ErrRateLimitExceeded", http.StatusTooManyRequests, "Too many requests. Please try again later.")

// ExceededError is returned by Enforce when the budget is spent.
type ExceededError struct {
	*domainerr.DomainError
	Action     string
	RetryAfter time.Duration
}

// ProblemHeaders adds Retry-After, in whole seconds rounded up.
func (e *ExceededError) ProblemHeaders() http.Header {
	secs := int(math.Ceil(e.RetryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	h := http.Header{}
	h.Set("Retry-After", strconv.Itoa(secs))
	return h
}

// Enforce consumes one unit of rule for actorID and returns an *ExceededError
// when the window is exhausted.
func Enforce(ctx context.Context, l Limiter, rule Rule, actorID string) error {
	d, err := l.CheckAndConsume(ctx, actorID, rule.Action, rule.Limit, rule.Window)
	if err != nil {
		return fmt.Errorf("rate limit %s: %w", rule.Action, err)
	}
	if d.Allowed {
		return nil
	}
	return &ExceededError{
		DomainError: ErrRateLimitExceeded.WithContext(map[string]any{
			"action":            rule.Action,
			"retryAfterSeconds": int(math.Ceil(d.RetryAfter.Seconds())),
		}),
		Action:     rule.Action,
		RetryAfter: d.RetryAfter,
	}
}

func validate(actorID, actionKey string, limit int, window time.Duration) error {
	switch {
	case actorID == "" || actionKey == "":
		return fmt.Errorf("ratelimit: actor and action are required")
	case limit <= 0:
		return fmt.Errorf("ratelimit: limit must be positive, got %d", limit)
	case window <= 0:
		return fmt.Errorf("ratelimit: window must be positive, got %s", window)
	}
	return nil
}

func key(actorID, actionKey string) string {
	return "ratelimit:" + actorID + ":" + actionKey
}
