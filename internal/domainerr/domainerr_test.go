package domainerr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_IsMatchesSentinelCopies(t *testing.T) {
	sentinel := New("account", "ErrInvalidToken", http.StatusBadRequest, "invalid token")
	cause := errors.New("token expired")

	wrapped := sentinel.WithCause(cause)
	assert.True(t, errors.Is(wrapped, sentinel))
	assert.True(t, errors.Is(wrapped, cause))
	assert.True(t, errors.Is(fmt.Errorf("handler: %w", wrapped), sentinel))

	other := New("account", "ErrConflict", http.StatusConflict, "conflict")
	assert.False(t, errors.Is(wrapped, other))
}

func TestDomainError_IsScopedToModule(t *testing.T) {
	accountNotFound := New("account", "ErrNotFound", http.StatusNotFound, "account not found")
	profileNotFound := New("profile", "ErrNotFound", http.StatusNotFound, "profile not found")

	assert.False(t, errors.Is(accountNotFound, profileNotFound))
	assert.False(t, errors.Is(fmt.Errorf("view: %w", profileNotFound.WithCause(errors.New("no rows"))), accountNotFound))
	assert.True(t, errors.Is(profileNotFound.WithDetail("gone"), profileNotFound))
}

func TestDomainError_ProblemAccessors(t *testing.T) {
	e := New("account", "ErrInvalidToken", http.StatusBadRequest, "invalid token")

	assert.Equal(t, "urn:problem:account/err-invalid-token", e.ProblemTypeURI())
	assert.Equal(t, "Bad Request", e.ProblemTitle())
	assert.Equal(t, "invalid token", e.ProblemDetail())
	assert.Equal(t, "safe", e.WithDetail("safe").ProblemDetail())
	assert.Equal(t, "invalid token", e.Error())
	assert.Equal(t, http.StatusInternalServerError, (&DomainError{}).ProblemStatus())
}

func TestKebab(t *testing.T) {
	cases := map[string]string{
		"ErrInvalidResetToken": "err-invalid-reset-token",
		"USER_NOT_FOUND":       "user-not-found",
		"ErrOAuth2Failed":      "err-oauth2-failed",
		"":                     "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Kebab(in), in)
	}
}
