package account

import (
	"net/http"

	"github.com/delordemm1/matrimony-api/internal/domainerr"
)

// Pre-defined domain errors for the account module.
var (
	// Resource & identity
	ErrNotFound     = domainerr.New("account", "ErrNotFound", http.StatusNotFound, "account not found")
	ErrUnauthorized = domainerr.New("account", "ErrUnauthorized", http.StatusUnauthorized, "Unauthorized")

	// Auth & credentials
	ErrInvalidCredentials = domainerr.New("account", "ErrInvalidCredentials", http.StatusUnauthorized, "invalid email or password")

	// ErrInvalidToken covers every single-use token failure. The wrapped cause
	// (token.ErrInvalid, token.ErrExpired, token.ErrAlreadyUsed) is for logs only.
	ErrInvalidToken = domainerr.New("account", "ErrInvalidToken", http.StatusBadRequest, "the provided token is invalid or has expired")

	// Registration & linking
	ErrEmailExists         = domainerr.New("account", "ErrEmailExists", http.StatusConflict, "an account with this email already exists")
	ErrConflict            = domainerr.New("account", "ErrConflict", http.StatusConflict, "the account was modified concurrently, please retry")
	ErrIdentityConflict    = domainerr.New("account", "ErrIdentityConflict", http.StatusConflict, "this email is already linked to another sign-in provider")
	ErrOAuthLinkNotAllowed = domainerr.New("account", "ErrOAuthLinkNotAllowed", http.StatusConflict, "an account with this email exists; sign in with your password to link this provider")

	// OAuth
	ErrUnsupportedOAuthProvider = domainerr.New("account", "ErrUnsupportedOAuthProvider", http.StatusBadRequest, "unsupported oauth provider")
	ErrOAuthStateInvalid        = domainerr.New("account", "ErrOAuthStateInvalid", http.StatusBadRequest, "invalid oauth state")
	ErrOAuthStateExpired        = domainerr.New("account", "ErrOAuthStateExpired", http.StatusBadRequest, "oauth state has expired")
	ErrOAuthExchangeFailed      = domainerr.New("account", "ErrOAuthExchangeFailed", http.StatusUnauthorized, "oauth authentication failed")
	ErrOAuthEmailMissing        = domainerr.New("account", "ErrOAuthEmailMissing", http.StatusBadRequest, "email not provided by oauth provider")

	// Generic internal
	ErrInternal = domainerr.New("account", "ErrInternal", http.StatusInternalServerError, "internal server error")
)
