package account

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/delordemm1/matrimony-api/internal/config"
)

// Handler holds the dependencies for the account module's HTTP handlers.
type Handler struct {
	service Service
	logger  *slog.Logger
	cookies config.AuthConfig
	auth    func(huma.Context, func(huma.Context))
}

// NewHandler creates a new handler for the account module. auth guards the
// routes that need a signed-in account.
func NewHandler(service Service, logger *slog.Logger, cfg *config.Config, auth func(huma.Context, func(huma.Context))) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
		cookies: cfg.Auth,
		auth:    auth,
	}
}

// RegisterRoutes sets up the routing for the account module.
func (h *Handler) RegisterRoutes(api huma.API) {
	bearer := []map[string][]string{{"bearer": {}}}

	// --- Credentials & sessions ---
	huma.Register(api, huma.Operation{
		OperationID:   "auth-register",
		Method:        http.MethodPost,
		Path:          "/auth/register",
		Summary:       "Register a new account",
		Tags:          []string{"auth"},
		DefaultStatus: http.StatusCreated,
	}, h.RegisterHandler)

	huma.Register(api, huma.Operation{
		OperationID: "auth-login",
		Method:      http.MethodPost,
		Path:        "/auth/login",
		Summary:     "Log in with email and password",
		Tags:        []string{"auth"},
	}, h.LoginHandler)

	huma.Register(api, huma.Operation{
		OperationID: "auth-refresh",
		Method:      http.MethodPost,
		Path:        "/auth/refresh",
		Summary:     "Rotate the refresh token and issue a new access token",
		Tags:        []string{"auth"},
	}, h.RefreshHandler)

	huma.Register(api, huma.Operation{
		OperationID:   "auth-logout",
		Method:        http.MethodPost,
		Path:          "/auth/logout",
		Summary:       "End the current session",
		Tags:          []string{"auth"},
		DefaultStatus: http.StatusNoContent,
	}, h.LogoutHandler)

	huma.Register(api, huma.Operation{
		OperationID: "auth-me",
		Method:      http.MethodGet,
		Path:        "/auth/me",
		Summary:     "Get the signed-in account",
		Tags:        []string{"auth"},
		Security:    bearer,
		Middlewares: huma.Middlewares{h.auth},
	}, h.MeHandler)

	// --- Password reset ---
	huma.Register(api, huma.Operation{
		OperationID:   "auth-forgot-password",
		Method:        http.MethodPost,
		Path:          "/auth/password/forgot",
		Summary:       "Email a password reset link",
		Tags:          []string{"auth"},
		DefaultStatus: http.StatusAccepted,
	}, h.ForgotPasswordHandler)

	huma.Register(api, huma.Operation{
		OperationID:   "auth-reset-password",
		Method:        http.MethodPost,
		Path:          "/auth/password/reset",
		Summary:       "Set a new password with a reset token",
		Tags:          []string{"auth"},
		DefaultStatus: http.StatusNoContent,
	}, h.ResetPasswordHandler)

	// --- Email verification ---
	huma.Register(api, huma.Operation{
		OperationID:   "auth-request-email-verification",
		Method:        http.MethodPost,
		Path:          "/auth/email/verification",
		Summary:       "Email a verification link to the signed-in account",
		Tags:          []string{"auth"},
		DefaultStatus: http.StatusAccepted,
		Security:      bearer,
		Middlewares:   huma.Middlewares{h.auth},
	}, h.RequestEmailVerificationHandler)

	huma.Register(api, huma.Operation{
		OperationID:   "auth-confirm-email",
		Method:        http.MethodPost,
		Path:          "/auth/email/verify",
		Summary:       "Confirm an email address with a verification token",
		Tags:          []string{"auth"},
		DefaultStatus: http.StatusNoContent,
	}, h.ConfirmEmailHandler)

	// --- OAuth ---
	huma.Register(api, huma.Operation{
		OperationID: "auth-oauth-start",
		Method:      http.MethodGet,
		Path:        "/auth/oauth/{provider}",
		Summary:     "Start an OAuth sign-in",
		Tags:        []string{"oauth"},
	}, h.OAuthLoginHandler)

	huma.Register(api, huma.Operation{
		OperationID: "auth-oauth-callback",
		Method:      http.MethodGet,
		Path:        "/auth/oauth/{provider}/callback",
		Summary:     "Complete an OAuth sign-in",
		Tags:        []string{"oauth"},
	}, h.OAuthCallbackHandler)
}
