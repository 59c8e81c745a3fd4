package account

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/delordemm1/matrimony-api/internal/contextx"
	"github.com/delordemm1/matrimony-api/internal/httpx"
	"github.com/delordemm1/matrimony-api/internal/validation"
)

const refreshCookieName = "refresh_token"

// --- DTOs ---

// ClientInfo captures who is opening a session. Embedded in login-like requests.
type ClientInfo struct {
	UserAgent  string `header:"User-Agent"`
	remoteAddr string
}

// Resolve implements huma.Resolver to pick up the peer address.
func (c *ClientInfo) Resolve(ctx huma.Context) []error {
	c.remoteAddr = ctx.RemoteAddr()
	return nil
}

func (c *ClientInfo) meta() ClientMeta {
	return ClientMeta{UserAgent: c.UserAgent, IPAddress: c.remoteAddr}
}

// AccountBody is the public view of an account.
type AccountBody struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	AuthProvider  string    `json:"authProvider"`
	Role          string    `json:"role"`
	EmailVerified bool      `json:"emailVerified"`
	HasPassword   bool      `json:"hasPassword"`
	CreatedAt     time.Time `json:"createdAt"`
}

func toAccountBody(a *Account) AccountBody {
	return AccountBody{
		ID:            a.ID,
		Email:         a.Email,
		AuthProvider:  string(a.AuthProvider),
		Role:          a.Role,
		EmailVerified: a.EmailVerified,
		HasPassword:   a.HasPassword(),
		CreatedAt:     a.CreatedAt,
	}
}

// TokenResponse is returned whenever a token pair is issued. The refresh token
// is set as an HTTP-only cookie and echoed for non-browser clients.
type TokenResponse struct {
	SetCookie http.Cookie `header:"Set-Cookie"`
	Body      struct {
		AccessToken      string      `json:"accessToken"`
		AccessExpiresAt  time.Time   `json:"accessExpiresAt"`
		RefreshToken     string      `json:"refreshToken"`
		RefreshExpiresAt time.Time   `json:"refreshExpiresAt"`
		TokenType        string      `json:"tokenType"`
		Account          AccountBody `json:"account"`
	}
}

func (h *Handler) toTokenResponse(res *AuthResult) *TokenResponse {
	out := &TokenResponse{SetCookie: h.refreshCookie(res.RefreshToken, res.RefreshExpiresAt)}
	out.Body.AccessToken = res.AccessToken
	out.Body.AccessExpiresAt = res.AccessExpiresAt
	out.Body.RefreshToken = res.RefreshToken
	out.Body.RefreshExpiresAt = res.RefreshExpiresAt
	out.Body.TokenType = "Bearer"
	out.Body.Account = toAccountBody(res.Account)
	return out
}

func (h *Handler) refreshCookie(value string, expires time.Time) http.Cookie {
	c := http.Cookie{
		Name:     refreshCookieName,
		Value:    value,
		Path:     "/auth",
		Domain:   h.cookies.CookieDomain,
		HttpOnly: true,
		Secure:   h.cookies.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	}
	if value == "" {
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0)
	} else {
		c.Expires = expires
	}
	return c
}

// RegisterRequest defines the structure for the account registration request body.
type RegisterRequest struct {
	ClientInfo
	Body struct {
		Email       string `json:"email" validate:"required,email,max=254"`
		Password    string `json:"password" validate:"required,min=8,max=72"`
		DisplayName string `json:"displayName,omitempty" validate:"omitempty,max=100"`
	}
}

// LoginRequest defines the structure for the login request body.
type LoginRequest struct {
	ClientInfo
	Body struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}
}

type refreshBody struct {
	RefreshToken string `json:"refreshToken,omitempty"`
}

// RefreshRequest takes the refresh token from the cookie or, failing that, the body.
type RefreshRequest struct {
	Cookie string       `cookie:"refresh_token"`
	Body   *refreshBody `required:"false"`
}

func (r *RefreshRequest) token() string {
	if r.Cookie != "" {
		return r.Cookie
	}
	if r.Body != nil {
		return r.Body.RefreshToken
	}
	return ""
}

// LogoutRequest accepts the refresh token like RefreshRequest.
type LogoutRequest = RefreshRequest

// LogoutResponse clears the refresh cookie.
type LogoutResponse struct {
	SetCookie http.Cookie `header:"Set-Cookie"`
}

// MeResponse wraps the signed-in account.
type MeResponse struct {
	Body AccountBody
}

// --- Handlers ---

// RegisterHandler handles the account registration endpoint.
func (h *Handler) RegisterHandler(ctx context.Context, input *RegisterRequest) (*TokenResponse, error) {
	if verr := validation.ValidateStruct(&input.Body); verr != nil {
		return nil, httpx.ToProblem(ctx, verr)
	}

	res, err := h.service.Register(ctx, RegisterInput{
		Email:       input.Body.Email,
		Password:    input.Body.Password,
		DisplayName: input.Body.DisplayName,
	}, input.meta())
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	return h.toTokenResponse(res), nil
}

// LoginHandler handles the login endpoint.
func (h *Handler) LoginHandler(ctx context.Context, input *LoginRequest) (*TokenResponse, error) {
	if verr := validation.ValidateStruct(&input.Body); verr != nil {
		return nil, httpx.ToProblem(ctx, verr)
	}

	res, err := h.service.Login(ctx, input.Body.Email, input.Body.Password, input.meta())
	if err != nil {
		h.logger.InfoContext(ctx, "login attempt failed", "error", err)
		return nil, httpx.ToProblem(ctx, err)
	}
	return h.toTokenResponse(res), nil
}

// RefreshHandler rotates the refresh token.
func (h *Handler) RefreshHandler(ctx context.Context, input *RefreshRequest) (*TokenResponse, error) {
	res, err := h.service.Refresh(ctx, input.token())
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	return h.toTokenResponse(res), nil
}

// LogoutHandler ends the session and clears the cookie.
func (h *Handler) LogoutHandler(ctx context.Context, input *LogoutRequest) (*LogoutResponse, error) {
	if err := h.service.Logout(ctx, input.token()); err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	return &LogoutResponse{SetCookie: h.refreshCookie("", time.Time{})}, nil
}

// MeHandler returns the signed-in account.
func (h *Handler) MeHandler(ctx context.Context, _ *struct{}) (*MeResponse, error) {
	accountID, ok := contextx.AccountID(ctx)
	if !ok {
		return nil, httpx.UnauthorizedProblem(ctx, "")
	}
	a, err := h.service.Me(ctx, accountID)
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	return &MeResponse{Body: toAccountBody(a)}, nil
}
