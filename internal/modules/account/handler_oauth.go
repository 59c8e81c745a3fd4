package account

import (
	"context"

	"github.com/delordemm1/matrimony-api/internal/httpx"
)

// --- DTOs ---

// OAuthLoginRequest defines the provider being requested from the URL path.
type OAuthLoginRequest struct {
	Provider string `path:"provider"`
}

// OAuthLoginResponse is the JSON response sent to the client, which performs
// the redirect itself.
type OAuthLoginResponse struct {
	Body struct {
		RedirectURL string `json:"redirectUrl"`
	}
}

// OAuthCallbackRequest defines the query parameters sent by the provider and
// forwarded by the client.
type OAuthCallbackRequest struct {
	ClientInfo
	Provider string `path:"provider"`
	Code     string `query:"code" required:"true"`
	State    string `query:"state" required:"true"`
}

// --- Handlers ---

// OAuthLoginHandler returns the provider's authorization URL.
func (h *Handler) OAuthLoginHandler(ctx context.Context, input *OAuthLoginRequest) (*OAuthLoginResponse, error) {
	h.logger.InfoContext(ctx, "initiating oauth login", "provider", input.Provider)

	redirectURL, err := h.service.InitiateOAuthLogin(ctx, input.Provider)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to initiate oauth login", "provider", input.Provider, "error", err)
		return nil, httpx.ToProblem(ctx, err)
	}

	resp := &OAuthLoginResponse{}
	resp.Body.RedirectURL = redirectURL
	return resp, nil
}

// OAuthCallbackHandler completes the sign-in and returns a token pair.
func (h *Handler) OAuthCallbackHandler(ctx context.Context, input *OAuthCallbackRequest) (*TokenResponse, error) {
	h.logger.InfoContext(ctx, "handling oauth callback", "provider", input.Provider)

	res, err := h.service.HandleOAuthCallback(ctx, input.Provider, input.State, input.Code, input.meta())
	if err != nil {
		h.logger.WarnContext(ctx, "oauth callback processing failed", "provider", input.Provider, "error", err)
		return nil, httpx.ToProblem(ctx, err)
	}
	return h.toTokenResponse(res), nil
}
