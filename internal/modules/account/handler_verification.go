package account

import (
	"context"

	"github.com/delordemm1/matrimony-api/internal/contextx"
	"github.com/delordemm1/matrimony-api/internal/httpx"
	"github.com/delordemm1/matrimony-api/internal/validation"
)

// --- DTOs ---

// RequestEmailVerificationResponse is an empty successful response.
type RequestEmailVerificationResponse struct{}

// ConfirmEmailRequest carries the token from the verification link.
type ConfirmEmailRequest struct {
	Body struct {
		Token string `json:"token" validate:"required"`
	}
}

// ConfirmEmailResponse is an empty successful response.
type ConfirmEmailResponse struct{}

// --- Handlers ---

// RequestEmailVerificationHandler sends a new verification link to the signed-in account.
func (h *Handler) RequestEmailVerificationHandler(ctx context.Context, _ *struct{}) (*RequestEmailVerificationResponse, error) {
	accountID, ok := contextx.AccountID(ctx)
	if !ok {
		return nil, httpx.UnauthorizedProblem(ctx, "")
	}
	if err := h.service.RequestEmailVerification(ctx, accountID); err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	return &RequestEmailVerificationResponse{}, nil
}

// ConfirmEmailHandler consumes a verification token.
func (h *Handler) ConfirmEmailHandler(ctx context.Context, input *ConfirmEmailRequest) (*ConfirmEmailResponse, error) {
	if verr := validation.ValidateStruct(&input.Body); verr != nil {
		return nil, httpx.ToProblem(ctx, verr)
	}
	if err := h.service.ConsumeEmailVerification(ctx, input.Body.Token); err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	return &ConfirmEmailResponse{}, nil
}
