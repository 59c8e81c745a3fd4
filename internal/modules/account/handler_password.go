package account

import (
	"context"

	"github.com/delordemm1/matrimony-api/internal/httpx"
	"github.com/delordemm1/matrimony-api/internal/validation"
)

// --- DTOs ---

// ForgotPasswordRequest defines the structure for initiating a password reset.
type ForgotPasswordRequest struct {
	Body struct {
		Email string `json:"email" validate:"required,email"`
	}
}

// ForgotPasswordResponse is an empty successful response.
type ForgotPasswordResponse struct{}

// ResetPasswordRequest defines the structure for finalizing a password reset.
type ResetPasswordRequest struct {
	Body struct {
		Token           string `json:"token" validate:"required"`
		Password        string `json:"password" validate:"required,min=8,max=72"`
		ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
	}
}

// ResetPasswordResponse is an empty successful response.
type ResetPasswordResponse struct{}

// --- Handlers ---

// ForgotPasswordHandler starts a password reset. The response never reveals
// whether the email belongs to an account.
func (h *Handler) ForgotPasswordHandler(ctx context.Context, input *ForgotPasswordRequest) (*ForgotPasswordResponse, error) {
	if verr := validation.ValidateStruct(&input.Body); verr != nil {
		return nil, httpx.ToProblem(ctx, verr)
	}

	if err := h.service.RequestPasswordReset(ctx, input.Body.Email); err != nil {
		h.logger.ErrorContext(ctx, "failed to initiate password reset", "error", err)
	}
	return &ForgotPasswordResponse{}, nil
}

// ResetPasswordHandler sets a new password using a reset token.
func (h *Handler) ResetPasswordHandler(ctx context.Context, input *ResetPasswordRequest) (*ResetPasswordResponse, error) {
	if verr := validation.ValidateStruct(&input.Body); verr != nil {
		return nil, httpx.ToProblem(ctx, verr)
	}

	if err := h.service.ConsumePasswordReset(ctx, input.Body.Token, input.Body.Password); err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	return &ResetPasswordResponse{}, nil
}
