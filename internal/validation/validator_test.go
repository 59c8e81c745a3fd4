package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type resetInput struct {
	Token           string `json:"token" validate:"required"`
	Password        string `json:"password" validate:"required,min=8"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

type signupInput struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"omitempty,oneof=user admin"`
}

func TestValidateStruct_OK(t *testing.T) {
	err := ValidateStruct(&resetInput{Token: "t", Password: "password1", ConfirmPassword: "password1"})
	assert.NoError(t, err)
}

func TestValidateStruct_FieldMessages(t *testing.T) {
	err := ValidateStruct(&resetInput{Token: "", Password: "short", ConfirmPassword: "other"})

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	fields := verr.Fields()
	assert.Equal(t, []string{"is required"}, fields["token"])
	assert.Equal(t, []string{"must be at least 8 characters"}, fields["password"])
	assert.Equal(t, []string{"must match password"}, fields["confirmPassword"])
	assert.Contains(t, verr.Error(), "and 2 other errors")
	assert.Equal(t, 400, verr.ProblemStatus())
}

func TestValidateStruct_EmailSummary(t *testing.T) {
	err := ValidateStruct(&signupInput{Email: "not-an-email", Role: "root"})

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "invalid email, and 1 other error", verr.Error())
	assert.Equal(t, []string{"must be one of: user, admin"}, verr.Fields()["role"])
}
