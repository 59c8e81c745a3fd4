package token

import "errors"

// Verification failures. Callers map these onto their own public errors; the
// distinction is kept for logging and errors.Is checks only.
var (
	ErrInvalid     = errors.New("token: invalid")
	ErrExpired     = errors.New("token: expired")
	ErrReused      = errors.New("token: refresh token reused")
	ErrAlreadyUsed = errors.New("token: already used")
)
