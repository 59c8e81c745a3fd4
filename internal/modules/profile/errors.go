package profile

import (
	"net/http"

	"github.com/delordemm1/matrimony-api/internal/domainerr"
)

// Pre-defined domain errors for the profile module.
var (
	ErrNotFound     = domainerr.New("profile", "ErrNotFound", http.StatusNotFound, "profile not found")
	ErrSelfInterest = domainerr.New("profile", "ErrSelfInterest", http.StatusBadRequest, "you cannot send interest to yourself")
	ErrInternal     = domainerr.New("profile", "ErrInternal", http.StatusInternalServerError, "internal server error")
)
