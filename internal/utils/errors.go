package utils

import "errors"

// Common application errors used across services.
var (
	ErrNotAuthenticated   = errors.New("NOT_AUTHENTICATED")
	ErrInvalidCredentials = errors.New("INVALID_CREDENTIALS")
	ErrCategoryRequired   = errors.New("CATEGORY_REQUIRED")
	ErrSuperseded         = errors.New("LOAD_SUPERSEDED")
	ErrInvalidFilter      = errors.New("INVALID_FILTER")
	ErrInvalidToken       = errors.New("INVALID_TOKEN")
)
