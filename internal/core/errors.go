package core

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation error")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrMissingReason     = errors.New("missing reason")
	ErrConflict          = errors.New("conflict")
	ErrUnavailable       = errors.New("collaborator unavailable")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden operation")
)
