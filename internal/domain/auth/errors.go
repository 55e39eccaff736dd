package auth

import "hrreview/internal/platform/apperr"

var (
	ErrUnauthenticated    = apperr.New(apperr.KindUnauthenticated, "authentication required")
	ErrForbidden          = apperr.New(apperr.KindForbidden, "insufficient permissions")
	ErrInvalidCredentials = apperr.New(apperr.KindUnauthenticated, "invalid credentials")
	ErrUserNotFound       = apperr.New(apperr.KindNotFound, "user not found")
	ErrEmailTaken         = apperr.New(apperr.KindConflict, "email already registered")
)
