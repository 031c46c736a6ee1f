package apperrors

import "errors"

// Failure kinds shared by the stores, the auth service and the market
// clients. Handlers match these with errors.Is to pick the HTTP status.
var (
	ErrValidation         = errors.New("invalid input")
	ErrConflict           = errors.New("already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenMalformed     = errors.New("malformed token")
	ErrTokenExpired       = errors.New("token expired")
	ErrUpstream           = errors.New("upstream request failed")
	ErrUpstreamTimeout    = errors.New("upstream request timed out")
)
