package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInvalidJob          = errors.New("invalid job")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrJobTimeout          = errors.New("job timeout exceeded")
	ErrProviderFailure     = errors.New("provider failure")
	ErrProviderConfig      = errors.New("provider misconfigured")
	ErrDuplicateOperation  = errors.New("duplicate operation")
)
