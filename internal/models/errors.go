package models

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")

	// auth-specific errors
	ErrInvalidToken       = errors.New("invalid token")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Embedding Provider / Language Service failures. Callers map this to a
	// service-unavailable response; the triggering operation is not retried
	// internally.
	ErrServiceUnavailable = errors.New("external service unavailable")
)
