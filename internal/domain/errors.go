package domain

import "errors"

// Sentinel errors for the application.
var (
	ErrNotFound        = errors.New("resource not found")
	ErrInvalidIdentity = errors.New("missing or invalid user identity")
	ErrInvalidInput    = errors.New("invalid input")
	ErrConflict        = errors.New("resource already exists")
	ErrInternal        = errors.New("internal server error")
)
