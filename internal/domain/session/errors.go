package session

import "errors"

var (
	// ErrNotAuthenticated indicates no usable session is held.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrInvalidCredentials indicates the backend rejected the credentials.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidInput indicates invalid session input.
	ErrInvalidInput = errors.New("invalid session input")
)
