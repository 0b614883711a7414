package auth

import "errors"

var (
	// ErrMissingField means the login payload lacked username or password.
	ErrMissingField = errors.New("missing username or password")
	// ErrInvalidCredentials is returned for both an unknown username and a
	// wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthorized means the token is valid but not the admin's.
	ErrUnauthorized = errors.New("unauthorized")

	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid or expired token")
)
