package auth

import "errors"

var (
	// ErrInvalidCredentials is returned for unknown users and wrong passwords alike.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrRateLimited means the client key has used up its login attempts for the window.
	ErrRateLimited = errors.New("too many login attempts")
)
