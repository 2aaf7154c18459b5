package auth

import "errors"

var (
	// ErrTokenInvalid is returned for a malformed, expired or forged token.
	ErrTokenInvalid = errors.New("auth: invalid token")

	// ErrForbidden is returned when a valid token lacks the required role.
	ErrForbidden = errors.New("auth: insufficient role")

	// ErrNoSecret is returned when signing without a secret.
	ErrNoSecret = errors.New("auth: signing secret is empty")
)
