package service

import "errors"

var (
	// ErrValidation wraps malformed-input failures; handlers surface the
	// wrapped message with a 400.
	ErrValidation = errors.New("invalid input")

	// ErrInvalidCredentials is deliberately generic: bad identifier and bad
	// password are indistinguishable to the caller.
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrAccountLocked    = errors.New("account temporarily locked")
	ErrEmailNotVerified = errors.New("email not verified")

	// ErrUnauthorized covers every refresh failure without revealing which
	// check rejected the token.
	ErrUnauthorized = errors.New("unauthorized")

	ErrInvalidOneTimeToken = errors.New("invalid or expired token")
	ErrExpiredOneTimeToken = errors.New("token expired")
	ErrAlreadyVerified     = errors.New("email already verified")

	ErrTagLimit = errors.New("a photo can have a maximum of 5 tags")
)
