// Package common defines shared sentinel errors used across the identity
// core and its persistence layer. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// Domain errors. These are expected conditions a caller is meant to
	// handle.
	ErrInvalidEmail           = errors.New("invalid email")
	ErrInvalidPassword        = errors.New("invalid password")
	ErrInvalidRegistrationKey = errors.New("invalid registration key")
	ErrUserAlreadyActive      = errors.New("user already active")
	ErrUnauthorizedAccess     = errors.New("user does not have the role required by this resource")

	// ErrAuthenticationFailed is returned both when no such user exists and
	// when the password does not match, so callers cannot tell registered
	// emails apart from unregistered ones.
	ErrAuthenticationFailed = errors.New("invalid authentication credentials")

	// Caller-contract violations.
	ErrProgramming = errors.New("programming error")
	ErrInvalidSalt = errors.New("salt of unexpected size")

	// Persistence errors.
	ErrNotFound              = errors.New("not found")
	ErrUnsupportedParamStyle = errors.New("unsupported paramstyle")
)
